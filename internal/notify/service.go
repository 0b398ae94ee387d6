package notify

import (
	"context"
	"fmt"

	"beastfood/pkg/logger"
	"beastfood/pkg/models"
)

// Input describes a notification to create.
type Input struct {
	UserID     string
	ActorID    string
	Type       string
	Message    string
	EntityType string
	EntityID   *int64
}

// Service persists notifications and pushes them to live streams. With a
// Bus set, pushes go through the bus so every instance delivers to its own
// connections exactly once.
type Service struct {
	Repo     *Repo
	Registry *Registry
	Bus      Bus
	Log      *logger.Logger
}

func NewService(repo *Repo, registry *Registry, bus Bus, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{Repo: repo, Registry: registry, Bus: bus, Log: log.With("component", "notify")}
}

// Create stores and pushes a notification. Notifying yourself is a no-op and
// returns nil.
func (s *Service) Create(ctx context.Context, in Input) (*models.Notification, error) {
	if in.UserID == "" || in.UserID == in.ActorID {
		return nil, nil
	}

	n := &models.Notification{
		UserID:     in.UserID,
		ActorID:    in.ActorID,
		Type:       in.Type,
		Message:    in.Message,
		EntityType: in.EntityType,
		EntityID:   in.EntityID,
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		return nil, err
	}
	if in.ActorID != "" {
		actor, err := s.Repo.Actor(ctx, in.ActorID)
		if err != nil {
			s.Log.Warn("notification actor lookup failed", "actor_id", in.ActorID, "error", err)
		}
		n.Actor = actor
	}

	ev := Event{Type: EventNotification, UserID: n.UserID, Notification: n}
	if s.Bus != nil {
		if err := s.Bus.Publish(ctx, ev); err != nil {
			s.Log.Warn("notification publish failed, delivering locally", "user_id", n.UserID, "error", err)
			s.Dispatch(ctx, ev)
		}
		return n, nil
	}
	s.Dispatch(ctx, ev)
	return n, nil
}

// Notify is Create for callers that must not fail on notification errors.
func (s *Service) Notify(ctx context.Context, in Input) {
	if s == nil {
		return
	}
	if _, err := s.Create(ctx, in); err != nil {
		s.Log.Error("create notification failed", "user_id", in.UserID, "type", in.Type, "error", err)
	}
}

// NotifyAdmins sends one notification to every admin except the actor.
func (s *Service) NotifyAdmins(ctx context.Context, in Input) {
	if s == nil {
		return
	}
	ids, err := s.Repo.AdminIDs(ctx)
	if err != nil {
		s.Log.Error("list admins failed", "error", err)
		return
	}
	for _, id := range ids {
		in.UserID = id
		s.Notify(ctx, in)
	}
}

// Dispatch pushes ev to local streams followed by the user's fresh unread
// count. It skips the count query when the user has no local stream.
func (s *Service) Dispatch(ctx context.Context, ev Event) {
	if s.Registry == nil || s.Registry.Connected(ev.UserID) == 0 {
		return
	}
	s.Registry.Deliver(ev)
	if ev.Type != EventNotification {
		return
	}
	s.PushUnreadCount(ctx, ev.UserID)
}

func (s *Service) PushUnreadCount(ctx context.Context, userID string) {
	if s.Registry == nil || s.Registry.Connected(userID) == 0 {
		return
	}
	n, err := s.Repo.UnreadCount(ctx, userID)
	if err != nil {
		s.Log.Warn("unread count failed", "user_id", userID, "error", err)
		return
	}
	s.Registry.Deliver(Event{Type: EventUnreadCount, UserID: userID, UnreadCount: &n})
}

// Forward runs the bus consumer until ctx ends, dispatching every received
// event to this instance's registry.
func (s *Service) Forward(ctx context.Context) error {
	if s.Bus == nil {
		return nil
	}
	if err := s.Bus.Run(ctx, func(ev Event) { s.Dispatch(ctx, ev) }); err != nil {
		return fmt.Errorf("notification bus: %w", err)
	}
	return nil
}
