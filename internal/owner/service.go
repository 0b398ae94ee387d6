package owner

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"beastfood/internal/apierr"
	"beastfood/internal/restaurants"
	"beastfood/pkg/models"
)

var (
	ErrNotOwner           = apierr.Forbidden("you do not own this restaurant")
	ErrRestaurantNotFound = apierr.NotFound("restaurant not found")
)

var clock = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Service gates restaurant edits on ownership. Admins pass every check.
type Service struct {
	Restaurants *restaurants.Repo
}

func NewService(repo *restaurants.Repo) *Service {
	return &Service{Restaurants: repo}
}

func (s *Service) Mine(ctx context.Context, userID string) ([]models.Restaurant, error) {
	return s.Restaurants.ListByOwner(ctx, userID)
}

func (s *Service) authorize(ctx context.Context, id int64, userID string, admin bool) error {
	rest, err := s.Restaurants.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rest == nil {
		return ErrRestaurantNotFound
	}
	if !admin && rest.OwnerID != userID {
		return ErrNotOwner
	}
	return nil
}

func (s *Service) Update(ctx context.Context, id int64, userID string, admin bool, u restaurants.UpdateFields) (*models.Restaurant, error) {
	if err := s.authorize(ctx, id, userID, admin); err != nil {
		return nil, err
	}
	if _, err := s.Restaurants.Update(ctx, id, u); err != nil {
		return nil, err
	}
	return s.Restaurants.GetByID(ctx, id)
}

func ValidateHours(hours []models.OperatingHour) error {
	seen := map[int]bool{}
	for _, h := range hours {
		if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
			return errors.New("day_of_week must be between 0 and 6")
		}
		if seen[h.DayOfWeek] {
			return fmt.Errorf("day_of_week %d listed twice", h.DayOfWeek)
		}
		seen[h.DayOfWeek] = true
		if h.Closed {
			continue
		}
		if !clock.MatchString(h.OpenTime) || !clock.MatchString(h.CloseTime) {
			return fmt.Errorf("day %d: open_time and close_time must be HH:MM", h.DayOfWeek)
		}
	}
	return nil
}

func (s *Service) ReplaceHours(ctx context.Context, id int64, userID string, admin bool, hours []models.OperatingHour) error {
	if err := ValidateHours(hours); err != nil {
		return apierr.BadRequest(err.Error())
	}
	if err := s.authorize(ctx, id, userID, admin); err != nil {
		return err
	}
	return s.Restaurants.ReplaceHours(ctx, id, hours)
}

func (s *Service) ReplaceServices(ctx context.Context, id int64, userID string, admin bool, services []string) error {
	if err := s.authorize(ctx, id, userID, admin); err != nil {
		return err
	}
	return s.Restaurants.ReplaceServices(ctx, id, services)
}

func (s *Service) ReplaceHighlights(ctx context.Context, id int64, userID string, admin bool, highlights []string) error {
	if err := s.authorize(ctx, id, userID, admin); err != nil {
		return err
	}
	return s.Restaurants.ReplaceHighlights(ctx, id, highlights)
}
