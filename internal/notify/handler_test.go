package notify

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"beastfood/internal/auth"
	"beastfood/pkg/models"
)

func fakeAuth(c *gin.Context) {
	c.Set(auth.CtxClaimsKey, &auth.Claims{UserID: "u-1", Role: auth.RoleUser})
	c.Next()
}

func newNotifyRouter(t *testing.T) (*gin.Engine, *Service, sqlmock.Sqlmock) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, mock := newTestService(t, nil)

	r := gin.New()
	h := NewHandler(svc)
	h.Heartbeat = 50 * time.Millisecond
	h.RegisterRoutes(r.Group("/api/notifications"), fakeAuth)
	return r, svc, mock
}

func readUntil(t *testing.T, br *bufio.Reader, prefix string) string {
	t.Helper()
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(line)
		}
	}
}

func TestStreamSendsUnreadCountNotificationsAndHeartbeats(t *testing.T) {
	r, svc, mock := newNotifyRouter(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WithArgs("u-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

	srv := httptest.NewServer(r)
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/notifications/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	br := bufio.NewReader(resp.Body)

	assert.Equal(t, "event: unread_count", readUntil(t, br, "event:"))
	assert.Equal(t, `data: {"count":2}`, readUntil(t, br, "data:"))

	svc.Registry.Deliver(Event{Type: EventNotification, UserID: "u-1", Notification: &models.Notification{ID: 42, Type: models.NotifyFollow}})
	assert.Equal(t, "event: notification", readUntil(t, br, "event:"))
	assert.Contains(t, readUntil(t, br, "data:"), `"id":42`)

	assert.Equal(t, ": heartbeat", readUntil(t, br, ": heartbeat"))
	assert.Equal(t, 1, svc.Registry.Connected("u-1"))

	cancel()
	assert.Eventually(t, func() bool { return svc.Registry.Connected("u-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketReceivesEvents(t *testing.T) {
	r, svc, mock := newNotifyRouter(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	srv := httptest.NewServer(r)
	defer srv.Close()

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/notifications/ws", nil)
	require.NoError(t, err)
	defer ws.Close()

	var first wsMessage
	require.NoError(t, ws.ReadJSON(&first))
	assert.Equal(t, EventUnreadCount, first.Type)

	svc.Registry.Deliver(Event{Type: EventNotification, UserID: "u-1", Notification: &models.Notification{ID: 7}})
	var second struct {
		Type string              `json:"type"`
		Data models.Notification `json:"data"`
	}
	require.NoError(t, ws.ReadJSON(&second))
	assert.Equal(t, EventNotification, second.Type)
	assert.Equal(t, int64(7), second.Data.ID)
}

func TestCloseAllEndsOpenStreams(t *testing.T) {
	r, svc, mock := newNotifyRouter(t)
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM notifications`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/notifications/stream")
	require.NoError(t, err)
	defer resp.Body.Close()
	br := bufio.NewReader(resp.Body)
	readUntil(t, br, "event: unread_count")

	ws, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/notifications/ws", nil)
	require.NoError(t, err)
	defer ws.Close()
	var first wsMessage
	require.NoError(t, ws.ReadJSON(&first))
	require.Equal(t, 2, svc.Registry.Connected("u-1"))

	assert.Equal(t, 2, svc.Registry.CloseAll())

	_, err = io.ReadAll(br)
	assert.NoError(t, err)
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = ws.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, svc.Registry.Connected("u-1"))
}

func TestMarkReadNotFound(t *testing.T) {
	r, _, mock := newNotifyRouter(t)
	mock.ExpectExec(`UPDATE notifications SET is_read = TRUE WHERE id = \$1 AND user_id = \$2`).
		WithArgs(int64(9), "u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	req := httptest.NewRequest(http.MethodPut, "/api/notifications/9/read", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListNotificationsWithActor(t *testing.T) {
	r, _, mock := newNotifyRouter(t)
	cols := []string{"id", "user_id", "actor_id", "type", "message", "entity_type", "entity_id", "is_read", "created_at",
		"username", "name", "avatar_url"}
	mock.ExpectQuery(`FROM notifications n\s+LEFT JOIN users u ON u.id = n.actor_id\s+WHERE n.user_id = \$1 AND n.is_read = FALSE`).
		WithArgs("u-1", 20, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(1, "u-1", "u-2", models.NotifyFollow, "bob começou a seguir você", "user", nil, false, time.Now(), "bob", "Bob", "").
			AddRow(2, "u-1", nil, models.NotifyRestaurantApproved, "aprovado", "restaurant", 5, false, time.Now(), nil, nil, nil))

	req := httptest.NewRequest(http.MethodGet, "/api/notifications?unread_only=true", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `"username":"bob"`)
	assert.Contains(t, body, `"entity_id":5`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRejectsBadPagination(t *testing.T) {
	r, _, _ := newNotifyRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/notifications?limit=0", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
