package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/notihub/gateway/internal/domain/model"
	repo "github.com/notihub/gateway/internal/domain/repository"
	"github.com/notihub/gateway/internal/service"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func discardLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type fakeRepo struct {
	notifications map[uuid.UUID]*model.Notification
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{notifications: make(map[uuid.UUID]*model.Notification)}
}

func (r *fakeRepo) Save(ctx context.Context, n *model.Notification) (*model.Notification, error) {
	r.notifications[n.ID] = n
	return n, nil
}

func (r *fakeRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Notification, error) {
	n, ok := r.notifications[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return n, nil
}

func (r *fakeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status model.Status) error {
	if n, ok := r.notifications[id]; ok {
		n.Status = status
	}
	return nil
}

type fakeQueue struct{}

func (q *fakeQueue) Push(ctx context.Context, job []byte) error       { return nil }
func (q *fakeQueue) Pop(ctx context.Context) ([]byte, error)          { return nil, nil }
func (q *fakeQueue) PushFailed(ctx context.Context, job []byte) error { return nil }

func newTestRouter() (*gin.Engine, *fakeRepo) {
	gin.SetMode(gin.TestMode)
	notifications := newFakeRepo()
	svc := service.NewNotificationService(notifications, &fakeQueue{}, discardLogger())
	handlers := NewHandlers(svc, discardLogger())

	router := gin.New()
	handlers.RegisterRoutes(router)
	return router, notifications
}

func TestHandlers_Send_ValidRequestReturns200(t *testing.T) {
	router, _ := newTestRouter()

	body := CreateNotificationRequest{
		UserID:        uuid.New().String(),
		Recipient:     "device-token",
		RecipientType: "token",
		Channel:       "push",
		Payload:       json.RawMessage(`{"title":"hi","body":"there"}`),
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/notification/send", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp CreateNotificationResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "queued", resp.Status)
}

func TestHandlers_Send_InvalidJSONReturns500(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodPost, "/notification/send", bytes.NewReader([]byte("not json")))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandlers_GetByID_NotFoundReturns404(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/notification/"+uuid.New().String(), nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_GetByID_InvalidUUIDReturns500(t *testing.T) {
	router, _ := newTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/notification/not-a-uuid", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandlers_GetByID_FoundReturnsNotificationView(t *testing.T) {
	router, notifications := newTestRouter()

	id := uuid.New()
	notifications.notifications[id] = &model.Notification{
		ID:      id,
		Channel: model.ChannelPush,
		Status:  model.StatusSent,
	}

	req := httptest.NewRequest(http.MethodGet, "/notification/"+id.String(), nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var view NotificationView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &view))
	require.Equal(t, id, view.ID)
	require.Equal(t, "sent", view.Status)
}
