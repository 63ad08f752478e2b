package controllers

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"medicine-marketplace/models"
	"medicine-marketplace/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// ---- fake repository ----

type fakeNotificationRepo struct {
	mu     sync.Mutex
	items  []models.Notification
	unread int64
	marked []string
	err    error
}

func (f *fakeNotificationRepo) Insert(_ context.Context, n *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, *n)
	return f.err
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, _ string, limit int) ([]models.Notification, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.items) > limit {
		return f.items[:limit], nil
	}
	return f.items, nil
}

func (f *fakeNotificationRepo) UnreadCount(_ context.Context, _ string) (int64, error) {
	return f.unread, f.err
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, _ string, ids []string) error {
	f.marked = ids
	return f.err
}

// withActor injects the authenticated principal the way RequireRole does.
func withActor(actor models.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("current_user", actor)
		c.Next()
	}
}

func notificationTestRouter(repo *fakeNotificationRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := services.NewNotificationService(repo, nil, zap.NewNop())
	ctrl := NewNotificationController(svc)

	r := gin.New()
	grp := r.Group("/notifications")
	grp.Use(withActor(models.Actor{ID: "u1", Username: "alice", Role: models.RoleBuyer}))
	grp.GET("", ctrl.List)
	grp.GET("/unread_count", ctrl.UnreadCount)
	grp.POST("/mark_read", ctrl.MarkRead)
	return r
}

func TestNotificationList(t *testing.T) {
	repo := &fakeNotificationRepo{items: []models.Notification{
		{ID: "n1", UserID: "u1", Type: models.NotifPaymentVerified, Title: "Payment verified"},
	}}
	router := notificationTestRouter(repo)

	req, _ := http.NewRequest(http.MethodGet, "/notifications", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "Payment verified")
}

func TestNotificationUnreadCount(t *testing.T) {
	repo := &fakeNotificationRepo{unread: 3}
	router := notificationTestRouter(repo)

	req, _ := http.NewRequest(http.MethodGet, "/notifications/unread_count", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), `"unread_count":3`)
}

func TestNotificationMarkRead(t *testing.T) {
	repo := &fakeNotificationRepo{}
	router := notificationTestRouter(repo)

	payload := `{"ids": ["n1", "n2"]}`
	req, _ := http.NewRequest(http.MethodPost, "/notifications/mark_read", bytes.NewBufferString(payload))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, []string{"n1", "n2"}, repo.marked)
}

func TestNotificationMarkRead_EmptyBodyMarksAll(t *testing.T) {
	repo := &fakeNotificationRepo{}
	router := notificationTestRouter(repo)

	req, _ := http.NewRequest(http.MethodPost, "/notifications/mark_read", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Empty(t, repo.marked)
}

func TestNotificationList_RepositoryFailure(t *testing.T) {
	repo := &fakeNotificationRepo{err: errors.New("connection reset")}
	router := notificationTestRouter(repo)

	req, _ := http.NewRequest(http.MethodGet, "/notifications", nil)
	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
