package services

import (
	"context"
	"net/http"
	"time"

	"medicine-marketplace/models"
	"medicine-marketplace/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// EventPublisher fans notification events out to the order-events topic.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, evt models.OrderEvent) error
}

// NotificationService records notification events. The database insert is
// the guaranteed part; topic publication is best-effort and never fails the
// triggering request.
type NotificationService struct {
	repo      repository.NotificationRepository
	publisher EventPublisher // nil when no broker is configured
	log       *zap.Logger
}

func NewNotificationService(repo repository.NotificationRepository, publisher EventPublisher, log *zap.Logger) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher, log: log}
}

// Notify records one notification for a user and publishes the matching
// order event. Failures are logged, not propagated: a lost notification
// must never roll back an order transition.
func (s *NotificationService) Notify(ctx context.Context, userID, role, typ, title, message, orderID string) {
	n := &models.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Role:    role,
		Type:    typ,
		Title:   title,
		Message: message,
		OrderID: orderID,
	}
	if err := s.repo.Insert(ctx, n); err != nil {
		s.log.Error("notification insert failed",
			zap.String("user_id", userID),
			zap.String("type", typ),
			zap.Error(err))
		return
	}

	if s.publisher != nil {
		_ = s.publisher.PublishOrderEvent(ctx, models.OrderEvent{
			OrderID:   orderID,
			UserID:    userID,
			Role:      role,
			Type:      typ,
			Title:     title,
			Message:   message,
			Timestamp: time.Now().UTC(),
		})
	}
}

func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]models.Notification, *ServiceError) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	items, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, newError(http.StatusInternalServerError, "Failed to fetch notifications")
	}
	if items == nil {
		items = []models.Notification{}
	}
	return items, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, *ServiceError) {
	n, err := s.repo.UnreadCount(ctx, userID)
	if err != nil {
		return 0, newError(http.StatusInternalServerError, "Failed to count notifications")
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID string, ids []string) *ServiceError {
	if err := s.repo.MarkRead(ctx, userID, ids); err != nil {
		return newError(http.StatusInternalServerError, "Failed to mark notifications read")
	}
	return nil
}
