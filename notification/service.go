package notification

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Bako-Labs/bako-safe-api/repository/models"
)

// Store is the persistence surface the service needs.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string) (int64, error)
}

// Service persists in-app notifications. It implements engine.Notifier.
type Service struct {
	store  Store
	logger *logrus.Logger
}

func NewService(store Store, logger *logrus.Logger) *Service {
	return &Service{store: store, logger: logger}
}

func (s *Service) Notify(ctx context.Context, userID, title string, summary models.NotificationSummary) error {
	n := &models.Notification{
		UserID:  userID,
		Title:   title,
		Summary: summary,
	}
	return s.store.CreateNotification(ctx, n)
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	return s.store.ListNotifications(ctx, userID, unreadOnly)
}

// MarkRead flips all of the user's unread notifications and returns how many
// were affected.
func (s *Service) MarkRead(ctx context.Context, userID string) (int64, error) {
	return s.store.MarkNotificationsRead(ctx, userID)
}

// LogMailer writes outbound mail to the log instead of a delivery provider.
// It implements engine.Mailer and stands in until a provider is configured.
type LogMailer struct {
	logger *logrus.Logger
}

func NewLogMailer(logger *logrus.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, template, to string, data map[string]string) error {
	m.logger.WithFields(logrus.Fields{
		"template": template,
		"to":       to,
		"data":     data,
	}).Info("Dispatching mail")
	return nil
}
