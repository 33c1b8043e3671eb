package notifications

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"hrflow/internal/platform/email"
	"hrflow/internal/platform/jobs"
)

type Service struct {
	store  StoreAPI
	mailer email.Mailer
	from   string
	logger *zap.Logger
}

func New(store StoreAPI, mailer email.Mailer, from string, logger *zap.Logger) *Service {
	return &Service{store: store, mailer: mailer, from: from, logger: logger}
}

// Deliver stores the in-app notification and emails the recipient. Email
// failures are logged and do not fail delivery, so a retry never duplicates
// the stored row.
func (s *Service) Deliver(ctx context.Context, n Notification) error {
	rcpt, err := s.store.Recipient(ctx, n.TenantID, n.RecipientEmployeeID)
	if errors.Is(err, ErrNoRecipient) {
		return jobs.Permanent(err)
	}
	if err != nil {
		return fmt.Errorf("resolve recipient: %w", err)
	}
	if rcpt.UserID == "" && rcpt.Email == "" {
		return jobs.Permanent(ErrNoRecipient)
	}

	if rcpt.UserID != "" {
		if err := s.store.CreateNotification(ctx, n.TenantID, rcpt.UserID, n); err != nil {
			return fmt.Errorf("store notification: %w", err)
		}
	}

	if s.mailer == nil || rcpt.Email == "" {
		return nil
	}
	if err := s.mailer.Send(ctx, s.from, rcpt.Email, n.Title, n.Body); err != nil {
		s.logger.Warn("notification email send failed",
			zap.String("kind", n.Kind),
			zap.String("tenantId", n.TenantID),
			zap.Error(err),
		)
	}
	return nil
}

func (s *Service) List(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]Item, error) {
	return s.store.ListNotifications(ctx, tenantID, userID, unreadOnly, limit, offset)
}

func (s *Service) Count(ctx context.Context, tenantID, userID string, unreadOnly bool) (int, error) {
	return s.store.CountNotifications(ctx, tenantID, userID, unreadOnly)
}

func (s *Service) MarkRead(ctx context.Context, tenantID, userID, notificationID string) error {
	ok, err := s.store.MarkRead(ctx, tenantID, userID, notificationID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
