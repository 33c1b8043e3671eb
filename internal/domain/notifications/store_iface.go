package notifications

import "context"

type StoreAPI interface {
	Recipient(ctx context.Context, tenantID, employeeID string) (Recipient, error)
	CreateNotification(ctx context.Context, tenantID, userID string, n Notification) error
	ListNotifications(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]Item, error)
	CountNotifications(ctx context.Context, tenantID, userID string, unreadOnly bool) (int, error)
	MarkRead(ctx context.Context, tenantID, userID, notificationID string) (bool, error)
}
