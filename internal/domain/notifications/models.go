package notifications

import (
	"context"
	"time"
)

// Notification is an outgoing message addressed to an employee.
type Notification struct {
	Kind                string            `json:"kind"`
	TenantID            string            `json:"tenantId"`
	RecipientEmployeeID string            `json:"recipientEmployeeId"`
	Title               string            `json:"title"`
	Body                string            `json:"body"`
	Data                map[string]string `json:"data,omitempty"`
}

// Sender accepts notifications for delivery. Callers treat errors as
// non-fatal: the triggering change is already committed.
type Sender interface {
	Send(ctx context.Context, n Notification) error
}

// Item is a stored in-app notification.
type Item struct {
	ID        string            `json:"id"`
	Kind      string            `json:"type"`
	Title     string            `json:"title"`
	Body      string            `json:"body"`
	Data      map[string]string `json:"data,omitempty"`
	ReadAt    *time.Time        `json:"readAt,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}

type Recipient struct {
	UserID string
	Email  string
}
