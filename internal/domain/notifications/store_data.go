package notifications

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{DB: db}
}

func (s *Store) Recipient(ctx context.Context, tenantID, employeeID string) (Recipient, error) {
	var rcpt Recipient
	err := s.DB.QueryRow(ctx, `
    SELECT COALESCE(e.user_id::text, ''), COALESCE(NULLIF(u.email, ''), e.email, '')
    FROM employees e
    LEFT JOIN users u ON u.id = e.user_id AND u.tenant_id = e.tenant_id
    WHERE e.tenant_id = $1 AND e.id = $2
  `, tenantID, employeeID).Scan(&rcpt.UserID, &rcpt.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recipient{}, ErrNoRecipient
	}
	return rcpt, err
}

func (s *Store) CreateNotification(ctx context.Context, tenantID, userID string, n Notification) error {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return err
	}
	_, err = s.DB.Exec(ctx, `
    INSERT INTO notifications (tenant_id, user_id, type, title, body, data)
    VALUES ($1,$2,$3,$4,$5,$6)
  `, tenantID, userID, n.Kind, n.Title, n.Body, data)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, tenantID, userID string, unreadOnly bool, limit, offset int) ([]Item, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, type, title, body, data, read_at, created_at
    FROM notifications
    WHERE tenant_id = $1 AND user_id = $2 AND (NOT $3 OR read_at IS NULL)
    ORDER BY created_at DESC
    LIMIT $4 OFFSET $5
  `, tenantID, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Item, 0)
	for rows.Next() {
		var item Item
		var data []byte
		if err := rows.Scan(&item.ID, &item.Kind, &item.Title, &item.Body, &data, &item.ReadAt, &item.CreatedAt); err != nil {
			return nil, err
		}
		if len(data) > 0 {
			if err := json.Unmarshal(data, &item.Data); err != nil {
				return nil, err
			}
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *Store) CountNotifications(ctx context.Context, tenantID, userID string, unreadOnly bool) (int, error) {
	var total int
	if err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM notifications
    WHERE tenant_id = $1 AND user_id = $2 AND (NOT $3 OR read_at IS NULL)
  `, tenantID, userID, unreadOnly).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, tenantID, userID, notificationID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, now())
    WHERE tenant_id = $1 AND user_id = $2 AND id = $3
  `, tenantID, userID, notificationID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
