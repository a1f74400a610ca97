package notify

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"storefront/internal/model"
)

// PostgresStore persists the notification log in the notifications table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, rec *model.NotificationRecord) error {
	data, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("marshal data: %w", err)
	}

	query := `INSERT INTO notifications (user_id, title, body, data, read)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING id, created_at`
	row := s.db.QueryRowContext(ctx, query, rec.UserID, rec.Title, rec.Body, data)
	if err := row.Scan(&rec.ID, &rec.CreatedAt); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}

	return nil
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]model.NotificationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, title, body, data, read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var records []model.NotificationRecord
	for rows.Next() {
		var rec model.NotificationRecord
		var data []byte
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.Title, &rec.Body, &data, &rec.Read, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		// A corrupt payload is tolerated: the record still lists, the
		// tap just routes nowhere.
		if err := json.Unmarshal(data, &rec.Data); err != nil {
			slog.Warn("corrupt notification payload", "id", rec.ID, "error", err)
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration failed: %w", err)
	}

	return records, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, userID, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET read = TRUE WHERE user_id = $1 AND NOT read`, userID)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	return nil
}

func (s *PostgresStore) ClearAll(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("clear notifications: %w", err)
	}
	return nil
}

func (s *PostgresStore) UnreadCount(ctx context.Context, userID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND NOT read`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return count, nil
}
