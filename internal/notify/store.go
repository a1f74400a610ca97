package notify

import (
	"context"
	"errors"

	"storefront/internal/model"
)

var ErrRecordNotFound = errors.New("notification not found")

// Store is the durable notification log. It is injected rather than
// ambient so tests can substitute an in-memory implementation. The read
// flag only ever transitions false to true; ClearAll empties the calling
// user's log wholesale.
type Store interface {
	Append(ctx context.Context, rec *model.NotificationRecord) error
	List(ctx context.Context, userID string) ([]model.NotificationRecord, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) error
	ClearAll(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}
