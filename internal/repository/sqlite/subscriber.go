package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/syn-press/syn-api/internal/model"
	"github.com/syn-press/syn-api/internal/repository"
)

// compile-time check that *DB implements repository.SubscriberRepository
var _ repository.SubscriberRepository = (*DB)(nil)

// AddSubscriber stores a newsletter subscriber. Re-subscribing an existing
// email is a silent no-op (ON CONFLICT DO NOTHING).
func (db *DB) AddSubscriber(ctx context.Context, sub *model.Subscriber) error {
	sub.ID = xid.New().String()
	sub.CreatedAt = time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO subscribers (id, email, name, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO NOTHING`,
		sub.ID,
		sub.Email,
		sub.Name,
		sub.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: adding subscriber: %w", err)
	}

	return nil
}

func (db *DB) ListSubscribers(ctx context.Context) ([]model.Subscriber, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, email, name, created_at FROM subscribers ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing subscribers: %w", err)
	}
	defer rows.Close()

	subs := []model.Subscriber{}
	for rows.Next() {
		var s model.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Name, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning subscriber row: %w", err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating subscribers: %w", err)
	}

	return subs, nil
}
