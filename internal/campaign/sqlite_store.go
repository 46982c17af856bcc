package campaign

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const createItemsTable = `
CREATE TABLE IF NOT EXISTS campaign_items (
id TEXT PRIMARY KEY,
channel TEXT NOT NULL,
payload TEXT NOT NULL,
scheduled_at TIMESTAMP NOT NULL,
status TEXT NOT NULL,
sent_at TIMESTAMP,
note TEXT NOT NULL DEFAULT '',
created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_campaign_items_due ON campaign_items (status, scheduled_at);
`

const insertItem = `
INSERT INTO campaign_items (id, channel, payload, scheduled_at, status, note, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

const selectDue = `
SELECT id, channel, payload, scheduled_at, status, sent_at, note, created_at
FROM campaign_items
WHERE status = ? AND scheduled_at <= ?
ORDER BY scheduled_at ASC
`

const selectRecent = `
SELECT id, channel, payload, scheduled_at, status, sent_at, note, created_at
FROM campaign_items
ORDER BY created_at DESC
LIMIT ?
`

const updateStatus = `
UPDATE campaign_items
SET status = ?, sent_at = ?, note = ?
WHERE id = ? AND status = ?
`

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	if db == nil {
		return nil, fmt.Errorf("campaign store requires a non-nil db")
	}
	if _, err := db.Exec(createItemsTable); err != nil {
		return nil, fmt.Errorf("ensure campaign_items table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) CreateItem(ctx context.Context, item Item) error {
	_, err := s.db.ExecContext(ctx, insertItem,
		item.ID,
		string(item.Channel),
		item.Payload,
		item.ScheduledAt.UTC(),
		string(item.Status),
		item.Note,
		item.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: insert item: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// ListDue returns pending items whose scheduled time has passed, earliest
// first so the longest-overdue item is handled before fresher ones.
func (s *SQLiteStore) ListDue(ctx context.Context, now time.Time) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, selectDue, string(StatusPending), now.UTC())
	if err != nil {
		return nil, fmt.Errorf("%w: query due items: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanItems(rows)
}

func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]Item, error) {
	rows, err := s.db.QueryContext(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query recent items: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()
	return scanItems(rows)
}

// TransitionStatus performs the conditional status update that keeps the
// at-most-once transition invariant. It reports false, with no error, when
// the row was not in the expected status anymore.
func (s *SQLiteStore) TransitionStatus(ctx context.Context, id string, from, to Status, sentAt time.Time, note string) (bool, error) {
	res, err := s.db.ExecContext(ctx, updateStatus,
		string(to),
		sentAt.UTC(),
		note,
		id,
		string(from),
	)
	if err != nil {
		return false, fmt.Errorf("%w: update status: %v", ErrStoreUnavailable, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %v", ErrStoreUnavailable, err)
	}
	return affected == 1, nil
}

func scanItems(rows *sql.Rows) ([]Item, error) {
	var items []Item
	for rows.Next() {
		var (
			item    Item
			channel string
			status  string
			sentAt  sql.NullTime
		)
		if err := rows.Scan(
			&item.ID,
			&channel,
			&item.Payload,
			&item.ScheduledAt,
			&status,
			&sentAt,
			&item.Note,
			&item.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan item: %v", ErrStoreUnavailable, err)
		}
		item.Channel = Channel(channel)
		item.Status = Status(status)
		if sentAt.Valid {
			t := sentAt.Time
			item.SentAt = &t
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate items: %v", ErrStoreUnavailable, err)
	}
	return items, nil
}
