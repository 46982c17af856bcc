package track

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const createVisitsTable = `
CREATE TABLE IF NOT EXISTS visits (
id TEXT PRIMARY KEY,
ts TEXT NOT NULL,
source TEXT NOT NULL DEFAULT '',
medium TEXT NOT NULL DEFAULT '',
campaign TEXT NOT NULL DEFAULT '',
content TEXT NOT NULL DEFAULT '',
term TEXT NOT NULL DEFAULT '',
ip TEXT NOT NULL DEFAULT '',
user_agent TEXT NOT NULL DEFAULT '',
referrer TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_visits_ts ON visits (ts);
`

const insertVisit = `
INSERT INTO visits (id, ts, source, medium, campaign, content, term, ip, user_agent, referrer)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

const selectDailyCounts = `
SELECT date(ts) AS day, COUNT(*)
FROM visits
WHERE date(ts) >= date(?)
GROUP BY day
`

// Visit is one tracked event: a pixel hit or a simulated campaign send.
type Visit struct {
	ID        string
	At        time.Time
	Source    string
	Medium    string
	Campaign  string
	Content   string
	Term      string
	IP        string
	UserAgent string
	Referrer  string
}

type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

var ErrStoreUnavailable = errors.New("visit store unavailable")

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("visit store requires a non-nil db")
	}
	if _, err := db.Exec(createVisitsTable); err != nil {
		return nil, fmt.Errorf("ensure visits table: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Record(ctx context.Context, v Visit) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	if v.At.IsZero() {
		v.At = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, insertVisit,
		v.ID,
		v.At.UTC().Format(time.RFC3339),
		v.Source,
		v.Medium,
		v.Campaign,
		v.Content,
		v.Term,
		v.IP,
		v.UserAgent,
		v.Referrer,
	)
	if err != nil {
		return fmt.Errorf("%w: insert visit: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// RecordSend logs a simulated campaign send as traffic, mirroring what a
// pixel hit from that campaign would record.
func (s *Store) RecordSend(ctx context.Context, source, medium, campaign, content string) error {
	return s.Record(ctx, Visit{
		Source:   source,
		Medium:   medium,
		Campaign: campaign,
		Content:  content,
	})
}

// Summary returns one bucket per day over the trailing window, zero-filled
// so the dashboard chart has a continuous axis.
func (s *Store) Summary(ctx context.Context, days int) ([]DayCount, error) {
	if days < 1 {
		days = 1
	}
	start := time.Now().UTC().AddDate(0, 0, -(days - 1))
	startDay := start.Format("2006-01-02")

	rows, err := s.db.QueryContext(ctx, selectDailyCounts, startDay)
	if err != nil {
		return nil, fmt.Errorf("%w: query daily counts: %v", ErrStoreUnavailable, err)
	}
	defer rows.Close()

	counts := make(map[string]int, days)
	for rows.Next() {
		var day string
		var n int
		if err := rows.Scan(&day, &n); err != nil {
			return nil, fmt.Errorf("%w: scan daily count: %v", ErrStoreUnavailable, err)
		}
		counts[day] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterate daily counts: %v", ErrStoreUnavailable, err)
	}

	summary := make([]DayCount, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		summary = append(summary, DayCount{Date: day, Count: counts[day]})
	}
	return summary, nil
}
