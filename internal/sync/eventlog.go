package syncx

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"
)

// Event types written to the log.
const (
	TypeResultSubmitted = "ResultSubmitted"
)

type Event struct {
	Seq       int64           `json:"seq"`
	SiteID    string          `json:"site_id"`
	Type      string          `json:"type"`
	Key       string          `json:"key"`
	Data      json.RawMessage `json:"data"`
	CreatedAt int64           `json:"created_at"`
}

type EventRepo struct {
	db     *sql.DB
	siteID string
}

func NewEventRepo(db *sql.DB, siteID string) *EventRepo {
	if siteID == "" {
		siteID = "local"
	}
	return &EventRepo{db: db, siteID: siteID}
}

// Append marshals data and stores it under typ/key.
func (r *EventRepo) Append(ctx context.Context, typ, key string, data any) error {
	b, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, event_key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		r.siteID, typ, key, string(b), time.Now().Unix())
	return err
}

// Since returns up to limit events with seq greater than after, oldest first.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT seq, site_id, typ, event_key, data, created_at
		   FROM event_log WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Event{}
	for rows.Next() {
		var e Event
		var data string
		if err := rows.Scan(&e.Seq, &e.SiteID, &e.Type, &e.Key, &data, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Data = json.RawMessage(data)
		out = append(out, e)
	}
	return out, rows.Err()
}
