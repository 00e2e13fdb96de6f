// Package repo provides the clickhouse persistence for engagement events
package repo

import (
	"context"
	"time"

	perr "hush/internal/platform/errors"
	"hush/internal/platform/store"
	"hush/internal/services/engage/domain"
)

// CH writes and reads engagement events on clickhouse
type CH struct {
	ch store.Clickhouse
}

// NewCH constructs the clickhouse repo
func NewCH(ch store.Clickhouse) *CH { return &CH{ch: ch} }

var _ domain.WriterPort = (*CH)(nil)
var _ domain.QueryPort = (*CH)(nil)

// EnsureTable creates the events table when it does not exist yet
func (r *CH) EnsureTable(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS hush_events (
			kind       LowCardinality(String),
			identity   String,
			whisper_id String,
			reply_id   String,
			at         DateTime64(3)
		)
		ENGINE = MergeTree
		PARTITION BY toYYYYMM(at)
		ORDER BY (kind, at)
		TTL toDateTime(at) + INTERVAL 90 DAY
	`
	if err := r.ch.Exec(ctx, ddl); err != nil {
		return perr.Storagef("ensure events table: %v", err)
	}
	return nil
}

// Insert appends one event
func (r *CH) Insert(ctx context.Context, ev domain.Event) error {
	const q = `
		INSERT INTO hush_events (kind, identity, whisper_id, reply_id, at)
		VALUES (?, ?, ?, ?, ?)
	`
	if err := r.ch.Exec(ctx, q, ev.Kind, ev.Identity, ev.WhisperID, ev.ReplyID, ev.At); err != nil {
		return perr.Storagef("insert event: %v", err)
	}
	return nil
}

// CountsSince aggregates event counts per kind from since onward
func (r *CH) CountsSince(ctx context.Context, since time.Time) ([]domain.KindCount, error) {
	const q = `
		SELECT kind, count() AS n
		FROM hush_events
		WHERE at >= ?
		GROUP BY kind
		ORDER BY n DESC, kind
	`
	rs, err := r.ch.Query(ctx, q, since)
	if err != nil {
		return nil, perr.Storagef("query event counts: %v", err)
	}
	defer rs.Close()

	var out []domain.KindCount
	for rs.Next() {
		var kc domain.KindCount
		if err := rs.Scan(&kc.Kind, &kc.Count); err != nil {
			return nil, perr.Storagef("scan event count: %v", err)
		}
		out = append(out, kc)
	}
	if err := rs.Err(); err != nil {
		return nil, perr.Storagef("iterate event counts: %v", err)
	}
	return out, nil
}
