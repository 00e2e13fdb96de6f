// Package repo provides the Postgres board repository
package repo

import (
	"context"

	"hush/internal/modkit/repokit"
	perr "hush/internal/platform/errors"
	str "hush/internal/platform/strings"
	"hush/internal/services/board/domain"
)

// NotifyChannel carries board change notifications; every mutation fires a
// pg_notify on it in the same statement so listeners re-query the snapshot
const NotifyChannel = "hush_whispers"

type (
	// PG is the Postgres implementation of the board repo
	PG      struct{}
	queries struct{ q repokit.Queryer }
)

// NewPG returns a binder for the Postgres implementation
func NewPG() repokit.Binder[domain.StoragePort] { return PG{} }

// Bind attaches a Queryer to the Postgres implementation
func (PG) Bind(q repokit.Queryer) domain.StoragePort { return &queries{q: q} }

// Snapshot returns the full board ordered by created_at descending, with each
// whisper's replies in append (seq) order
func (r *queries) Snapshot(ctx context.Context) ([]domain.Whisper, error) {
	const wsql = `
		SELECT id::text, text, display_name, COALESCE(mood,''), COALESCE(image_data,''),
			owner_identity, x, y, loves, reports, COALESCE(location,''), created_at
		FROM whispers
		ORDER BY created_at DESC, id
	`
	rows, err := r.q.Query(ctx, wsql)
	if err != nil {
		return nil, perr.FromPg(err, "board snapshot")
	}
	defer rows.Close()

	var out []domain.Whisper
	index := map[string]int{}
	for rows.Next() {
		var w domain.Whisper
		if err := rows.Scan(
			&w.ID, &w.Text, &w.DisplayName, &w.Mood, &w.ImageData,
			&w.OwnerIdentity, &w.Position.X, &w.Position.Y,
			&w.Loves, &w.Reports, &w.Location, &w.CreatedAt,
		); err != nil {
			return nil, perr.FromPg(err, "board snapshot scan")
		}
		w.Replies = []domain.Reply{}
		index[w.ID] = len(out)
		out = append(out, w)
	}
	if err := rows.Err(); err != nil {
		return nil, perr.FromPg(err, "board snapshot rows")
	}
	if len(out) == 0 {
		return out, nil
	}

	const rsql = `
		SELECT id::text, whisper_id::text, author_identity, text,
			COALESCE(image_data,''), loves, seq
		FROM replies
		ORDER BY whisper_id, seq
	`
	rrows, err := r.q.Query(ctx, rsql)
	if err != nil {
		return nil, perr.FromPg(err, "board replies")
	}
	defer rrows.Close()

	for rrows.Next() {
		var rep domain.Reply
		if err := rrows.Scan(
			&rep.ID, &rep.WhisperID, &rep.AuthorIdentity, &rep.Text,
			&rep.ImageData, &rep.Loves, &rep.Seq,
		); err != nil {
			return nil, perr.FromPg(err, "board replies scan")
		}
		if i, ok := index[rep.WhisperID]; ok {
			out[i].Replies = append(out[i].Replies, rep)
		}
	}
	if err := rrows.Err(); err != nil {
		return nil, perr.FromPg(err, "board replies rows")
	}
	return out, nil
}

// Insert creates a whisper document and notifies listeners in one statement
func (r *queries) Insert(ctx context.Context, w domain.Whisper) error {
	const sql = `
		WITH ins AS (
			INSERT INTO whispers
				(id, text, display_name, mood, image_data, owner_identity,
				x, y, loves, reports, location, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, 0, $9, $10)
			RETURNING id
		)
		SELECT pg_notify('` + NotifyChannel + `', 'insert:' || id::text) FROM ins
	`
	_, err := r.q.Exec(ctx, sql,
		w.ID, w.Text, w.DisplayName, str.SQLNull(w.Mood), str.SQLNull(w.ImageData),
		w.OwnerIdentity, w.Position.X, w.Position.Y, str.SQLNull(w.Location), w.CreatedAt,
	)
	if err != nil {
		return perr.FromPg(err, "whisper insert")
	}
	return nil
}

// Delete removes a whisper; deleting a missing id is a no-op success
func (r *queries) Delete(ctx context.Context, whisperID string) error {
	const sql = `
		WITH del AS (
			DELETE FROM whispers WHERE id = $1 RETURNING id
		)
		SELECT pg_notify('` + NotifyChannel + `', 'delete:' || id::text) FROM del
	`
	if _, err := r.q.Exec(ctx, sql, whisperID); err != nil {
		return perr.FromPg(err, "whisper delete")
	}
	return nil
}

// IncrementLove applies a signed atomic delta to the love counter.
// The floor guard keeps a racing un-like from driving the counter negative
func (r *queries) IncrementLove(ctx context.Context, whisperID string, delta int) error {
	const sql = `
		WITH upd AS (
			UPDATE whispers SET loves = GREATEST(0, loves + $2)
			WHERE id = $1 RETURNING id
		)
		SELECT pg_notify('` + NotifyChannel + `', 'love:' || id::text) FROM upd
	`
	if _, err := r.q.Exec(ctx, sql, whisperID, delta); err != nil {
		return perr.FromPg(err, "whisper love")
	}
	return nil
}

// IncrementReport bumps the report counter by one
func (r *queries) IncrementReport(ctx context.Context, whisperID string) error {
	const sql = `
		WITH upd AS (
			UPDATE whispers SET reports = reports + 1
			WHERE id = $1 RETURNING id
		)
		SELECT pg_notify('` + NotifyChannel + `', 'report:' || id::text) FROM upd
	`
	if _, err := r.q.Exec(ctx, sql, whisperID); err != nil {
		return perr.FromPg(err, "whisper report")
	}
	return nil
}

// InsertReply appends a reply; seq is assigned by the store so arrival order
// is the append order. A missing whisper is dropped silently
func (r *queries) InsertReply(ctx context.Context, rep domain.Reply) error {
	const sql = `
		WITH ins AS (
			INSERT INTO replies (id, whisper_id, author_identity, text, image_data, loves)
			SELECT $1, $2, $3, $4, $5, 0
			WHERE EXISTS (SELECT 1 FROM whispers WHERE id = $2)
			RETURNING whisper_id
		)
		SELECT pg_notify('` + NotifyChannel + `', 'reply:' || whisper_id::text) FROM ins
	`
	_, err := r.q.Exec(ctx, sql,
		rep.ID, rep.WhisperID, rep.AuthorIdentity, rep.Text, str.SQLNull(rep.ImageData),
	)
	if err != nil {
		return perr.FromPg(err, "reply insert")
	}
	return nil
}

// IncrementReplyLove applies a signed atomic delta to one reply's counter.
// Per-reply counters mean concurrent likers never clobber each other
func (r *queries) IncrementReplyLove(ctx context.Context, whisperID, replyID string, delta int) error {
	const sql = `
		WITH upd AS (
			UPDATE replies SET loves = GREATEST(0, loves + $3)
			WHERE id = $2 AND whisper_id = $1 RETURNING whisper_id
		)
		SELECT pg_notify('` + NotifyChannel + `', 'reply_love:' || whisper_id::text) FROM upd
	`
	if _, err := r.q.Exec(ctx, sql, whisperID, replyID, delta); err != nil {
		return perr.FromPg(err, "reply love")
	}
	return nil
}
