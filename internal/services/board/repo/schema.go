package repo

import (
	"context"

	"hush/internal/modkit/repokit"
	perr "hush/internal/platform/errors"
)

// ddl is idempotent; seq is a bigserial so reply order is the append order
const ddl = `
CREATE TABLE IF NOT EXISTS whispers (
	id uuid PRIMARY KEY,
	text text NOT NULL,
	display_name text NOT NULL DEFAULT 'Anonymous',
	mood text,
	image_data text,
	owner_identity text NOT NULL,
	x double precision NOT NULL,
	y double precision NOT NULL,
	loves integer NOT NULL DEFAULT 0,
	reports integer NOT NULL DEFAULT 0,
	location text,
	created_at bigint NOT NULL
);
CREATE INDEX IF NOT EXISTS whispers_created_at_idx ON whispers (created_at DESC);
CREATE INDEX IF NOT EXISTS whispers_owner_idx ON whispers (owner_identity);

CREATE TABLE IF NOT EXISTS replies (
	id uuid PRIMARY KEY,
	whisper_id uuid NOT NULL REFERENCES whispers (id) ON DELETE CASCADE,
	author_identity text NOT NULL,
	text text NOT NULL,
	image_data text,
	loves integer NOT NULL DEFAULT 0,
	seq bigserial
);
CREATE INDEX IF NOT EXISTS replies_whisper_seq_idx ON replies (whisper_id, seq);
`

// EnsureSchema creates the board tables when they do not exist yet
func EnsureSchema(ctx context.Context, q repokit.Queryer) error {
	if _, err := q.Exec(ctx, ddl); err != nil {
		return perr.FromPg(err, "board schema")
	}
	return nil
}
