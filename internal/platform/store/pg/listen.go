package pg

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Listen dedicates one pooled connection to LISTEN on channel and invokes fn
// for every notification payload until ctx is cancelled.
// The connection is released on return; fn is never called after that
func (p *PG) Listen(ctx context.Context, channel string, fn func(payload string)) error {
	conn, err := p.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return err
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		fn(n.Payload)
	}
}
