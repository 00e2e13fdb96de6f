package domain

import (
	"context"
	"time"
)

// WriterPort appends engagement events
type WriterPort interface {
	Insert(ctx context.Context, ev Event) error
}

// QueryPort reads engagement aggregates
type QueryPort interface {
	CountsSince(ctx context.Context, since time.Time) ([]KindCount, error)
}
