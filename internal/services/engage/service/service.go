// Package service implements the engagement event sink
package service

import (
	"context"
	"sync"
	"time"

	"hush/internal/platform/logger"
	"hush/internal/services/engage/domain"
)

const recordTimeout = 2 * time.Second

// Service fans engagement events into the columnar store. Writes are fire and
// forget: a failed insert is logged and never surfaces to the caller
type Service struct {
	writer domain.WriterPort
	query  domain.QueryPort
	log    logger.Logger

	wg  sync.WaitGroup
	now func() time.Time // seam
}

// New constructs the engage service
func New(writer domain.WriterPort, query domain.QueryPort) *Service {
	return &Service{
		writer: writer,
		query:  query,
		log:    *logger.Named("engage"),
		now:    time.Now,
	}
}

// Record appends one event asynchronously, detached from the request context
func (s *Service) Record(_ context.Context, kind, identity, whisperID, replyID string) {
	if s == nil || s.writer == nil {
		return
	}
	ev := domain.Event{
		Kind:      kind,
		Identity:  identity,
		WhisperID: whisperID,
		ReplyID:   replyID,
		At:        s.now(),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.writer.Insert(ctx, ev); err != nil {
			s.log.Warn().Err(err).Str("kind", ev.Kind).Msg("event insert dropped")
		}
	}()
}

// CountsSince reads the per-kind aggregate from since onward
func (s *Service) CountsSince(ctx context.Context, since time.Time) ([]domain.KindCount, error) {
	return s.query.CountsSince(ctx, since)
}

// Flush waits for every in-flight Record to settle
func (s *Service) Flush() { s.wg.Wait() }
