// Package service implements the board synchronization and reconciliation engine
package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"hush/internal/core/cleanse"
	"hush/internal/core/lifecycle"
	"hush/internal/core/placement"
	"hush/internal/modkit/repokit"
	perr "hush/internal/platform/errors"
	"hush/internal/platform/logger"
	"hush/internal/platform/store"
	"hush/internal/services/board/domain"
	"hush/internal/services/board/repo"
	lsdom "hush/internal/services/localstate/domain"

	"github.com/google/uuid"
)

// Geocoder resolves coordinates to a place label, best effort
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) string
}

// EventSink records engagement events, best effort
type EventSink interface {
	Record(ctx context.Context, kind, identity, whisperID, replyID string)
}

// Options carries the optional collaborators
type Options struct {
	Notifier store.Notifier
	Geo      Geocoder
	Sink     EventSink
	Words    []string // profanity list override, nil uses the default
}

// Service owns the canonical whisper list. The list is fed exclusively by
// full snapshot re-queries (on change notifications and after own mutations);
// no component mutates it in place
type Service struct {
	db       repokit.TxRunner
	binder   repokit.Binder[domain.StoragePort]
	ledger   lsdom.LedgerPort
	notifier store.Notifier
	geo      Geocoder
	sink     EventSink
	cleanser *cleanse.Cleanser
	log      logger.Logger

	mu        sync.RWMutex
	canonical []domain.Whisper

	// gateMu serializes likes and reports per (identity, target) pair; a
	// second call while one is pending is rejected, not queued
	gateMu   sync.Mutex
	inflight map[string]struct{}

	rngMu sync.Mutex
	rng   placement.Rand

	now   func() time.Time // seam
	newID func() string    // seam
}

var _ domain.EnginePort = (*Service)(nil)

// New constructs the board service
func New(db repokit.TxRunner, binder repokit.Binder[domain.StoragePort], ledger lsdom.LedgerPort, opts Options) *Service {
	return &Service{
		db:       db,
		binder:   binder,
		ledger:   ledger,
		notifier: opts.Notifier,
		geo:      opts.Geo,
		sink:     opts.Sink,
		cleanser: cleanse.New(opts.Words),
		log:      *logger.Named("board"),
		inflight: map[string]struct{}{},
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

func (s *Service) storage() domain.StoragePort { return repokit.MustBind(s.binder, s.db) }

// Start loads the initial snapshot and follows change notifications until ctx
// is cancelled. Teardown is deterministic: once ctx is done no further
// snapshot replacements happen through this loop
func (s *Service) Start(ctx context.Context) error {
	s.refresh(ctx)
	if s.notifier == nil {
		return nil
	}
	go s.follow(ctx)
	return nil
}

func (s *Service) follow(ctx context.Context) {
	for ctx.Err() == nil {
		err := s.notifier.Listen(ctx, repo.NotifyChannel, func(string) {
			s.refresh(ctx)
		})
		if ctx.Err() != nil {
			return
		}
		s.log.Warn().Err(err).Msg("board feed dropped, reconnecting")
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// refresh re-queries the full snapshot and replaces the canonical list.
// The whisper and reply reads run in one transaction so the snapshot is
// internally consistent. Failures keep the previous snapshot; the next
// notification tries again
func (s *Service) refresh(ctx context.Context) {
	var snap []domain.Whisper
	err := repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		var err error
		snap, err = s.binder.Bind(q).Snapshot(ctx)
		return err
	})
	if err != nil {
		s.log.Warn().Err(err).Msg("snapshot refresh failed")
		return
	}
	s.mu.Lock()
	s.canonical = snap
	s.mu.Unlock()
}

// Canonical returns a copy of the canonical whisper list
func (s *Service) Canonical() []domain.Whisper {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Whisper, len(s.canonical))
	copy(out, s.canonical)
	return out
}

// acquire claims the per-(identity, target) gate or fails with Conflict
func (s *Service) acquire(identity, target string) (func(), error) {
	key := identity + "|" + target
	s.gateMu.Lock()
	defer s.gateMu.Unlock()
	if _, busy := s.inflight[key]; busy {
		return nil, perr.Conflictf("a change for this whisper is already in flight")
	}
	s.inflight[key] = struct{}{}
	return func() {
		s.gateMu.Lock()
		delete(s.inflight, key)
		s.gateMu.Unlock()
	}, nil
}

func (s *Service) record(ctx context.Context, kind, identity, whisperID, replyID string) {
	if s.sink == nil {
		return
	}
	s.sink.Record(ctx, kind, identity, whisperID, replyID)
}

// Feed derives one presentation slice of the board for identity
func (s *Service) Feed(_ context.Context, identity string, page int) (domain.Feed, error) {
	ws := s.Canonical()
	now := s.now()
	visible := domain.Visible(ws, now)
	page = domain.ClampPage(page, len(visible))

	f := domain.Feed{
		Whispers:    domain.Page(visible, page),
		Page:        page,
		PageCount:   domain.PageCount(len(visible)),
		Total:       len(visible),
		CanPublish:  domain.CanPublish(ws, identity),
		Leaderboard: domain.Leaderboard(visible),
	}
	if own, ok := domain.FindOwn(ws, identity); ok {
		f.Own = &own
		f.Unread = domain.UnreadCount(own, s.ledger.LastSeen(identity, own.ID))
	}
	return f, nil
}

// MarkRead records that the owner has seen every reply on their whisper
func (s *Service) MarkRead(_ context.Context, identity string) error {
	if own, ok := domain.FindOwn(s.Canonical(), identity); ok {
		s.ledger.SetLastSeen(identity, own.ID, len(own.Replies))
	}
	return nil
}

// Publish creates the identity's whisper. One live whisper per identity; the
// gate is a pre-check against the canonical list, not a store constraint
func (s *Service) Publish(ctx context.Context, identity string, d domain.Draft) (domain.Whisper, error) {
	text := strings.TrimSpace(d.Text)
	if text == "" {
		return domain.Whisper{}, perr.Validationf("whisper text is required")
	}
	if !domain.ValidMood(d.Mood) {
		return domain.Whisper{}, perr.InvalidArgf("unknown mood %q", d.Mood)
	}

	canonical := s.Canonical()
	if !domain.CanPublish(canonical, identity) {
		return domain.Whisper{}, perr.RateLimitedf("you already have a live whisper")
	}

	name := strings.TrimSpace(d.DisplayName)
	if name == "" {
		name = domain.DefaultDisplayName
	}

	location := ""
	if d.Lat != nil && d.Lon != nil && s.geo != nil {
		location = s.geo.Reverse(ctx, *d.Lat, *d.Lon)
	}

	// place over ALL canonical positions, not just visible ones, so new
	// whispers do not overlap expired-but-undeleted ones
	existing := make([]placement.Position, 0, len(canonical))
	for _, w := range canonical {
		existing = append(existing, w.Position)
	}
	s.rngMu.Lock()
	pos := placement.Place(s.rng, existing)
	s.rngMu.Unlock()

	w := domain.Whisper{
		ID:            s.newID(),
		Text:          s.cleanser.Clean(text),
		DisplayName:   s.cleanser.Clean(name),
		Mood:          d.Mood,
		ImageData:     d.ImageData,
		OwnerIdentity: identity,
		Position:      pos,
		Location:      location,
		CreatedAt:     s.now().UnixMilli(),
		Replies:       []domain.Reply{},
	}

	if err := s.storage().Insert(ctx, w); err != nil {
		return domain.Whisper{}, err
	}
	s.ledger.SetLastSeen(identity, w.ID, 0)
	s.record(ctx, "publish", identity, w.ID, "")
	s.refresh(ctx)
	return w, nil
}

// DeleteOwn removes the identity's whisper; having none is a no-op success
func (s *Service) DeleteOwn(ctx context.Context, identity string) error {
	own, ok := domain.FindOwn(s.Canonical(), identity)
	if !ok {
		return nil
	}
	if err := s.storage().Delete(ctx, own.ID); err != nil {
		return err
	}
	s.ledger.ClearWhisper(identity, own.ID)
	s.record(ctx, "delete", identity, own.ID, "")
	s.refresh(ctx)
	return nil
}

// Like toggles the identity's love on a whisper and sends the matching signed
// atomic delta. The ledger flips first; the flip is rolled back only when the
// send itself failed and once sent the next snapshot is the arbiter
func (s *Service) Like(ctx context.Context, identity, whisperID string) (bool, error) {
	w, found := findWhisper(s.Canonical(), whisperID)
	if !found {
		return false, perr.NotFoundf("whisper %s is gone", whisperID)
	}
	if w.OwnerIdentity == identity {
		return false, perr.InvalidArgf("you cannot love your own whisper")
	}

	release, err := s.acquire(identity, whisperID)
	if err != nil {
		return s.ledger.IsLiked(identity, whisperID), err
	}
	defer release()

	nowOn := s.ledger.ToggleLike(identity, whisperID)
	delta := -1
	kind := "unlike"
	if nowOn {
		delta = +1
		kind = "like"
	}
	if err := s.storage().IncrementLove(ctx, whisperID, delta); err != nil {
		// the delta never went out, undo the optimistic flip
		s.ledger.ToggleLike(identity, whisperID)
		return !nowOn, err
	}
	s.record(ctx, kind, identity, whisperID, "")
	s.refresh(ctx)
	return nowOn, nil
}

// Report sends one moderation signal per identity per whisper. The ledger is
// marked only after the increment went out, so a failed send can be retried
func (s *Service) Report(ctx context.Context, identity, whisperID string) error {
	if s.ledger.IsReported(identity, whisperID) {
		return nil
	}
	release, err := s.acquire(identity, whisperID)
	if err != nil {
		return err
	}
	defer release()

	// re-check under the gate: a competing call for the same pair may have
	// reported in the window between the fast-path check and acquire
	if s.ledger.IsReported(identity, whisperID) {
		return nil
	}

	if err := s.storage().IncrementReport(ctx, whisperID); err != nil {
		return err
	}
	s.ledger.MarkReported(identity, whisperID)
	s.record(ctx, "report", identity, whisperID, "")
	s.refresh(ctx)
	return nil
}

// Reply appends to a whisper's reply sequence. A vanished whisper drops the
// reply silently; duplicate submissions create duplicate replies, the caller
// debounces
func (s *Service) Reply(ctx context.Context, identity, whisperID, text, imageData string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return perr.Validationf("reply text is required")
	}
	rep := domain.Reply{
		ID:             s.newID(),
		WhisperID:      whisperID,
		AuthorIdentity: identity,
		Text:           s.cleanser.Clean(text),
		ImageData:      imageData,
	}
	if err := s.storage().InsertReply(ctx, rep); err != nil {
		return err
	}
	s.record(ctx, "reply", identity, whisperID, rep.ID)
	s.refresh(ctx)
	return nil
}

// LikeReply toggles the identity's love on one reply through a per-reply
// atomic counter, so concurrent likers never clobber each other
func (s *Service) LikeReply(ctx context.Context, identity, whisperID, replyID string) (bool, error) {
	w, found := findWhisper(s.Canonical(), whisperID)
	if !found || !hasReply(w, replyID) {
		// vanished target drops silently
		return s.ledger.IsReplyLiked(identity, replyID), nil
	}

	release, err := s.acquire(identity, replyID)
	if err != nil {
		return s.ledger.IsReplyLiked(identity, replyID), err
	}
	defer release()

	nowOn := s.ledger.ToggleReplyLike(identity, replyID)
	delta := -1
	kind := "reply_unlike"
	if nowOn {
		delta = +1
		kind = "reply_like"
	}
	if err := s.storage().IncrementReplyLove(ctx, whisperID, replyID, delta); err != nil {
		s.ledger.ToggleReplyLike(identity, replyID)
		return !nowOn, err
	}
	s.record(ctx, kind, identity, whisperID, replyID)
	s.refresh(ctx)
	return nowOn, nil
}

// TimeLeft reports the lifetime bucket of a whisper as of now
func (s *Service) TimeLeft(w domain.Whisper) lifecycle.Remaining {
	return lifecycle.TimeLeft(w.CreatedAt, s.now())
}

func findWhisper(ws []domain.Whisper, id string) (domain.Whisper, bool) {
	for _, w := range ws {
		if w.ID == id {
			return w, true
		}
	}
	return domain.Whisper{}, false
}

func hasReply(w domain.Whisper, replyID string) bool {
	for _, r := range w.Replies {
		if r.ID == replyID {
			return true
		}
	}
	return false
}
