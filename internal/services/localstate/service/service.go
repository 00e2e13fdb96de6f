// Package service implements the identity store and interaction ledger
package service

import (
	"context"
	"sync"

	"hush/internal/platform/logger"
	"hush/internal/services/localstate/domain"

	"github.com/google/uuid"
)

// Storage is the persistence seam the service needs; *repo.KV satisfies it
type Storage interface {
	LoadIdentity() (string, bool, error)
	SaveIdentity(token string) error
	LoadLedger(identity string) (domain.Ledger, error)
	SaveLedger(identity string, l domain.Ledger) error
}

// Service implements domain.IdentityPort and domain.LedgerPort.
// Local persistence failures degrade to memory-only state for the session,
// they are never surfaced as fatal
type Service struct {
	storage Storage
	log     logger.Logger

	mu sync.Mutex
	// ephemeral holds the session identity when SaveIdentity failed
	ephemeral string
	ledgers   map[string]*domain.Ledger

	newToken func() string // seam
}

var _ domain.IdentityPort = (*Service)(nil)
var _ domain.LedgerPort = (*Service)(nil)

// New constructs the localstate service over a repo
func New(storage Storage) *Service {
	return &Service{
		storage:  storage,
		log:      *logger.Named("localstate"),
		ledgers:  map[string]*domain.Ledger{},
		newToken: func() string { return "usr_" + uuid.NewString() },
	}
}

// NewWith is New with an injected storage and token source, for tests
func NewWith(storage Storage, newToken func() string) *Service {
	s := New(storage)
	if newToken != nil {
		s.newToken = newToken
	}
	return s
}

// GetOrCreateIdentity implements domain.IdentityPort
func (s *Service) GetOrCreateIdentity(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ephemeral != "" {
		return s.ephemeral, nil
	}
	tok, ok, err := s.storage.LoadIdentity()
	if err == nil && ok {
		return tok, nil
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("identity load failed, using ephemeral token")
	}

	tok = s.newToken()
	if err == nil {
		if serr := s.storage.SaveIdentity(tok); serr != nil {
			s.log.Warn().Err(serr).Msg("identity persist failed, token is session-only")
			s.ephemeral = tok
		}
		return tok, nil
	}
	s.ephemeral = tok
	return tok, nil
}

// ledger returns the cached ledger for identity, loading it on first use
// caller must hold mu
func (s *Service) ledger(identity string) *domain.Ledger {
	if l, ok := s.ledgers[identity]; ok {
		return l
	}
	l, err := s.storage.LoadLedger(identity)
	if err != nil {
		s.log.Warn().Err(err).Str("identity", identity).Msg("ledger load failed, starting empty")
	}
	// a Storage may hand back the zero Ledger, the cache must never hold nil maps
	l.Normalize()
	s.ledgers[identity] = &l
	return &l
}

// persist writes the whole ledger through; failure degrades to memory-only
// caller must hold mu
func (s *Service) persist(identity string) {
	if err := s.storage.SaveLedger(identity, *s.ledgers[identity]); err != nil {
		s.log.Warn().Err(err).Str("identity", identity).Msg("ledger persist failed, state is memory-only")
	}
}

// IsLiked implements domain.LedgerPort
func (s *Service) IsLiked(identity, whisperID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger(identity).LikedWhispers[whisperID]
}

// ToggleLike flips the like bit and returns the new state
func (s *Service) ToggleLike(identity, whisperID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger(identity)
	if l.LikedWhispers[whisperID] {
		delete(l.LikedWhispers, whisperID)
	} else {
		l.LikedWhispers[whisperID] = true
	}
	s.persist(identity)
	return l.LikedWhispers[whisperID]
}

// IsReported implements domain.LedgerPort
func (s *Service) IsReported(identity, whisperID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger(identity).ReportedWhispers[whisperID]
}

// MarkReported records the report, returning false when already reported.
// The ledger check is the only dedup mechanism, reports carry no remote
// per-actor attribution
func (s *Service) MarkReported(identity, whisperID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger(identity)
	if l.ReportedWhispers[whisperID] {
		return false
	}
	l.ReportedWhispers[whisperID] = true
	s.persist(identity)
	return true
}

// IsReplyLiked implements domain.LedgerPort
func (s *Service) IsReplyLiked(identity, replyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger(identity).LikedReplies[replyID]
}

// ToggleReplyLike flips the reply like bit and returns the new state
func (s *Service) ToggleReplyLike(identity, replyID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger(identity)
	if l.LikedReplies[replyID] {
		delete(l.LikedReplies, replyID)
	} else {
		l.LikedReplies[replyID] = true
	}
	s.persist(identity)
	return l.LikedReplies[replyID]
}

// LastSeen returns the last seen reply count for an owned whisper
func (s *Service) LastSeen(identity, whisperID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger(identity).LastSeenReplies[whisperID]
}

// SetLastSeen records the reply count the owner has seen
func (s *Service) SetLastSeen(identity, whisperID string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger(identity)
	l.LastSeenReplies[whisperID] = n
	s.persist(identity)
}

// ClearWhisper drops every ledger entry referencing whisperID, used after
// the owner deletes their whisper
func (s *Service) ClearWhisper(identity, whisperID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.ledger(identity)
	delete(l.LikedWhispers, whisperID)
	delete(l.ReportedWhispers, whisperID)
	delete(l.LastSeenReplies, whisperID)
	s.persist(identity)
}
