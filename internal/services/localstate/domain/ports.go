package domain

import "context"

// IdentityPort issues and persists the device-stable anonymous token
type IdentityPort interface {
	GetOrCreateIdentity(ctx context.Context) (string, error)
}

// LedgerPort mediates every per-identity interaction memory.
// All mutators are write-through; state survives a crash between the local
// toggle and the remote acknowledgment
type LedgerPort interface {
	IsLiked(identity, whisperID string) bool
	ToggleLike(identity, whisperID string) bool
	IsReported(identity, whisperID string) bool
	MarkReported(identity, whisperID string) bool
	IsReplyLiked(identity, replyID string) bool
	ToggleReplyLike(identity, replyID string) bool
	LastSeen(identity, whisperID string) int
	SetLastSeen(identity, whisperID string, n int)
	ClearWhisper(identity, whisperID string)
}
