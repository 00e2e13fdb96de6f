package domain

import "context"

// StoragePort is the remote board store surface the service mutates through.
// Counter moves are atomic increments, never whole-document rewrites
type StoragePort interface {
	Snapshot(ctx context.Context) ([]Whisper, error)
	Insert(ctx context.Context, w Whisper) error
	Delete(ctx context.Context, whisperID string) error
	IncrementLove(ctx context.Context, whisperID string, delta int) error
	IncrementReport(ctx context.Context, whisperID string) error
	InsertReply(ctx context.Context, r Reply) error
	IncrementReplyLove(ctx context.Context, whisperID, replyID string, delta int) error
}

// EnginePort is the board engine surface consumed by the transport layer
type EnginePort interface {
	Feed(ctx context.Context, identity string, page int) (Feed, error)
	Publish(ctx context.Context, identity string, d Draft) (Whisper, error)
	DeleteOwn(ctx context.Context, identity string) error
	Like(ctx context.Context, identity, whisperID string) (bool, error)
	Report(ctx context.Context, identity, whisperID string) error
	Reply(ctx context.Context, identity, whisperID, text, imageData string) error
	LikeReply(ctx context.Context, identity, whisperID, replyID string) (bool, error)
	MarkRead(ctx context.Context, identity string) error
}

// Feed is one presentation slice of the board
type Feed struct {
	Whispers    []Whisper       `json:"whispers"`
	Page        int             `json:"page"`
	PageCount   int             `json:"page_count"`
	Total       int             `json:"total"`
	Own         *Whisper        `json:"own,omitempty"`
	Unread      int             `json:"unread"`
	CanPublish  bool            `json:"can_publish"`
	Leaderboard []LocationCount `json:"leaderboard"`
}
