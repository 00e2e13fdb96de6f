// Package domain holds engagement event types
package domain

import "time"

// Event is one engagement action taken against the board
type Event struct {
	Kind      string    `json:"kind"`
	Identity  string    `json:"identity"`
	WhisperID string    `json:"whisper_id"`
	ReplyID   string    `json:"reply_id"`
	At        time.Time `json:"at"`
}

// KindCount is one row of the per-kind aggregate
type KindCount struct {
	Kind  string `json:"kind"`
	Count uint64 `json:"count"`
}
