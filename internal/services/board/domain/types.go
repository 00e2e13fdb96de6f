// Package domain defines the whisper board types and ports
package domain

import (
	"hush/internal/core/placement"
)

// Moods is the fixed palette a whisper can carry
var Moods = []string{"none", "peace", "happy", "love", "excited", "sad"}

// ValidMood reports whether m is in the palette; empty means none
func ValidMood(m string) bool {
	if m == "" {
		return true
	}
	for _, k := range Moods {
		if m == k {
			return true
		}
	}
	return false
}

// DefaultDisplayName replaces a blank display name
const DefaultDisplayName = "Anonymous"

// Reply is one entry in a whisper's append-only reply sequence.
// Immutable once created except for Loves
type Reply struct {
	ID             string `json:"id"`
	WhisperID      string `json:"whisper_id"`
	AuthorIdentity string `json:"author_identity"`
	Text           string `json:"text"`
	ImageData      string `json:"image_data,omitempty"`
	Loves          int    `json:"loves"`
	Seq            int64  `json:"seq"`
}

// Whisper is the board document. Position and CreatedAt are set once at
// creation; Loves and Reports only move through atomic remote increments
type Whisper struct {
	ID            string             `json:"id"`
	Text          string             `json:"text"`
	DisplayName   string             `json:"display_name"`
	Mood          string             `json:"mood,omitempty"`
	ImageData     string             `json:"image_data,omitempty"`
	OwnerIdentity string             `json:"owner_identity"`
	Position      placement.Position `json:"position"`
	Loves         int                `json:"loves"`
	Reports       int                `json:"reports"`
	Location      string             `json:"location,omitempty"`
	CreatedAt     int64              `json:"created_at"`
	Replies       []Reply            `json:"replies"`
}

// Draft is an unpublished whisper
type Draft struct {
	Text        string   `json:"text" validate:"required,min=1,max=280"`
	DisplayName string   `json:"display_name" validate:"max=40"`
	Mood        string   `json:"mood" validate:"max=16"`
	ImageData   string   `json:"image_data"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

// LocationCount is one leaderboard row
type LocationCount struct {
	Location string `json:"location"`
	Count    int    `json:"count"`
}
