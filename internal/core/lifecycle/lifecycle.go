// Package lifecycle holds the whisper TTL arithmetic and visibility rules
package lifecycle

import "time"

const (
	// TTL is the fixed whisper lifetime from creation
	TTL = 24 * time.Hour

	// ReportThreshold hides a whisper from the public feed once reached
	ReportThreshold = 3
)

// Bucket classifies how much lifetime a whisper has left
type Bucket int

const (
	// Expired means now is at or past createdAt+TTL
	Expired Bucket = iota
	// LessThanHour means under one whole hour remains
	LessThanHour
	// HoursLeft means Remaining.Hours whole hours remain
	HoursLeft
)

// Remaining is the result of TimeLeft
type Remaining struct {
	Bucket Bucket
	Hours  int
}

// TimeLeft computes the lifetime bucket for a whisper created at
// createdAt (epoch milliseconds) as observed at now
func TimeLeft(createdAt int64, now time.Time) Remaining {
	expiresAt := createdAt + TTL.Milliseconds()
	nowMs := now.UnixMilli()
	if nowMs >= expiresAt {
		return Remaining{Bucket: Expired}
	}
	hours := (expiresAt - nowMs) / time.Hour.Milliseconds()
	if hours < 1 {
		return Remaining{Bucket: LessThanHour}
	}
	return Remaining{Bucket: HoursLeft, Hours: int(hours)}
}

// IsExpired reports whether the whisper crossed its expiry boundary
func IsExpired(createdAt int64, now time.Time) bool {
	return TimeLeft(createdAt, now).Bucket == Expired
}

// IsVisible applies the public feed predicate: inside TTL and under the
// moderation threshold. Expiry is a view predicate, not a deletion
func IsVisible(createdAt int64, reports int, now time.Time) bool {
	return !IsExpired(createdAt, now) && reports < ReportThreshold
}
