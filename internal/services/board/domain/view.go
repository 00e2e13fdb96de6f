package domain

import (
	"time"

	"hush/internal/core/lifecycle"
)

// PageSize is the fixed batch size for the paged feed
const PageSize = 6

// locationSentinels are labels that mean "location unknown/unresolved" and
// never reach the leaderboard
var locationSentinels = map[string]struct{}{
	"":         {},
	"Earth":    {},
	"Locating": {},
}

// Visible filters ws by the lifecycle predicate, preserving order
func Visible(ws []Whisper, now time.Time) []Whisper {
	out := make([]Whisper, 0, len(ws))
	for _, w := range ws {
		if lifecycle.IsVisible(w.CreatedAt, w.Reports, now) {
			out = append(out, w)
		}
	}
	return out
}

// FindOwn returns the first whisper owned by identity, independent of the
// visibility filter. An owner can always reach their own whisper even when it
// is hidden from the public feed
func FindOwn(ws []Whisper, identity string) (Whisper, bool) {
	if identity == "" {
		return Whisper{}, false
	}
	for _, w := range ws {
		if w.OwnerIdentity == identity {
			return w, true
		}
	}
	return Whisper{}, false
}

// CanPublish reports whether identity owns no whisper in ws
func CanPublish(ws []Whisper, identity string) bool {
	_, owns := FindOwn(ws, identity)
	return !owns
}

// PageCount returns the number of pages over n visible whispers
func PageCount(n int) int {
	if n <= 0 {
		return 0
	}
	return (n + PageSize - 1) / PageSize
}

// ClampPage forces idx into [0, PageCount(n)-1]; 0 when there are no pages
func ClampPage(idx, n int) int {
	pages := PageCount(n)
	if pages == 0 {
		return 0
	}
	if idx < 0 {
		return 0
	}
	if idx >= pages {
		return pages - 1
	}
	return idx
}

// Page slices one batch of visible, idx must already be clamped
func Page(visible []Whisper, idx int) []Whisper {
	start := idx * PageSize
	if start >= len(visible) {
		return nil
	}
	end := start + PageSize
	if end > len(visible) {
		end = len(visible)
	}
	return visible[start:end]
}

// UnreadCount is the number of replies on the owner's whisper not yet seen
func UnreadCount(own Whisper, lastSeen int) int {
	n := len(own.Replies) - lastSeen
	if n < 0 {
		return 0
	}
	return n
}

// Leaderboard groups visible whispers by location label, excluding sentinel
// labels, sorted by count descending with first-seen order breaking ties,
// truncated to the top 5
func Leaderboard(visible []Whisper) []LocationCount {
	counts := map[string]int{}
	var order []string
	for _, w := range visible {
		if _, sentinel := locationSentinels[w.Location]; sentinel {
			continue
		}
		if _, seen := counts[w.Location]; !seen {
			order = append(order, w.Location)
		}
		counts[w.Location]++
	}

	out := make([]LocationCount, 0, len(order))
	for _, loc := range order {
		out = append(out, LocationCount{Location: loc, Count: counts[loc]})
	}
	// insertion sort keeps the first-seen order stable among equal counts
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Count > out[j-1].Count; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}
