// Package domain defines the types and ports for local per-identity state
package domain

// Ledger is the per-identity record of this participant's own actions.
// The remote counters carry no per-actor attribution, so the ledger is the
// only place that remembers "did I already like/report this"
type Ledger struct {
	LikedWhispers    map[string]bool `json:"liked_whispers"`
	LikedReplies     map[string]bool `json:"liked_replies"`
	ReportedWhispers map[string]bool `json:"reported_whispers"`
	LastSeenReplies  map[string]int  `json:"last_seen_replies"`
}

// NewLedger returns an empty ledger with all maps allocated
func NewLedger() Ledger {
	return Ledger{
		LikedWhispers:    map[string]bool{},
		LikedReplies:     map[string]bool{},
		ReportedWhispers: map[string]bool{},
		LastSeenReplies:  map[string]int{},
	}
}

// Normalize allocates any nil maps after JSON decoding
func (l *Ledger) Normalize() {
	if l.LikedWhispers == nil {
		l.LikedWhispers = map[string]bool{}
	}
	if l.LikedReplies == nil {
		l.LikedReplies = map[string]bool{}
	}
	if l.ReportedWhispers == nil {
		l.ReportedWhispers = map[string]bool{}
	}
	if l.LastSeenReplies == nil {
		l.LastSeenReplies = map[string]int{}
	}
}
