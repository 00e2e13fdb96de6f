// Package cleanse masks configured words in user submitted text.
// Matching is word-bounded and folds case, width, and compatibility forms so
// decorated variants of a listed word still match
package cleanse

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Mask replaces every masked word entirely
const Mask = "****"

// pool of fresh transformer chains, order matters
var chainPool = sync.Pool{
	New: func() any {
		return transform.Chain(
			norm.NFKC,
			cases.Fold(), // unicode case folding
			width.Fold,   // map fullwidth forms to ASCII
		)
	},
}

// fold normalizes a token for comparison
func fold(s string) string {
	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		return strings.ToLower(s)
	}
	return out
}

// Cleanser masks a fixed word list
type Cleanser struct {
	words map[string]struct{}
}

// defaultWords mirrors the moderation list the board ships with
var defaultWords = []string{
	"hate", "stupid", "idiot", "kill", "die", "ugly", "dumb", "loser",
}

// New builds a Cleanser over words, nil words uses the default list
func New(words []string) *Cleanser {
	if words == nil {
		words = defaultWords
	}
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			continue
		}
		set[fold(w)] = struct{}{}
	}
	return &Cleanser{words: set}
}

// Clean returns s with every listed word replaced by Mask.
// Word boundaries are any non letter, non digit runes; punctuation and
// spacing around a masked word is preserved
func (c *Cleanser) Clean(s string) string {
	if s == "" || len(c.words) == 0 {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))

	flushWord := func(word []rune) {
		if len(word) == 0 {
			return
		}
		tok := string(word)
		if _, hit := c.words[fold(tok)]; hit {
			b.WriteString(Mask)
			return
		}
		b.WriteString(tok)
	}

	var word []rune
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			word = append(word, r)
			continue
		}
		flushWord(word)
		word = word[:0]
		b.WriteRune(r)
	}
	flushWord(word)

	return b.String()
}
