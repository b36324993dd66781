package service

import (
	"fmt"
	"regexp"
	"unicode"

	apperrors "medcircle/internal/errors"
)

// bannedWords are rejected as whole words, case-insensitively.
var bannedWords = []string{
	"fuck", "fucking", "fucker", "shit", "shitty", "bullshit",
	"asshole", "bastard", "bitch", "cunt",
	"nigger", "nigga", "chink", "spic", "kike", "faggot", "fag",
	"retard", "retarded", "tranny",
}

// ContentFilter screens user text before it is stored.
type ContentFilter interface {
	Check(text string) error
}

// WordFilter rejects profanity, slurs and character-flood spam.
// Links and clinical vocabulary are allowed on purpose for a health community.
type WordFilter struct {
	banned []*regexp.Regexp
}

// floodRun is how many identical letters in a row count as spam.
// Whitespace, digits and punctuation never count, so indentation and rule lines pass.
const floodRun = 10

// NewWordFilter compiles the banned word list.
func NewWordFilter() *WordFilter {
	f := &WordFilter{
		banned: make([]*regexp.Regexp, 0, len(bannedWords)),
	}
	for _, word := range bannedWords {
		f.banned = append(f.banned, regexp.MustCompile(`(?i)\b`+regexp.QuoteMeta(word)+`\b`))
	}
	return f
}

// Check returns ErrContentRejected with a reason when the text is not acceptable.
func (f *WordFilter) Check(text string) error {
	for _, re := range f.banned {
		if re.MatchString(text) {
			return fmt.Errorf("%w: inappropriate language", apperrors.ErrContentRejected)
		}
	}
	if hasRun(text, floodRun) {
		return fmt.Errorf("%w: looks like spam", apperrors.ErrContentRejected)
	}
	return nil
}

func hasRun(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			prev, run = 0, 0
			continue
		}
		r = unicode.ToLower(r)
		if r == prev {
			run++
		} else {
			prev, run = r, 1
		}
		if run >= n {
			return true
		}
	}
	return false
}
