// Package extractor finds candidate API keys in free-form pasted text.
package extractor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Pattern describes a key as a fixed prefix followed by a run of
// [0-9A-Za-z_-] characters.
type Pattern struct {
	Prefix    string
	MinLength int
	// MaxLength bounds the trailing run. 0 means no upper bound.
	MaxLength int
}

// DefaultPattern matches Google API keys as issued for Gemini.
var DefaultPattern = Pattern{Prefix: "AIzaSy", MinLength: 33, MaxLength: 33}

// Extractor splits text into segments and collects the distinct keys found in them.
type Extractor struct {
	re *regexp.Regexp
}

var separators = regexp.MustCompile(`[;,:\n]+`)

// New compiles the pattern into an Extractor.
func New(p Pattern) (*Extractor, error) {
	if p.Prefix == "" {
		return nil, fmt.Errorf("extractor: empty key prefix")
	}
	if p.MinLength < 1 {
		return nil, fmt.Errorf("extractor: min length must be positive, got %d", p.MinLength)
	}
	if p.MaxLength != 0 && p.MaxLength < p.MinLength {
		return nil, fmt.Errorf("extractor: max length %d below min length %d", p.MaxLength, p.MinLength)
	}

	var quantifier string
	switch {
	case p.MaxLength == p.MinLength:
		quantifier = fmt.Sprintf("{%d}", p.MinLength)
	case p.MaxLength == 0:
		quantifier = fmt.Sprintf("{%d,}", p.MinLength)
	default:
		quantifier = fmt.Sprintf("{%d,%d}", p.MinLength, p.MaxLength)
	}
	re, err := regexp.Compile(regexp.QuoteMeta(p.Prefix) + `[0-9A-Za-z_-]` + quantifier)
	if err != nil {
		return nil, fmt.Errorf("extractor: compile pattern: %w", err)
	}
	return &Extractor{re: re}, nil
}

// MustNew is like New but panics on an invalid pattern.
func MustNew(p Pattern) *Extractor {
	e, err := New(p)
	if err != nil {
		panic(err)
	}
	return e
}

// Extract returns the distinct keys in text in the order they first appear.
// Whitespace inside a segment is ignored, so a key wrapped across lines by a
// space or tab is still found. A text without keys yields an empty slice.
func (e *Extractor) Extract(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")

	keys := []string{}
	seen := make(map[string]struct{})
	for _, segment := range separators.Split(text, -1) {
		cleaned := stripSpace(segment)
		if cleaned == "" {
			continue
		}
		match := e.re.FindString(cleaned)
		if match == "" {
			continue
		}
		if _, dup := seen[match]; dup {
			continue
		}
		seen[match] = struct{}{}
		keys = append(keys, match)
	}
	return keys
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
