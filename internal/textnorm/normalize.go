package textnorm

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	nonAlnumRe      = regexp.MustCompile(`[^a-z0-9]+`)
	whitespaceRe    = regexp.MustCompile(`\s+`)
)

// NormalizeWhitespace collapses runs of whitespace to a single space
// and trims both ends.
func NormalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// ConceptKey derives the duplicate-grouping key for a title: lowercase,
// parentheticals removed, pack-size markers and "prompt"/"prompts"
// tokens stripped, punctuation folded to spaces. Collisions between
// cosmetically different listings are the point, not a defect.
//
// The function only strips; callers substitute a fallback such as
// "untitled" for empty titles before calling.
func ConceptKey(title string, vocab Vocabulary) string {
	s := strings.ToLower(title)
	s = parentheticalRe.ReplaceAllString(s, " ")
	s = nonAlnumRe.ReplaceAllString(s, " ")

	markers := make(map[string]bool, len(vocab.CountMarkers))
	for _, m := range vocab.CountMarkers {
		markers[strconv.Itoa(m)] = true
	}

	var kept []string
	for _, tok := range strings.Fields(s) {
		if tok == "prompt" || tok == "prompts" || markers[tok] {
			continue
		}
		kept = append(kept, tok)
	}

	return strings.Join(kept, " ")
}

// LooksLikePlaceholderCover reports whether a cover image URL is absent
// or points at a known stand-in image. A heuristic: false negatives are
// acceptable, false positives should be rare.
func LooksLikePlaceholderCover(url string, vocab Vocabulary) bool {
	url = strings.ToLower(strings.TrimSpace(url))
	if url == "" {
		return true
	}

	for _, marker := range vocab.PlaceholderMarkers {
		if strings.Contains(url, marker) {
			return true
		}
	}

	if strings.Contains(url, "placeholder") {
		for _, host := range vocab.CDNHosts {
			if strings.Contains(url, host) {
				return true
			}
		}
	}

	return false
}

// ContainsBannedClaims scans text for banned marketing phrases,
// case-insensitively, returning every match in vocabulary order.
func ContainsBannedClaims(text string, vocab Vocabulary) []string {
	lower := strings.ToLower(text)

	var matches []string
	for _, phrase := range vocab.BannedPhrases {
		if strings.Contains(lower, strings.ToLower(phrase)) {
			matches = append(matches, phrase)
		}
	}
	return matches
}
