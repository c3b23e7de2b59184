// Package fuzzy holds the cache of visited directories used for predictive
// jumps and ranks it against abbreviated queries by edit distance.
package fuzzy

import (
	"fmt"
	"slices"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	shellserver "github.com/Paranoid-AF/shellserver"
)

// PlaceholderScore is the score given to entries before their first ranking pass.
const PlaceholderScore = 20

// Entry is one cached directory.
type Entry struct {
	Score int
	// Key is the last path segment, the text the query is matched against.
	Key  string
	Path string
}

// NewEntry builds an entry for fullPath with the placeholder score.
func NewEntry(fullPath string) Entry {
	return Entry{Score: PlaceholderScore, Key: ShortKey(fullPath), Path: fullPath}
}

// ShortKey returns the text after the last path separator, or fullPath
// itself when that text is empty (drive roots, trailing separators).
func ShortKey(fullPath string) string {
	key := fullPath[strings.LastIndexAny(fullPath, `\/`)+1:]
	if key == "" {
		return fullPath
	}
	return key
}

// Distance returns the optimal string alignment Damerau-Levenshtein
// distance between s and t. Insertions, deletions, substitutions and
// transpositions of adjacent runes each cost 1.
func Distance(s, t string) int {
	a, b := []rune(s), []rune(t)
	height, width := len(a)+1, len(b)+1

	matrix := make([][]int, height)
	for i := range matrix {
		matrix[i] = make([]int, width)
		matrix[i][0] = i
	}
	for j := 0; j < width; j++ {
		matrix[0][j] = j
	}

	for i := 1; i < height; i++ {
		for j := 1; j < width; j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d := min(
				matrix[i][j-1]+1,      // insertion
				matrix[i-1][j]+1,      // deletion
				matrix[i-1][j-1]+cost, // substitution
			)
			if i > 1 && j > 1 && a[i-1] == b[j-2] && a[i-2] == b[j-1] {
				d = min(d, matrix[i-2][j-2]+1)
			}
			matrix[i][j] = d
		}
	}

	return matrix[height-1][width-1]
}

// CaseSensitive reports whether query selects case-sensitive matching,
// which happens as soon as it contains an uppercase letter.
func CaseSensitive(query string) bool {
	for _, r := range query {
		if unicode.IsUpper(r) {
			return true
		}
	}
	return false
}

// Score returns the distance between query and key under the smart case policy.
func Score(query, key string) int {
	if !CaseSensitive(query) {
		key = cases.Lower(language.Und).String(key)
	}
	return Distance(query, key)
}

// Rank returns a copy of entries with every score recomputed against
// query, stable-sorted by ascending score.
func Rank(query string, entries []Entry) []Entry {
	sensitive := CaseSensitive(query)
	// Casers carry state, so each pass gets its own.
	lower := cases.Lower(language.Und)

	ranked := make([]Entry, len(entries))
	for i, e := range entries {
		key := e.Key
		if !sensitive {
			key = lower.String(key)
		}
		e.Score = Distance(query, key)
		ranked[i] = e
	}

	slices.SortStableFunc(ranked, func(x, y Entry) int {
		return x.Score - y.Score
	})
	return ranked
}

// Select ranks entries and returns every entry tied at the best score,
// in cache order.
func Select(query string, entries []Entry) ([]Entry, error) {
	return SelectWithin(query, entries, 0)
}

// SelectWithin ranks entries and returns those scoring at most slack
// above the best score.
func SelectWithin(query string, entries []Entry, slack int) ([]Entry, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("rank %q: %w", query, shellserver.ErrEmptyCache)
	}

	ranked := Rank(query, entries)
	threshold := ranked[0].Score + slack

	n := 0
	for n < len(ranked) && ranked[n].Score <= threshold {
		n++
	}
	return ranked[:n], nil
}

// RenderSuggestion appends path to line, quoting it when it contains a space.
func RenderSuggestion(line, path string) string {
	if strings.Contains(path, " ") {
		path = `"` + path + `"`
	}
	return line + " " + path
}
