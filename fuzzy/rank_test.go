package fuzzy

import (
	"errors"
	"math/rand"
	"testing"

	shellserver "github.com/Paranoid-AF/shellserver"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		s, t     string
		expected int
	}{
		{"", "", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abc", 0},
		{"ab", "ba", 1},
		{"abcd", "acbd", 1},
		{"kitten", "sitting", 3},
		{"ca", "abc", 3},
		{"docs", "Documents", 6},
		{"proj", "projects", 4},
		{"ünï", "üin", 2},
	}

	for _, tt := range tests {
		t.Run(tt.s+"/"+tt.t, func(t *testing.T) {
			if got := Distance(tt.s, tt.t); got != tt.expected {
				t.Errorf("Distance(%q, %q) = %d, expected %d", tt.s, tt.t, got, tt.expected)
			}
		})
	}
}

func TestDistanceProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	alphabet := []rune("abcAB/é")
	randString := func() string {
		n := rng.Intn(8)
		r := make([]rune, n)
		for i := range r {
			r[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return string(r)
	}

	for i := 0; i < 500; i++ {
		s, u := randString(), randString()
		d := Distance(s, u)
		if d != Distance(u, s) {
			t.Fatalf("Distance not symmetric for %q, %q", s, u)
		}
		if Distance(s, s) != 0 {
			t.Fatalf("Distance(%q, %q) != 0", s, s)
		}
		if bound := max(len([]rune(s)), len([]rune(u))); d > bound {
			t.Fatalf("Distance(%q, %q) = %d exceeds %d", s, u, d, bound)
		}
	}
}

func TestTranspositionCostsOne(t *testing.T) {
	if got := Distance("ab", "ba"); got != 1 {
		t.Errorf("expected 1 for adjacent transposition, got %d", got)
	}
}

func TestSmartCase(t *testing.T) {
	if got := Score("abc", "ABC"); got != 0 {
		t.Errorf("lowercase query should match case-insensitively, got %d", got)
	}
	if got := Score("Abc", "abc"); got == 0 {
		t.Error("query with uppercase should match case-sensitively")
	}
	if !CaseSensitive("Ünicode") || CaseSensitive("ünicode") {
		t.Error("CaseSensitive should consider non-ASCII uppercase letters")
	}
}

func TestShortKey(t *testing.T) {
	tests := []struct {
		path, expected string
	}{
		{`C:\Users\me\projects`, "projects"},
		{"/home/me/src", "src"},
		{`C:\`, `C:\`},
		{"/", "/"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := ShortKey(tt.path); got != tt.expected {
			t.Errorf("ShortKey(%q) = %q, expected %q", tt.path, got, tt.expected)
		}
	}
}

func entriesFor(paths ...string) []Entry {
	out := make([]Entry, len(paths))
	for i, p := range paths {
		out[i] = NewEntry(p)
	}
	return out
}

func TestSelectReturnsTiesInCacheOrder(t *testing.T) {
	entries := entriesFor("/x/abcdxyz", "/x/abce", "/y/abcf", "/x/wxyz")

	ranked := Rank("abcd", entries)
	scores := []int{}
	for _, e := range ranked {
		scores = append(scores, e.Score)
	}
	if len(scores) != 4 || scores[0] != 1 || scores[1] != 1 || scores[2] != 3 || scores[3] != 4 {
		t.Fatalf("unexpected ranked scores %v", scores)
	}

	got, err := Select("abcd", entries)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 suggestions, got %d", len(got))
	}
	if got[0].Path != "/x/abce" || got[1].Path != "/y/abcf" {
		t.Errorf("expected ties in insertion order, got %q, %q", got[0].Path, got[1].Path)
	}
}

func TestSelectKeepsDuplicates(t *testing.T) {
	entries := entriesFor("/a/src", "/b/src", "/a/src")
	got, err := Select("src", entries)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("expected duplicates to be kept, got %d entries", len(got))
	}
}

func TestSelectWithinSlack(t *testing.T) {
	entries := entriesFor("/x/abcdxyz", "/x/abce", "/y/abcf", "/x/wxyz")
	got, err := SelectWithin("abcd", entries, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 entries within min+2, got %d", len(got))
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	entries := entriesFor("/a/one", "/a/two")
	Rank("two", entries)
	for _, e := range entries {
		if e.Score != PlaceholderScore {
			t.Errorf("input entry %q was modified", e.Path)
		}
	}
}

func TestSelectEmpty(t *testing.T) {
	got, err := Select("abc", nil)
	if !errors.Is(err, shellserver.ErrEmptyCache) {
		t.Fatalf("expected ErrEmptyCache, got %v", err)
	}
	if errors.Is(err, shellserver.ErrNotFound) {
		t.Error("empty cache must be distinct from not found")
	}
	if got != nil {
		t.Errorf("expected nil result, got %v", got)
	}
}

func TestRenderSuggestion(t *testing.T) {
	if got := RenderSuggestion("pz doc", "/home/me/docs"); got != "pz doc /home/me/docs" {
		t.Errorf("unexpected suggestion %q", got)
	}
	if got := RenderSuggestion("pz my", `C:\my docs`); got != `pz my "C:\my docs"` {
		t.Errorf("expected quoted path, got %q", got)
	}
}
