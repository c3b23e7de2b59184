package predict

import (
	"errors"
	"reflect"
	"testing"

	shellserver "github.com/Paranoid-AF/shellserver"
	"github.com/Paranoid-AF/shellserver/fuzzy"
)

type stubHost struct {
	source SuggestionSource
	sets   []SuggestionSource
}

func (h *stubHost) SuggestionSource() SuggestionSource { return h.source }

func (h *stubHost) SetSuggestionSource(s SuggestionSource) {
	h.source = s
	h.sets = append(h.sets, s)
}

func newTestSession(paths ...string) (*Session, *stubHost) {
	cache := fuzzy.NewCache(nil)
	cache.Replace(paths)
	host := &stubHost{source: SourceHistory}
	return NewSession(host, cache, nil), host
}

func TestSuggestIgnoresOtherCommands(t *testing.T) {
	s, host := newTestSession("/srv/docs")

	for _, line := range []string{"", "   ", "ls docs", "cd docs", "pz", "pz ", "echo pz docs"} {
		got, err := s.Suggest(line)
		if err != nil || got != nil {
			t.Errorf("Suggest(%q) = %v, %v; expected no suggestion", line, got, err)
		}
	}
	if s.Active() {
		t.Error("session should stay idle")
	}
	if len(host.sets) != 0 {
		t.Errorf("host source must not change, got %v", host.sets)
	}
}

func TestSuggestActivatesAndRanks(t *testing.T) {
	s, host := newTestSession("/home/me/music", "/srv/docs", "/home/me/docs", "/home/me/my docs")

	got, err := s.Suggest("pz docs")
	if err != nil {
		t.Fatal(err)
	}
	expected := []string{"pz docs /srv/docs", "pz docs /home/me/docs"}
	if !reflect.DeepEqual(got, expected) {
		t.Errorf("expected %q, got %q", expected, got)
	}
	if !s.Active() {
		t.Error("expected active session")
	}
	if host.source != SourcePlugin {
		t.Errorf("expected plugin-only source, got %v", host.source)
	}
}

func TestSuggestQuotesPathsWithSpaces(t *testing.T) {
	s, _ := newTestSession("/home/me/my docs", "/srv/music")

	got, err := s.Suggest("pz my docs")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != `pz my docs "/home/me/my docs"` {
		t.Errorf("unexpected suggestions %q", got)
	}
}

func TestSuggestCommandNamesAreCaseInsensitive(t *testing.T) {
	s, _ := newTestSession("/srv/docs")
	for _, line := range []string{"PZ docs", "Set-ShellServerPathFuzzy docs", "  pz docs"} {
		got, err := s.Suggest(line)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 {
			t.Errorf("Suggest(%q) returned %q", line, got)
		}
	}
}

func TestSuggestCustomCommands(t *testing.T) {
	cache := fuzzy.NewCache(nil)
	cache.Replace([]string{"/srv/docs"})
	s := NewSession(&stubHost{}, cache, []string{"j"})

	if got, _ := s.Suggest("pz docs"); got != nil {
		t.Errorf("pz should not trigger with custom commands, got %q", got)
	}
	if got, _ := s.Suggest("j docs"); len(got) != 1 {
		t.Errorf("expected a suggestion for j, got %q", got)
	}
}

func TestSuggestUnclosedQuoteFallsBack(t *testing.T) {
	s, _ := newTestSession("/srv/docs")
	got, err := s.Suggest(`pz "doc`)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("expected a suggestion while typing a quoted query, got %q", got)
	}
}

func TestSuggestEmptyCache(t *testing.T) {
	s, _ := newTestSession()
	got, err := s.Suggest("pz docs")
	if !errors.Is(err, shellserver.ErrEmptyCache) {
		t.Fatalf("expected ErrEmptyCache, got %v", err)
	}
	if got != nil {
		t.Errorf("expected no suggestions, got %q", got)
	}
}

func TestFeedbackRestoresSavedSourceOnce(t *testing.T) {
	s, host := newTestSession("/srv/docs")

	s.Suggest("pz d")
	s.Suggest("pz do")
	s.Suggest("pz doc")

	for _, kind := range []FeedbackKind{FeedbackSuggestionDisplayed, FeedbackSuggestionAccepted, FeedbackCommandLineAccepted} {
		if s.Accepts(kind) {
			t.Errorf("feedback %d should not be accepted", kind)
		}
		s.Feedback(kind)
		if !s.Active() {
			t.Fatalf("feedback %d must not deactivate the session", kind)
		}
	}

	if !s.Accepts(FeedbackCommandExecuted) {
		t.Fatal("command executed feedback must be accepted")
	}
	s.Feedback(FeedbackCommandExecuted)

	if s.Active() {
		t.Error("expected idle session after execution")
	}
	if host.source != SourceHistory {
		t.Errorf("expected history source restored, got %v", host.source)
	}

	// A second execution has nothing to restore.
	n := len(host.sets)
	s.Feedback(FeedbackCommandExecuted)
	if len(host.sets) != n {
		t.Error("restore without a saved source must not touch the host")
	}
}

func TestWords(t *testing.T) {
	tests := []struct {
		line     string
		expected []string
	}{
		{"pz docs", []string{"pz", "docs"}},
		{"  pz   a b ", []string{"pz", "a", "b"}},
		{"pz 'my docs'", []string{"pz", "'my docs'"}},
		{`pz "unclosed`, []string{"pz", `"unclosed`}},
	}
	for _, tt := range tests {
		if got := Words(tt.line); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("Words(%q) = %q, expected %q", tt.line, got, tt.expected)
		}
	}
}

func TestSuggestionSourceString(t *testing.T) {
	if SourcePlugin.String() != "plugin" || SuggestionSource(42).String() != "unknown" {
		t.Error("unexpected source names")
	}
}
