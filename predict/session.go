// Package predict adapts the fuzzy completion cache to a line editor's
// predictive suggestion hook.
//
// The session is Idle until the editor asks for suggestions on a line that
// invokes one of the fuzzy jump commands with an argument. It then narrows
// the editor's suggestion source to this engine alone (Active) and restores
// the previous source once the editor reports the line was executed.
package predict

import (
	"strings"
	"sync"

	"github.com/Paranoid-AF/shellserver/fuzzy"
)

// SuggestionSource is a line editor's prediction source setting.
type SuggestionSource int

const (
	SourceNone SuggestionSource = iota
	SourceHistory
	SourcePlugin
	SourceHistoryAndPlugin
)

func (s SuggestionSource) String() string {
	switch s {
	case SourceNone:
		return "none"
	case SourceHistory:
		return "history"
	case SourcePlugin:
		return "plugin"
	case SourceHistoryAndPlugin:
		return "history-and-plugin"
	default:
		return "unknown"
	}
}

// Host is the capability the session needs from the line editor.
type Host interface {
	SuggestionSource() SuggestionSource
	SetSuggestionSource(SuggestionSource)
}

// FeedbackKind identifies an editor notification.
type FeedbackKind int

const (
	FeedbackSuggestionDisplayed FeedbackKind = iota
	FeedbackSuggestionAccepted
	FeedbackCommandLineAccepted
	FeedbackCommandExecuted
)

// Ranker returns the suggestion set for a query.
// *fuzzy.Cache implements it.
type Ranker interface {
	Select(query string) ([]fuzzy.Entry, error)
}

// DefaultCommands are the invocation names that trigger prediction.
var DefaultCommands = []string{"pz", "set-shellserverpathfuzzy"}

// Session is the prediction state machine for one editor.
type Session struct {
	host     Host
	ranker   Ranker
	commands map[string]bool

	mu    sync.Mutex
	saved *SuggestionSource
}

// NewSession creates an idle session. Command names are matched case-insensitively;
// an empty list selects DefaultCommands.
func NewSession(host Host, ranker Ranker, commands []string) *Session {
	if len(commands) == 0 {
		commands = DefaultCommands
	}
	set := make(map[string]bool, len(commands))
	for _, c := range commands {
		set[strings.ToLower(c)] = true
	}
	return &Session{host: host, ranker: ranker, commands: set}
}

// Active reports whether the session currently overrides the host's suggestion source.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved != nil
}

// Suggest returns the predicted lines for line, or nil when line is not a
// fuzzy jump with a query. An empty cache yields fuzzy's ErrEmptyCache.
func (s *Session) Suggest(line string) ([]string, error) {
	if strings.TrimSpace(line) == "" {
		return nil, nil
	}

	words := Words(line)
	if len(words) < 2 || !s.commands[strings.ToLower(words[0])] {
		return nil, nil
	}

	s.activate()

	trimmed := strings.TrimLeft(line, " \t\n")
	query := trimmed[strings.IndexAny(trimmed, " \t\n")+1:]
	entries, err := s.ranker.Select(query)
	if err != nil {
		return nil, err
	}

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = fuzzy.RenderSuggestion(line, e.Path)
	}
	return out, nil
}

func (s *Session) activate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		prev := s.host.SuggestionSource()
		s.saved = &prev
	}
	s.host.SetSuggestionSource(SourcePlugin)
}

// Accepts reports whether the session wants feedback of the given kind.
func (s *Session) Accepts(kind FeedbackKind) bool {
	return kind == FeedbackCommandExecuted
}

// Feedback delivers an editor notification. Only FeedbackCommandExecuted
// has an effect: it restores the saved suggestion source.
func (s *Session) Feedback(kind FeedbackKind) {
	if kind != FeedbackCommandExecuted {
		return
	}
	s.Restore()
}

// Restore puts back the suggestion source saved on activation, if any.
func (s *Session) Restore() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		return
	}
	s.host.SetSuggestionSource(*s.saved)
	s.saved = nil
}
