// Package frontend ties the daemon channel, the fuzzy completion cache and
// the prediction session to the entry points a shell host calls: attach,
// detach, prompt rendering, line acceptance and the user-facing commands.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	shellserver "github.com/Paranoid-AF/shellserver"
	"github.com/Paranoid-AF/shellserver/fuzzy"
	"github.com/Paranoid-AF/shellserver/predict"
	"github.com/Paranoid-AF/shellserver/protocol"
	"github.com/Paranoid-AF/shellserver/transport"
)

const (
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

// Host is what the front-end needs from the line editor.
type Host interface {
	predict.Host
	ThemeSetter
}

type nopHost struct {
	source predict.SuggestionSource
}

func (h *nopHost) SuggestionSource() predict.SuggestionSource     { return h.source }
func (h *nopHost) SetSuggestionSource(s predict.SuggestionSource) { h.source = s }
func (h *nopHost) SetThemeColors(map[string]string)               {}

// Option configures a Frontend.
type Option func(*Frontend)

// WithHost sets the line editor the front-end drives.
func WithHost(h Host) Option {
	return func(f *Frontend) { f.host = h }
}

// WithHome overrides the directory a bare jump goes to.
func WithHome(dir string) Option {
	return func(f *Frontend) { f.home = dir }
}

// WithRefTTL overrides how long path reference resolutions are cached.
func WithRefTTL(ttl time.Duration) Option {
	return func(f *Frontend) { f.refTTL = ttl }
}

// Frontend is one shell session's connection to the daemon.
type Frontend struct {
	cfg        *shellserver.Config
	addr       string
	clientName string
	timeout    time.Duration
	home       string
	refTTL     time.Duration
	host       Host

	channel *transport.Channel
	client  *protocol.Client
	cache   *fuzzy.Cache
	refs    *RefIndex
	session *predict.Session

	mu          sync.Mutex
	listDefault string
	light       bool

	disabled   atomic.Bool
	detachOnce sync.Once
}

// New creates a detached front-end. A nil cfg uses the embedded defaults.
func New(cfg *shellserver.Config, opts ...Option) *Frontend {
	if cfg == nil {
		cfg = shellserver.DefaultConfig()
	}
	f := &Frontend{
		cfg:         cfg,
		addr:        shellserver.ResolveAddress(cfg),
		clientName:  shellserver.ResolveClientName(cfg),
		timeout:     shellserver.ResolveTimeout(cfg),
		listDefault: cfg.Listing.DefaultOptions,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.host == nil {
		f.host = &nopHost{source: predict.SourceHistory}
	}
	if f.home == "" {
		f.home, _ = os.UserHomeDir()
	}
	if f.listDefault == "" {
		f.listDefault = DefaultListOptions
	}
	f.refs = NewRefIndex(f.refTTL)
	f.cache = fuzzy.NewCache(refreshSource{f})
	return f
}

// refreshSource reloads the alias list along with the fuzzy source list,
// matching the daemon's notion of one path set.
type refreshSource struct {
	f *Frontend
}

func (s refreshSource) FuzzySource() ([]string, error) {
	refs, err := s.f.client.PathRefs()
	if err != nil {
		return nil, err
	}
	s.f.refs.Replace(refs)
	return s.f.client.FuzzySource()
}

// OnAttach connects to the daemon, announces the session and loads the
// completion caches. A daemon that does not answer fails the attach.
func (f *Frontend) OnAttach(ctx context.Context) error {
	ch, err := transport.Dial(f.addr, f.timeout)
	if err != nil {
		f.OnDetach()
		return err
	}
	f.channel = ch
	f.client = protocol.NewClient(ch)

	if err := f.client.Init(f.clientName); err != nil {
		f.OnDetach()
		return fmt.Errorf("announce session: %w", err)
	}
	if err := f.cache.Refresh(ctx); err != nil {
		f.OnDetach()
		return fmt.Errorf("load completion cache: %w", err)
	}

	f.mu.Lock()
	f.light = f.cfg.Theme.Light
	f.mu.Unlock()
	if f.cfg.Theme.Light {
		f.host.SetThemeColors(palette(true))
	}

	f.session = predict.NewSession(f.host, f.cache, f.cfg.Predict.Commands)
	slog.Debug("attached", "addr", f.addr, "client", f.clientName, "paths", f.cache.Len())
	return nil
}

// OnDetach ends the session. It is safe to call more than once.
func (f *Frontend) OnDetach() {
	f.detachOnce.Do(func() {
		f.cache.Close()
		if f.channel != nil {
			if err := f.client.Exit(); err != nil {
				slog.Debug("exit notification failed", "error", err)
			}
			f.channel.Close()
		}
		f.cache.Wait()
		f.refs.Close()
		if f.session != nil {
			f.session.Restore()
		}
	})
}

func (f *Frontend) ready() error {
	if f.disabled.Load() {
		return shellserver.ErrDisabled
	}
	if f.session == nil {
		return fmt.Errorf("%w: not attached", shellserver.ErrDisabled)
	}
	return nil
}

// Disabled reports whether a prompt timeout switched the front-end off.
func (f *Frontend) Disabled() bool {
	return f.disabled.Load()
}

// PromptRequest is what the host knows when it needs a prompt.
type PromptRequest struct {
	// ExitCode is the exit status of the previous command. Zero is success.
	ExitCode   int
	Cwd        string
	Width      int
	Duration   time.Duration
	Admin      string
	VirtualEnv string
}

// OnPromptRequested renders the prompt. When the daemon reports a changed
// path set the caches are refreshed in the background. A timeout disables
// the front-end for the rest of the session.
func (f *Frontend) OnPromptRequested(req PromptRequest) (string, error) {
	if err := f.ready(); err != nil {
		return "", err
	}

	width := req.Width - len(req.Admin) - len(req.VirtualEnv)
	p, err := f.client.RenderPrompt(protocol.PromptRequest{
		Success:  req.ExitCode == 0,
		Path:     req.Cwd,
		Width:    width,
		Duration: req.Duration,
	})
	if errors.Is(err, shellserver.ErrTimeout) {
		slog.Error("daemon did not render the prompt in time, disabling", "addr", f.addr)
		f.disabled.Store(true)
		f.OnDetach()
		return "", err
	}
	if err != nil {
		return "", err
	}

	if p.Changed {
		f.refs.Invalidate()
		f.cache.Trigger()
	}
	return "\n" + ansiRed + req.Admin + ansiGreen + req.VirtualEnv + p.Text, nil
}

// OnLineAccepted tells the prediction session the host executed a line.
func (f *Frontend) OnLineAccepted(line string) {
	if f.session != nil {
		f.session.Feedback(predict.FeedbackCommandExecuted)
	}
}

// Suggest returns fuzzy jump predictions for the line being edited.
func (f *Frontend) Suggest(line string) ([]string, error) {
	if err := f.ready(); err != nil {
		return nil, err
	}
	return f.session.Suggest(line)
}

// Refresh reloads the completion caches and waits for the result.
func (f *Frontend) Refresh(ctx context.Context) error {
	if err := f.ready(); err != nil {
		return err
	}
	return f.cache.Refresh(ctx)
}

// CompleteRefs completes a path reference argument.
func (f *Frontend) CompleteRefs(prefix string) []string {
	return f.refs.Complete(prefix)
}

// Refs returns the known path reference aliases.
func (f *Frontend) Refs() []string {
	return f.refs.Aliases()
}

// Timeout returns the current receive timeout.
func (f *Frontend) Timeout() time.Duration {
	if f.channel == nil {
		return f.timeout
	}
	return f.channel.Timeout()
}

// SetTimeout changes the receive timeout. Non-positive values restore the default.
func (f *Frontend) SetTimeout(d time.Duration) error {
	if err := f.ready(); err != nil {
		return err
	}
	f.channel.SetTimeout(d)
	return nil
}

// HistoryRequest describes a history search.
type HistoryRequest struct {
	Tokens        []string
	CaseSensitive bool
	AllSessions   bool
	Width         int
	Height        int
}

func (r HistoryRequest) options() string {
	switch {
	case r.CaseSensitive && r.AllSessions:
		return "ac"
	case r.CaseSensitive:
		return "c"
	case r.AllSessions:
		return "a"
	}
	return ""
}

// SearchHistory runs a history search on the daemon.
func (f *Frontend) SearchHistory(req HistoryRequest) (string, error) {
	if err := f.ready(); err != nil {
		return "", err
	}
	return f.client.SearchHistory(protocol.HistoryQuery{
		Width:   req.Width,
		Height:  req.Height,
		Options: req.options(),
		Tokens:  req.Tokens,
	})
}

// Buffer fetches the daemon's scroll-back buffer. keep asks the daemon to
// keep the buffer instead of clearing it.
func (f *Frontend) Buffer(keep bool) (string, error) {
	if err := f.ready(); err != nil {
		return "", err
	}
	opts := ""
	if keep {
		opts = "k"
	}
	return f.client.Buffer(opts)
}

// Config returns the daemon's configuration listing.
func (f *Frontend) Config() ([]shellserver.ConfigEntry, error) {
	if err := f.ready(); err != nil {
		return nil, err
	}
	return f.client.Config()
}

// SetOptions toggles daemon options in order, stopping at the first error.
func (f *Frontend) SetOptions(opts ...string) error {
	if err := f.ready(); err != nil {
		return err
	}
	for _, opt := range opts {
		if err := f.client.SetOption(opt); err != nil {
			return err
		}
	}
	return nil
}

// SwitchTheme applies themes in order. "readline" toggles the line editor
// between the light and dark palettes; other names go to the daemon.
func (f *Frontend) SwitchTheme(names ...string) error {
	if err := f.ready(); err != nil {
		return err
	}
	for _, name := range names {
		name = strings.ToLower(name)
		if name == "readline" {
			f.mu.Lock()
			f.light = !f.light
			light := f.light
			f.mu.Unlock()
			f.host.SetThemeColors(palette(light))
			continue
		}
		if err := f.client.SwitchTheme(name); err != nil {
			return err
		}
	}
	return nil
}
