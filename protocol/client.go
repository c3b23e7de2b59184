package protocol

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	shellserver "github.com/Paranoid-AF/shellserver"
)

// Conn is the request/response transport a Client talks through.
// *transport.Channel implements it.
type Conn interface {
	// Exchange sends a request and returns the reassembled response.
	Exchange(msg string) (string, error)
	// Notify sends a request that has no response.
	Notify(msg string) error
}

// Client issues typed protocol operations over a Conn.
type Client struct {
	conn Conn
}

// NewClient creates a client on top of conn.
func NewClient(conn Conn) *Client {
	return &Client{conn: conn}
}

// PromptRequest carries the fields of a prompt render request.
type PromptRequest struct {
	// Success is whether the previous command succeeded. It goes on the
	// wire as a single 1 or 0 digit.
	Success  bool
	Path     string
	Width    int
	Duration time.Duration
}

// HistoryQuery carries the fields of a history search request.
type HistoryQuery struct {
	Width   int
	Height  int
	Options string
	Tokens  []string
}

func (c *Client) exchange(op string, fields ...string) (string, error) {
	msg, err := encode(op, fields...)
	if err != nil {
		return "", err
	}
	return c.conn.Exchange(msg)
}

func (c *Client) notify(op string, fields ...string) error {
	msg, err := encode(op, fields...)
	if err != nil {
		return err
	}
	return c.conn.Notify(msg)
}

// RenderPrompt asks the daemon to render the prompt.
func (c *Client) RenderPrompt(req PromptRequest) (shellserver.Prompt, error) {
	flag := "0"
	if req.Success {
		flag = "1"
	}
	resp, err := c.exchange(
		OpPrompt+flag,
		req.Path,
		strconv.Itoa(req.Width),
		strconv.FormatFloat(req.Duration.Seconds(), 'f', -1, 64),
	)
	if err != nil {
		return shellserver.Prompt{}, err
	}
	return decodePrompt(resp)
}

// Init announces a new session.
func (c *Client) Init(name string) error {
	return c.notify(OpInit, name)
}

// Exit announces the end of the session.
func (c *Client) Exit() error {
	return c.notify(OpExit)
}

// PathRefs fetches the list of path reference aliases.
func (c *Client) PathRefs() ([]string, error) {
	resp, err := c.exchange(OpPathRefs)
	if err != nil {
		return nil, err
	}
	return splitList(resp, fieldSep), nil
}

// Config fetches the daemon configuration.
func (c *Client) Config() ([]shellserver.ConfigEntry, error) {
	resp, err := c.exchange(OpConfig)
	if err != nil {
		return nil, err
	}
	return decodeConfig(resp)
}

// SetOption toggles a daemon option. Unknown names are rejected locally.
func (c *Client) SetOption(opt string) error {
	if !contains(Options, opt) {
		return fmt.Errorf("%w: unknown option %q", shellserver.ErrInvalidArgument, opt)
	}
	return c.notify(OpSetOption, opt)
}

// ResolveRef resolves a path reference alias to its full path.
// An empty answer means the daemon does not know the alias.
func (c *Client) ResolveRef(ref string) (string, error) {
	resp, err := c.exchange(OpResolveRef, ref)
	if err != nil {
		return "", err
	}
	if resp == "" {
		return "", fmt.Errorf("path reference %q: %w", ref, shellserver.ErrNotFound)
	}
	return resp, nil
}

// FuzzySource fetches the full paths that feed the fuzzy completion cache.
func (c *Client) FuzzySource() ([]string, error) {
	resp, err := c.exchange(OpFuzzySource)
	if err != nil {
		return nil, err
	}
	return splitList(resp, recordSep), nil
}

// RecordJump tells the daemon the user jumped to path.
func (c *Client) RecordJump(path string) error {
	if path == "Get" {
		return fmt.Errorf("%w: path %q collides with an opcode", shellserver.ErrProtocolDesync, path)
	}
	return c.notify(OpRecordJump, path)
}

// ListDir returns the daemon's formatted listing of dir.
func (c *Client) ListDir(opts, dir string) (string, error) {
	return c.exchange(OpListDir, opts, dir)
}

// SwitchTheme switches the daemon's colour theme.
func (c *Client) SwitchTheme(name string) error {
	if !contains(Themes, name) {
		return fmt.Errorf("%w: unknown theme %q", shellserver.ErrInvalidArgument, name)
	}
	return c.notify(OpTheme, name)
}

// SearchHistory runs a history search and returns the formatted result.
func (c *Client) SearchHistory(q HistoryQuery) (string, error) {
	if len(q.Tokens) == 0 {
		return "", fmt.Errorf("%w: history search needs at least one token", shellserver.ErrInvalidArgument)
	}
	for _, tok := range q.Tokens {
		if strings.Contains(tok, fieldSep) {
			return "", fmt.Errorf("%w: history token %q contains %q", shellserver.ErrProtocolDesync, tok, fieldSep)
		}
	}
	fields := append([]string{strconv.Itoa(q.Width), strconv.Itoa(q.Height), q.Options}, q.Tokens...)
	return c.exchange(OpHistory, fields...)
}

// Buffer fetches the scroll-back buffer.
func (c *Client) Buffer(opts string) (string, error) {
	return c.exchange(OpBuffer, opts)
}

// AddRef adds a path reference. An empty alias lets the daemon pick one.
func (c *Client) AddRef(path, alias string) error {
	return c.notify(OpAddRef, path, alias)
}

// DeleteRef deletes the path reference pointing at path.
func (c *Client) DeleteRef(path string) error {
	return c.notify(OpDeleteRef, path)
}

// DeleteRefByAlias deletes the path reference named ref.
func (c *Client) DeleteRefByAlias(ref string) error {
	return c.notify(OpDeleteRefName, ref)
}
