package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/term"

	"github.com/Paranoid-AF/shellserver/frontend"
	"github.com/Paranoid-AF/shellserver/predict"
)

const acceptedMarker = "\x1b[34m❯\x1b[0m "

// editorState holds the editor settings the front-end reads and changes:
// the prediction source and the token colours.
type editorState struct {
	mu     sync.Mutex
	source predict.SuggestionSource
	colors map[string]string
}

func newEditorState() *editorState {
	return &editorState{
		source: predict.SourceHistory,
		colors: maps.Clone(frontend.DarkColors),
	}
}

func (s *editorState) SuggestionSource() predict.SuggestionSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

func (s *editorState) SetSuggestionSource(src predict.SuggestionSource) {
	s.mu.Lock()
	s.source = src
	s.mu.Unlock()
}

func (s *editorState) SetThemeColors(colors map[string]string) {
	s.mu.Lock()
	maps.Copy(s.colors, colors)
	s.mu.Unlock()
}

// color returns the escape sequence for a token kind. Named console colours
// have no escape sequence and render uncoloured.
func (s *editorState) color(kind string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.colors[kind]
	if !strings.HasPrefix(c, "\x1b[") {
		return ""
	}
	return c
}

func (s *editorState) showsPredictions() bool {
	src := s.SuggestionSource()
	return src == predict.SourcePlugin || src == predict.SourceHistoryAndPlugin
}

// Editor is a minimal line editor with cursor tracking and inline predictions.
// It reads from /dev/tty so it works even when stdout is redirected.
type Editor struct {
	tty   *os.File
	state *editorState

	// Suggest returns the predicted lines for the current buffer.
	Suggest func(line string) []string

	buf         []byte
	pos         int // cursor byte offset into buf
	suggestions []string
	pick        int
}

// NewEditor opens /dev/tty. Raw mode is only active inside ReadLine, so
// commands run between lines see a normal terminal.
func NewEditor(state *editorState) (*Editor, error) {
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/tty: %w", err)
	}
	return &Editor{tty: tty, state: state}, nil
}

// Close closes the tty fd.
func (e *Editor) Close() {
	e.tty.Close()
}

// ReadLine displays the prompt and reads a line.
// Returns io.EOF when the user presses Ctrl-D on empty input.
func (e *Editor) ReadLine(prompt string) (string, error) {
	old, err := term.MakeRaw(int(e.tty.Fd()))
	if err != nil {
		return "", fmt.Errorf("raw mode: %w", err)
	}
	defer term.Restore(int(e.tty.Fd()), old)

	head, prompt := splitPrompt(prompt)
	io.WriteString(termWriter(e.tty), head)

	e.buf = e.buf[:0]
	e.pos = 0
	e.suggestions = nil
	e.pick = -1
	e.redraw(prompt)

	var esc [8]byte // buffer for escape sequences

	for {
		var b [1]byte
		_, err := e.tty.Read(b[:])
		if err != nil {
			return "", err
		}

		edited := true
		switch b[0] {
		case 3: // Ctrl-C
			fmt.Fprintf(e.tty, "\r\n")
			return "", ErrInterrupt

		case 4: // Ctrl-D
			if len(e.buf) == 0 {
				fmt.Fprintf(e.tty, "\r\n")
				return "", io.EOF
			}

		case 13, 10: // Enter
			line := string(e.buf)
			e.accept(line)
			return line, nil

		case 9: // Tab cycles through predictions
			if len(e.suggestions) > 0 {
				e.pick = (e.pick + 1) % len(e.suggestions)
				e.buf = append(e.buf[:0], e.suggestions[e.pick]...)
				e.pos = len(e.buf)
			}
			edited = false

		case 127, 8: // Backspace / Ctrl-H
			if e.pos > 0 {
				_, size := prevRune(e.buf, e.pos)
				copy(e.buf[e.pos-size:], e.buf[e.pos:])
				e.buf = e.buf[:len(e.buf)-size]
				e.pos -= size
			}

		case 1: // Ctrl-A (Home)
			e.pos = 0
			edited = false

		case 5: // Ctrl-E (End)
			e.pos = len(e.buf)
			edited = false

		case 21: // Ctrl-U (clear line)
			e.buf = e.buf[:0]
			e.pos = 0

		case 27: // Escape sequence
			edited = false
			n, _ := e.tty.Read(esc[:1])
			if n == 0 {
				continue
			}
			if esc[0] == '[' {
				n, _ = e.tty.Read(esc[1:2])
				if n == 0 {
					continue
				}
				switch esc[1] {
				case 'D': // Left
					if e.pos > 0 {
						_, size := prevRune(e.buf, e.pos)
						e.pos -= size
					}
				case 'C': // Right, at the end it takes the inline prediction
					if e.pos < len(e.buf) {
						_, size := utf8.DecodeRune(e.buf[e.pos:])
						e.pos += size
					} else if rest := e.inline(); rest != "" {
						e.buf = append(e.buf, rest...)
						e.pos = len(e.buf)
						edited = true
					}
				case 'H': // Home
					e.pos = 0
				case 'F': // End
					e.pos = len(e.buf)
				case '3': // Delete key: \x1b[3~
					e.tty.Read(esc[2:3]) // consume '~'
					if e.pos < len(e.buf) {
						_, size := utf8.DecodeRune(e.buf[e.pos:])
						copy(e.buf[e.pos:], e.buf[e.pos+size:])
						e.buf = e.buf[:len(e.buf)-size]
						edited = true
					}
				case '1': // Home: \x1b[1~
					e.tty.Read(esc[2:3])
					e.pos = 0
				case '4': // End: \x1b[4~
					e.tty.Read(esc[2:3])
					e.pos = len(e.buf)
				}
			}

		default: // Printable character
			if b[0] >= 32 {
				ch := []byte{b[0]}
				if b[0] >= 0xC0 {
					extra := utf8RuneLen(b[0]) - 1
					tmp := make([]byte, extra)
					e.tty.Read(tmp)
					ch = append(ch, tmp...)
				}
				e.buf = append(e.buf, make([]byte, len(ch))...)
				copy(e.buf[e.pos+len(ch):], e.buf[e.pos:len(e.buf)-len(ch)])
				copy(e.buf[e.pos:], ch)
				e.pos += len(ch)
			}
		}

		if edited {
			e.predict()
		}
		e.redraw(prompt)
	}
}

func (e *Editor) predict() {
	e.pick = -1
	e.suggestions = nil
	if e.Suggest != nil {
		e.suggestions = e.Suggest(string(e.buf))
	}
}

// inline returns the part of the first prediction that extends the buffer.
func (e *Editor) inline() string {
	if len(e.suggestions) == 0 || e.pick >= 0 || !e.state.showsPredictions() {
		return ""
	}
	first := e.suggestions[0]
	if !strings.HasPrefix(first, string(e.buf)) {
		return ""
	}
	return first[len(e.buf):]
}

// redraw clears the current line and redraws prompt, buffer and the inline
// prediction, then puts the cursor back.
func (e *Editor) redraw(prompt string) {
	// \r = carriage return, \x1b[K = clear to end of line
	fmt.Fprintf(e.tty, "\r\x1b[K%s%s", prompt, string(e.buf))

	tailLen := runeCount(e.buf[e.pos:])
	if rest := e.inline(); rest != "" {
		fmt.Fprintf(e.tty, "%s%s\x1b[0m", e.state.color("InlinePrediction"), rest)
		tailLen += utf8.RuneCountInString(rest)
	}
	if tailLen > 0 {
		fmt.Fprintf(e.tty, "\x1b[%dD", tailLen)
	}
}

// accept rewrites the finished line behind a marker so scroll-back shows
// what ran without the prompt's decoration.
func (e *Editor) accept(line string) {
	fmt.Fprintf(e.tty, "\r\x1b[K")
	if line != "" {
		fmt.Fprintf(e.tty, "%s%s", acceptedMarker, line)
	}
	fmt.Fprintf(e.tty, "\r\n")
}

// Width returns the terminal width.
func (e *Editor) Width() int {
	w, _, err := term.GetSize(int(e.tty.Fd()))
	if err != nil || w <= 0 {
		return 80
	}
	return w
}

// splitPrompt separates the lines printed once from the last prompt line,
// which is redrawn on every keystroke.
func splitPrompt(prompt string) (head, last string) {
	i := strings.LastIndexByte(prompt, '\n')
	if i < 0 {
		return "", prompt
	}
	return prompt[:i+1], prompt[i+1:]
}

// prevRune returns the rune and byte size of the rune before pos.
func prevRune(buf []byte, pos int) (rune, int) {
	if pos <= 0 {
		return 0, 0
	}
	// Walk back to find the start of the rune
	i := pos - 1
	for i > 0 && !utf8.RuneStart(buf[i]) {
		i--
	}
	r, size := utf8.DecodeRune(buf[i:pos])
	return r, size
}

// runeCount returns the number of runes in b.
func runeCount(b []byte) int {
	return utf8.RuneCount(b)
}

// utf8RuneLen returns the expected byte length of a UTF-8 sequence
// from its leading byte.
func utf8RuneLen(lead byte) int {
	if lead < 0xC0 {
		return 1
	}
	if lead < 0xE0 {
		return 2
	}
	if lead < 0xF0 {
		return 3
	}
	return 4
}

// ErrInterrupt is returned when the user presses Ctrl-C.
var ErrInterrupt = fmt.Errorf("interrupted")
