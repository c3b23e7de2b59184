package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/term"

	shellserver "github.com/Paranoid-AF/shellserver"
)

// termWriter wraps a file and converts \n to \r\n when the file is a terminal
// (needed because raw mode disables the kernel's NL→CRNL translation).
// When the file is redirected, \n passes through unchanged.
func termWriter(f *os.File) io.Writer {
	if term.IsTerminal(int(f.Fd())) {
		return &crlfWriter{w: f}
	}
	return f
}

type crlfWriter struct {
	w io.Writer
}

func (c *crlfWriter) Write(p []byte) (int, error) {
	replaced := bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))
	_, err := c.w.Write(replaced)
	return len(p), err // report original length to caller
}

// writeText writes a daemon text response, ending it with a newline.
// Empty responses print nothing.
func writeText(w io.Writer, s string) {
	if s == "" {
		return
	}
	io.WriteString(w, s)
	if !strings.HasSuffix(s, "\n") {
		io.WriteString(w, "\n")
	}
}

// writeConfig writes the daemon configuration as a TOML table of strings.
// Duplicate names keep the last value.
func writeConfig(w io.Writer, entries []shellserver.ConfigEntry) error {
	table := make(map[string]string, len(entries))
	for _, e := range entries {
		table[e.Name] = e.Value
	}
	if err := toml.NewEncoder(w).Encode(table); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return nil
}
