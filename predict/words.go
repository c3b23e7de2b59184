package predict

import (
	"bytes"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Words splits a command line into shell words. Lines the shell parser
// rejects, such as ones with an unclosed quote while the user is still
// typing, fall back to whitespace splitting.
func Words(line string) []string {
	var words []string
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	err := parser.Words(strings.NewReader(line), func(w *syntax.Word) bool {
		words = append(words, wordText(w))
		return true
	})
	if err != nil {
		return strings.Fields(line)
	}
	return words
}

func wordText(w *syntax.Word) string {
	if lit := w.Lit(); lit != "" {
		return lit
	}
	var buf bytes.Buffer
	if err := syntax.NewPrinter().Print(&buf, w); err != nil {
		return ""
	}
	return buf.String()
}
