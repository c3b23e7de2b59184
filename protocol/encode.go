package protocol

import (
	"fmt"
	"strings"

	shellserver "github.com/Paranoid-AF/shellserver"
)

// encode joins fields after the opcode. No field may contain a record
// separator. When there is more than one field none may contain the field
// separator, since the daemon splits the payload into a fixed set of names.
func encode(op string, fields ...string) (string, error) {
	for i, f := range fields {
		if strings.Contains(f, recordSep) {
			return "", fmt.Errorf("%w: field %d of opcode %q contains a newline", shellserver.ErrProtocolDesync, i, op)
		}
		if len(fields) > 1 && strings.Contains(f, fieldSep) {
			return "", fmt.Errorf("%w: field %d of opcode %q contains %q", shellserver.ErrProtocolDesync, i, op, fieldSep)
		}
	}
	return op + strings.Join(fields, fieldSep), nil
}

// splitList splits a sep-joined list, dropping empty items.
func splitList(s, sep string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimRight(p, "\r")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// decodePrompt splits the leading changed flag from the prompt text.
func decodePrompt(resp string) (shellserver.Prompt, error) {
	if resp == "" {
		return shellserver.Prompt{}, fmt.Errorf("%w: prompt response has no changed flag", shellserver.ErrProtocolDesync)
	}
	return shellserver.Prompt{
		Changed: resp[0] == '1',
		Text:    resp[1:],
	}, nil
}

// decodeConfig parses newline records of name;value.
func decodeConfig(resp string) ([]shellserver.ConfigEntry, error) {
	records := splitList(strings.TrimRight(resp, recordSep), recordSep)
	entries := make([]shellserver.ConfigEntry, 0, len(records))
	for _, rec := range records {
		name, value, ok := strings.Cut(rec, fieldSep)
		if !ok {
			return nil, fmt.Errorf("%w: config record %q has no value", shellserver.ErrProtocolDesync, rec)
		}
		entries = append(entries, shellserver.ConfigEntry{Name: name, Value: value})
	}
	return entries, nil
}
