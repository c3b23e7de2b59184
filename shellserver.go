// Package shellserver defines the result types and errors shared by the
// shellserver front-end packages.
// Requests are plain text sent as single UDP datagrams to a co-resident daemon;
// responses come back as one or more framed datagrams.
package shellserver

import "errors"

// DefaultAddress is the loopback endpoint the daemon listens on.
const DefaultAddress = "127.0.0.1:5432"

// Prompt is the decoded response to a prompt render request.
type Prompt struct {
	// Changed reports that the daemon's path set changed since the last
	// prompt and the completion caches should be refreshed.
	Changed bool
	// Text is the prompt text, rendered by the daemon.
	Text string
}

// ConfigEntry is one name/value pair from the daemon configuration listing.
type ConfigEntry struct {
	Name  string
	Value string
}

var (
	// ErrTimeout is returned when no fragment arrives within the receive timeout.
	ErrTimeout = errors.New("daemon did not respond in time")
	// ErrTransport is returned for socket level failures.
	ErrTransport = errors.New("transport failure")
	// ErrNotFound is returned when a path or path reference does not resolve.
	ErrNotFound = errors.New("not found")
	// ErrEmptyCache is returned when a fuzzy lookup runs against an empty cache.
	ErrEmptyCache = errors.New("the cache is empty")
	// ErrProtocolDesync is returned when a request cannot be encoded
	// unambiguously or a response does not have the expected shape.
	ErrProtocolDesync = errors.New("protocol desync")
	// ErrInvalidArgument is returned for arguments rejected before any request is sent.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrDisabled is returned once the front-end stopped talking to the daemon.
	ErrDisabled = errors.New("front-end disabled")
)
