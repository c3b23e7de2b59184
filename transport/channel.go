// Package transport implements the loopback datagram channel to the daemon.
//
// Every request is a single datagram. A response is one or more datagrams
// whose first byte is a continuation marker: '0' marks the final fragment,
// anything else means more fragments follow. Payloads are concatenated in
// arrival order.
package transport

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	shellserver "github.com/Paranoid-AF/shellserver"
)

const (
	// DefaultTimeout is the default per-fragment receive timeout.
	DefaultTimeout = 3000 * time.Millisecond

	// MaxRequestSize is the largest request the daemon reads in one datagram.
	MaxRequestSize = 4096

	// FinalMarker marks the last fragment of a response.
	FinalMarker = '0'

	maxDatagramSize = 65535
)

// Channel owns one connected datagram socket to the daemon.
// Exchange and Notify serialize access, so callers on different goroutines
// never interleave a request with another caller's response.
type Channel struct {
	conn net.Conn

	mu      sync.Mutex // serializes send/receive pairs
	timeout time.Duration
	tmu     sync.RWMutex

	closeOnce sync.Once
	closed    chan struct{}
	buf       []byte

	// stale is set when a receive timed out, so the rest of that response
	// may still arrive. Guarded by mu.
	stale bool
}

// Dial connects a new channel to addr. A non-positive timeout selects DefaultTimeout.
func Dial(addr string, timeout time.Duration) (*Channel, error) {
	conn, err := net.Dial("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", shellserver.ErrTransport, addr, err)
	}
	return NewChannel(conn, timeout), nil
}

// NewChannel wraps an already connected datagram conn.
func NewChannel(conn net.Conn, timeout time.Duration) *Channel {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Channel{
		conn:    conn,
		timeout: timeout,
		closed:  make(chan struct{}),
		buf:     make([]byte, maxDatagramSize),
	}
}

// SetTimeout changes the per-fragment receive timeout.
func (c *Channel) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	c.tmu.Lock()
	c.timeout = d
	c.tmu.Unlock()
}

// Timeout returns the current per-fragment receive timeout.
func (c *Channel) Timeout() time.Duration {
	c.tmu.RLock()
	defer c.tmu.RUnlock()
	return c.timeout
}

// Exchange sends msg and blocks until the full response frame is assembled.
func (c *Channel) Exchange(msg string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stale {
		c.discardStale()
	}
	if err := c.Send(msg); err != nil {
		return "", err
	}
	return c.Receive()
}

// discardStale drops what is left of a response abandoned by a timeout.
// It reads until a final marker or until one timeout passes without a
// fragment. The protocol has no request ids, so a late answer would
// otherwise be taken as the reply to the next request.
func (c *Channel) discardStale() {
	c.stale = false
	timeout := c.Timeout()
	dropped := 0
	for !c.isClosed() {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return
		}
		n, err := c.conn.Read(c.buf)
		if err != nil {
			break
		}
		dropped++
		if n > 0 && c.buf[0] == FinalMarker {
			break
		}
	}
	slog.Debug("discarded late fragments", "count", dropped)
}

// Notify sends msg for an operation that has no response.
func (c *Channel) Notify(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Send(msg)
}

// Send writes msg as one datagram.
// Callers outside this package should prefer Exchange or Notify.
func (c *Channel) Send(msg string) error {
	if c.isClosed() {
		return fmt.Errorf("%w: channel closed", shellserver.ErrTransport)
	}
	if len(msg) > MaxRequestSize {
		return fmt.Errorf("%w: request of %d bytes exceeds %d", shellserver.ErrTransport, len(msg), MaxRequestSize)
	}

	slog.Debug("request", "data", msg)

	if _, err := c.conn.Write([]byte(msg)); err != nil {
		return fmt.Errorf("%w: send: %v", shellserver.ErrTransport, err)
	}
	return nil
}

// Receive blocks until a fragment with the final marker has been consumed
// and returns the concatenated payload. The timeout applies to each
// fragment wait on its own.
func (c *Channel) Receive() (string, error) {
	if c.isClosed() {
		return "", fmt.Errorf("%w: channel closed", shellserver.ErrTransport)
	}

	var msg []byte
	timeout := c.Timeout()

	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return "", fmt.Errorf("%w: set deadline: %v", shellserver.ErrTransport, err)
		}

		n, err := c.conn.Read(c.buf)
		if err != nil {
			if errors.Is(err, os.ErrDeadlineExceeded) {
				c.stale = true
				return "", fmt.Errorf("%w (after %v)", shellserver.ErrTimeout, timeout)
			}
			return "", fmt.Errorf("%w: receive: %v", shellserver.ErrTransport, err)
		}
		if n == 0 {
			return "", fmt.Errorf("%w: empty fragment", shellserver.ErrProtocolDesync)
		}

		msg = append(msg, c.buf[1:n]...)
		if c.buf[0] == FinalMarker {
			break
		}
	}

	slog.Debug("response", "data", string(msg))
	return string(msg), nil
}

// Close closes the socket. It is safe to call more than once.
func (c *Channel) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.closed)
		err = c.conn.Close()
	})
	return err
}

func (c *Channel) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}
