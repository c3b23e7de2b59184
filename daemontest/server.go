// Package daemontest provides an in-process stand-in for the shellserver
// daemon. It listens on a loopback UDP port, records every request and
// answers through a Handler using the daemon's fragment framing.
package daemontest

import (
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
)

// Handler computes the response to a request.
// Returning reply=false sends nothing, which lets tests exercise timeouts.
type Handler func(req string) (resp string, reply bool)

// Server is a fake daemon bound to a loopback UDP port.
type Server struct {
	conn *net.UDPConn

	// FragmentSize is the payload size of every fragment except the last.
	FragmentSize int

	mu       sync.Mutex
	handler  Handler
	raw      map[string][][]byte
	requests []string

	done chan struct{}
}

// NewServer starts a fake daemon on an ephemeral loopback port.
func NewServer(handler Handler) (*Server, error) {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		return nil, err
	}

	s := &Server{
		conn:         conn,
		FragmentSize: 1024,
		handler:      handler,
		raw:          make(map[string][][]byte),
		done:         make(chan struct{}),
	}
	go s.serve()
	return s, nil
}

// Start creates a server for a test and closes it on cleanup.
func Start(t testing.TB, handler Handler) *Server {
	t.Helper()
	srv, err := NewServer(handler)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { srv.Close() })
	return srv
}

// Addr returns the address clients should dial.
func (s *Server) Addr() string {
	return s.conn.LocalAddr().String()
}

// SetHandler replaces the handler.
func (s *Server) SetHandler(h Handler) {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
}

// SetRaw makes the server answer req with the given datagrams verbatim,
// markers included, instead of calling the handler.
func (s *Server) SetRaw(req string, datagrams ...string) {
	frames := make([][]byte, len(datagrams))
	for i, d := range datagrams {
		frames[i] = []byte(d)
	}
	s.mu.Lock()
	s.raw[req] = frames
	s.mu.Unlock()
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.requests))
	copy(out, s.requests)
	return out
}

// Close stops the server.
func (s *Server) Close() {
	s.conn.Close()
	<-s.done
}

func (s *Server) serve() {
	defer close(s.done)

	buf := make([]byte, 4096)
	for {
		n, addr, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		req := string(buf[:n])

		s.mu.Lock()
		s.requests = append(s.requests, req)
		handler := s.handler
		raw, hasRaw := s.raw[req]
		s.mu.Unlock()

		if hasRaw {
			for _, frame := range raw {
				s.conn.WriteToUDP(frame, addr)
			}
			continue
		}

		if handler == nil {
			continue
		}
		resp, reply := handler(req)
		if !reply {
			continue
		}
		for _, frame := range Fragment(resp, s.FragmentSize) {
			if _, err := s.conn.WriteToUDP(frame, addr); err != nil {
				slog.Debug("fake daemon write failed", "error", err)
			}
		}
	}
}

// Fragment splits payload into framed datagrams of at most size payload bytes.
// An empty payload yields a single final fragment with no content.
func Fragment(payload string, size int) [][]byte {
	if size <= 0 {
		size = len(payload)
	}
	var frames [][]byte
	for len(payload) > size {
		frames = append(frames, append([]byte{'1'}, payload[:size]...))
		payload = payload[size:]
	}
	return append(frames, append([]byte{'0'}, payload...))
}

// Routes builds a Handler from request-prefix routes. The longest matching
// prefix wins; its function receives the request with the prefix removed.
// Requests matching no route get no reply.
func Routes(routes map[string]func(args string) string) Handler {
	return func(req string) (string, bool) {
		best := ""
		found := false
		for prefix := range routes {
			if strings.HasPrefix(req, prefix) && (!found || len(prefix) > len(best)) {
				best = prefix
				found = true
			}
		}
		if !found {
			return "", false
		}
		return routes[best](strings.TrimPrefix(req, best)), true
	}
}
