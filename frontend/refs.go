package frontend

import (
	"strings"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	subseq "github.com/sahilm/fuzzy"
)

const refCacheTTL = 1 * time.Minute

// RefIndex holds the daemon's path reference aliases and a short-lived
// cache of alias resolutions. Every refresh drops cached resolutions, so a
// resolution never outlives a change the daemon reported.
type RefIndex struct {
	mu      sync.RWMutex
	aliases []string

	resolved *ttlcache.Cache[string, string]
}

// NewRefIndex creates an empty index whose resolutions expire after ttl.
func NewRefIndex(ttl time.Duration) *RefIndex {
	if ttl <= 0 {
		ttl = refCacheTTL
	}
	c := ttlcache.New[string, string](
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	go c.Start()
	return &RefIndex{resolved: c}
}

// Close stops the resolution cache expiration loop.
func (r *RefIndex) Close() {
	r.resolved.Stop()
}

// Replace swaps in a new alias list and forgets cached resolutions.
func (r *RefIndex) Replace(aliases []string) {
	list := make([]string, len(aliases))
	copy(list, aliases)

	r.mu.Lock()
	r.aliases = list
	r.mu.Unlock()

	r.resolved.DeleteAll()
}

// Aliases returns the current alias list.
func (r *RefIndex) Aliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.aliases))
	copy(out, r.aliases)
	return out
}

// Lookup returns a cached resolution for ref.
func (r *RefIndex) Lookup(ref string) (string, bool) {
	item := r.resolved.Get(ref)
	if item == nil {
		return "", false
	}
	return item.Value(), true
}

// Store caches the resolution of ref.
func (r *RefIndex) Store(ref, path string) {
	r.resolved.Set(ref, path, ttlcache.DefaultTTL)
}

// Invalidate forgets every cached resolution.
func (r *RefIndex) Invalidate() {
	r.resolved.DeleteAll()
}

type aliasSource []string

func (a aliasSource) String(i int) string { return strings.ToLower(a[i]) }
func (a aliasSource) Len() int            { return len(a) }

// Complete returns the aliases matching word for argument completion.
// Prefix matches come first in daemon order, followed by subsequence
// matches ranked by match quality. Aliases containing spaces are quoted.
func (r *RefIndex) Complete(word string) []string {
	aliases := r.Aliases()

	var out []string
	seen := make(map[int]bool)
	for i, a := range aliases {
		if word == "" || strings.HasPrefix(a, word) {
			out = append(out, quoteArg(a))
			seen[i] = true
		}
	}

	if word != "" {
		for _, m := range subseq.FindFrom(strings.ToLower(word), aliasSource(aliases)) {
			if !seen[m.Index] {
				out = append(out, quoteArg(aliases[m.Index]))
				seen[m.Index] = true
			}
		}
	}
	return out
}

func quoteArg(s string) string {
	if strings.Contains(s, " ") {
		return `"` + s + `"`
	}
	return s
}
