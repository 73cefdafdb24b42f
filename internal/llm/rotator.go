package llm

import (
	"strings"
	"sync"
)

// Rotator is a forward-only cursor over primary provider credentials.
// Once every credential has failed it stays exhausted; only a new Rotator
// starts over.
type Rotator struct {
	mu        sync.Mutex
	keys      []string
	index     int
	exhausted bool
}

// NewRotator copies keys, dropping blanks. A rotator without keys starts exhausted.
func NewRotator(keys []string) *Rotator {
	clean := make([]string, 0, len(keys))
	for _, k := range keys {
		if trimmed := strings.TrimSpace(k); trimmed != "" {
			clean = append(clean, trimmed)
		}
	}
	return &Rotator{
		keys:      clean,
		exhausted: len(clean) == 0,
	}
}

// Current returns the active credential, or false when exhausted.
func (r *Rotator) Current() (string, bool) {
	if r == nil {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exhausted || r.index >= len(r.keys) {
		return "", false
	}
	return r.keys[r.index], true
}

// Advance moves to the next credential. It returns false, and marks the
// rotator exhausted, when none remain. After exhaustion it is a no-op.
func (r *Rotator) Advance() bool {
	if r == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.exhausted {
		return false
	}
	if r.index+1 >= len(r.keys) {
		r.exhausted = true
		return false
	}
	r.index++
	return true
}

// Exhausted reports whether every credential has failed.
func (r *Rotator) Exhausted() bool {
	if r == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.exhausted
}

// Len returns the number of configured credentials.
func (r *Rotator) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Index returns the position of the active credential, for logging.
func (r *Rotator) Index() int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.index
}
