package scrape

import (
	"sync"

	"jobscout-engine/internal/scrape/util"
)

// Deduplicator tracks canonical URLs accepted during the run. First seen
// wins; later duplicates are counted, not merged. Safe for concurrent use
// so parallel fetchers can share one instance.
type Deduplicator struct {
	mu      sync.Mutex
	seen    map[string]bool
	dropped int
}

func NewDeduplicator() *Deduplicator {
	return &Deduplicator{seen: make(map[string]bool)}
}

// Accept reports whether the URL has not been seen before and marks it seen.
func (d *Deduplicator) Accept(rawURL string) bool {
	key := util.CanonicalizeURL(rawURL)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen[key] {
		d.dropped++
		return false
	}
	d.seen[key] = true
	return true
}

func (d *Deduplicator) Dropped() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dropped
}

func (d *Deduplicator) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
