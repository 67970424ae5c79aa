package dedupe

import (
	"sync"
	"time"
)

// Key identifies one inbound event for duplicate suppression.
type Key struct {
	Command     string
	OriginScope string
	RequesterID string
	MessageID   string
}

// Options bound the guard's suppression window and cache size.
type Options struct {
	// Window is how long a repeated key is dropped after first being seen.
	Window time.Duration
	// EntryTTL is the age past which entries are evicted opportunistically.
	EntryTTL time.Duration
	// SoftLimit triggers eager eviction down to EvictionTarget.
	SoftLimit int
	// EvictionTarget is the size eager eviction shrinks the cache to.
	EvictionTarget int
	// HardLimit triggers unconditional eviction of arbitrary entries.
	HardLimit int
}

// DefaultOptions mirror the engine's configured defaults.
func DefaultOptions() Options {
	return Options{
		Window:         2 * time.Minute,
		EntryTTL:       6 * time.Hour,
		SoftLimit:      2000,
		EvictionTarget: 1500,
		HardLimit:      3000,
	}
}

// Guard suppresses duplicate re-entrant processing of inbound events. It is
// the only cross-invocation shared mutable structure besides the stores and
// needs no guarantee beyond best-effort recency.
type Guard struct {
	mu      sync.Mutex
	opts    Options
	entries map[Key]time.Time
}

// New builds a guard; zero or negative option fields fall back to defaults.
func New(opts Options) *Guard {
	defaults := DefaultOptions()
	if opts.Window <= 0 {
		opts.Window = defaults.Window
	}
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaults.EntryTTL
	}
	if opts.SoftLimit <= 0 {
		opts.SoftLimit = defaults.SoftLimit
	}
	if opts.EvictionTarget <= 0 || opts.EvictionTarget >= opts.SoftLimit {
		opts.EvictionTarget = opts.SoftLimit * 3 / 4
	}
	if opts.HardLimit <= opts.SoftLimit {
		opts.HardLimit = opts.SoftLimit * 3 / 2
	}
	return &Guard{opts: opts, entries: make(map[Key]time.Time)}
}

// Admit records the event key and reports whether processing should proceed.
// A key re-seen within the suppression window is rejected without refreshing
// its timestamp, so a burst of duplicates collapses to the first admission.
func (g *Guard) Admit(key Key, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if seen, ok := g.entries[key]; ok && now.Sub(seen) < g.opts.Window {
		return false
	}
	g.entries[key] = now
	g.evictLocked(now)
	return true
}

// Len reports the current cache size.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *Guard) evictLocked(now time.Time) {
	// Opportunistic pass: drop expired entries whenever we touch the cache.
	for key, seen := range g.entries {
		if now.Sub(seen) > g.opts.EntryTTL {
			delete(g.entries, key)
		}
	}

	if len(g.entries) > g.opts.SoftLimit {
		g.evictOldestLocked(len(g.entries) - g.opts.EvictionTarget)
	}

	if len(g.entries) > g.opts.HardLimit {
		// Map iteration order is arbitrary, which is exactly the contract.
		excess := len(g.entries) - g.opts.HardLimit
		for key := range g.entries {
			if excess <= 0 {
				break
			}
			delete(g.entries, key)
			excess--
		}
	}
}

func (g *Guard) evictOldestLocked(count int) {
	for count > 0 && len(g.entries) > 0 {
		var oldestKey Key
		var oldestSeen time.Time
		first := true
		for key, seen := range g.entries {
			if first || seen.Before(oldestSeen) {
				oldestKey = key
				oldestSeen = seen
				first = false
			}
		}
		delete(g.entries, oldestKey)
		count--
	}
}
