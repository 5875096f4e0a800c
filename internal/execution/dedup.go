package execution

import (
	"sync"
	"time"

	"github.com/rkvolt/perpswap-engine/internal/cache"
)

// dedupTTL is how long a (key, ts) pair blocks a repeat trigger — a WS tick
// and a cron tick landing on the same closed bar must not both run the
// strategy (spec §4.H step 2).
const dedupTTL = 5 * time.Minute

type dedupEntry struct {
	ts      int64
	expires time.Time
}

// Dedup is a concurrent set of (key, ts) claims with entries expiring after
// dedupTTL. It holds at most one claimed ts per key: claiming a different ts
// for the same key replaces the earlier claim. There is no teacher
// equivalent (the teacher has no live execution loop) — it is new, a plain
// map behind one mutex rather than a bucketed-lock map, with expired
// entries removed by an explicit Sweep call that the owner drives.
type Dedup struct {
	mu      sync.Mutex
	entries map[cache.Key]dedupEntry
}

// NewDedup constructs an empty dedup set.
func NewDedup() *Dedup {
	return &Dedup{entries: make(map[cache.Key]dedupEntry)}
}

// TryMarkProcessing returns true if (key, ts) was not already marked (and
// marks it), false if it was already in flight or already completed within
// the TTL window.
func (d *Dedup) TryMarkProcessing(key cache.Key, ts int64) bool {
	now := time.Now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[key]; ok && e.ts == ts && now.Before(e.expires) {
		return false
	}
	d.entries[key] = dedupEntry{ts: ts, expires: now.Add(dedupTTL)}
	return true
}

// MarkCompleted releases the (key, ts) slot TryMarkProcessing claimed, so a
// later trigger for the same ts — e.g. a confirmed close arriving after its
// own forming bar already ran — is not blocked by a still-claimed slot.
// Only deletes if the entry still matches ts, so it can't clobber a newer
// claim. The TTL in TryMarkProcessing remains as a crashed-processor
// safety net: if a caller claims a slot and never reaches this call, Sweep
// still reclaims it once the TTL lapses.
func (d *Dedup) MarkCompleted(key cache.Key, ts int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if e, ok := d.entries[key]; ok && e.ts == ts {
		delete(d.entries, key)
	}
}

// Sweep removes expired entries. Intended to run on a ticker from the
// owning loop's lifecycle goroutine.
func (d *Dedup) Sweep(now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, e := range d.entries {
		if now.After(e.expires) {
			delete(d.entries, k)
		}
	}
}
