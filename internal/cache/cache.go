// Package cache implements the concurrent (instrument, period, strategy)
// keyed indicator cache: a per-key mutex registry plus atomic snapshot/update
// of each key's (history, bundle, last_ts) triple, so no consumer ever
// observes the bundle and its candle history out of lock-step (spec §4.G).
package cache

import (
	"sync"

	"github.com/rkvolt/perpswap-engine/internal/candle"
)

// Key identifies one cache entry.
type Key struct {
	Inst           string
	Period         candle.Period
	StrategyFamily string
}

// Bundle is the capability the cache manager needs from a bundle type: it
// can advance by one candle, and it can be deep-copied so a reader's
// snapshot is never mutated by a concurrent writer. B is the bundle's own
// type (so Clone returns the same concrete type, not an interface), V is
// the value type Next produces.
type Bundle[B any, V any] interface {
	Next(candle.Candle) V
	Clone() B
}

// Entry is the value half of the cache map: a bounded candle history, the
// bundle state that replayed exactly those candles, and the last applied
// timestamp.
type Entry[B Bundle[B, V], V any] struct {
	History []candle.Candle
	Bundle  B
	LastTS  int64
}

type slot[B Bundle[B, V], V any] struct {
	updateMu sync.Mutex // acquire_key_mutex: serializes *updates* to this key
	dataMu   sync.RWMutex
	data     Entry[B, V]
	has      bool
}

// Manager is the concurrent keyed cache. Two different keys never share a
// mutex, and entries for distinct keys make progress in parallel without
// contention — matching the teacher's per-TF `engine.state` map pattern,
// generalized from the teacher's single-goroutine engine to this spec's
// concurrent, per-key-locked form.
type Manager[B Bundle[B, V], V any] struct {
	kMax  int
	slots sync.Map // Key -> *slot[B,V]
}

// NewManager builds a Manager bounding each key's history to kMax candles.
func NewManager[B Bundle[B, V], V any](kMax int) *Manager[B, V] {
	return &Manager[B, V]{kMax: kMax}
}

func (m *Manager[B, V]) getOrCreateSlot(key Key) *slot[B, V] {
	if s, ok := m.slots.Load(key); ok {
		return s.(*slot[B, V])
	}
	s, _ := m.slots.LoadOrStore(key, &slot[B, V]{})
	return s.(*slot[B, V])
}

// AcquireKeyMutex returns the mutex for this key, creating it if absent.
func (m *Manager[B, V]) AcquireKeyMutex(key Key) *sync.Mutex {
	return &m.getOrCreateSlot(key).updateMu
}

// KeyExists is a fast existence check that does not create the slot.
func (m *Manager[B, V]) KeyExists(key Key) bool {
	s, ok := m.slots.Load(key)
	if !ok {
		return false
	}
	sl := s.(*slot[B, V])
	sl.dataMu.RLock()
	defer sl.dataMu.RUnlock()
	return sl.has
}

// SnapshotLastN returns a cloned view of the last n candles, a cloned
// bundle, and last_ts, under a short-lived read guard. ok is false if the
// key has never been written.
func (m *Manager[B, V]) SnapshotLastN(key Key, n int) (history []candle.Candle, bundle B, lastTS int64, ok bool) {
	s := m.getOrCreateSlot(key)
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	if !s.has {
		var zero B
		return nil, zero, 0, false
	}
	h := s.data.History
	if n > 0 && n < len(h) {
		h = h[len(h)-n:]
	}
	hc := make([]candle.Candle, len(h))
	copy(hc, h)
	return hc, s.data.Bundle.Clone(), s.data.LastTS, true
}

// UpdateAtomic replaces history, bundle, and last_ts for key under a single
// write guard, trimming history to kMax. No consumer can observe the bundle
// having advanced without the history also having advanced, or vice versa.
func (m *Manager[B, V]) UpdateAtomic(key Key, history []candle.Candle, bundle B, lastTS int64) {
	if m.kMax > 0 && len(history) > m.kMax {
		history = history[len(history)-m.kMax:]
	}
	s := m.getOrCreateSlot(key)
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	s.data = Entry[B, V]{History: history, Bundle: bundle, LastTS: lastTS}
	s.has = true
}
