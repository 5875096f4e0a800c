package redis

import (
	"errors"
	"sync"

	"github.com/rkvolt/perpswap-engine/internal/breaker"
	"github.com/rkvolt/perpswap-engine/internal/sweep"
	"go.uber.org/zap"
)

// BufferedProgressStore wraps a ProgressStore so a sweep driver's periodic
// checkpoint write is never lost to a transient Redis outage: while the
// breaker is open, Save buffers the latest Progress per (inst, period) in
// memory and replays it once the circuit closes. Adapted from the teacher's
// internal/store/redis/bufferedwriter.go, narrowed from an unbounded write
// buffer to "keep only the newest checkpoint per key" since an older
// SweepProgress is always superseded by a newer one for the same key.
type BufferedProgressStore struct {
	store *ProgressStore
	cb    *breaker.Breaker
	log   *zap.Logger

	mu      sync.Mutex
	pending map[string]*sweep.Progress

	OnBuffer func()
	OnFlush  func(count int)
}

func NewBufferedProgressStore(store *ProgressStore, cb *breaker.Breaker, log *zap.Logger) *BufferedProgressStore {
	bs := &BufferedProgressStore{
		store:   store,
		cb:      cb,
		log:     log,
		pending: make(map[string]*sweep.Progress),
	}
	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to breaker.State) {
		if prev != nil {
			prev(from, to)
		}
		if to == breaker.StateClosed {
			go bs.flush()
		}
	}
	return bs
}

var _ sweep.Store = (*BufferedProgressStore)(nil)

func (bs *BufferedProgressStore) Load(inst, period string) (*sweep.Progress, error) {
	return bs.store.Load(inst, period)
}

func (bs *BufferedProgressStore) Save(p *sweep.Progress) error {
	err := bs.store.Save(p)
	if errors.Is(err, breaker.ErrOpen) {
		bs.mu.Lock()
		bs.pending[progressKey(p.Inst, p.Period)] = p
		bs.mu.Unlock()
		if bs.OnBuffer != nil {
			bs.OnBuffer()
		}
		return nil
	}
	return err
}

func (bs *BufferedProgressStore) flush() {
	bs.mu.Lock()
	toFlush := bs.pending
	bs.pending = make(map[string]*sweep.Progress)
	bs.mu.Unlock()

	flushed := 0
	for _, p := range toFlush {
		if err := bs.store.Save(p); err != nil {
			bs.log.Warn("buffered progress flush failed", zap.String("inst", p.Inst), zap.String("period", p.Period))
			continue
		}
		flushed++
	}
	if bs.OnFlush != nil {
		bs.OnFlush(flushed)
	}
}
