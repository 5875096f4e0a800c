package execution

import (
	"context"
	"strings"
	"sync"

	"github.com/rkvolt/perpswap-engine/internal/cache"
	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/risk"
	"github.com/rkvolt/perpswap-engine/internal/strategy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Loop is the live execution pipeline: cache.Manager + dedup + per-key risk
// state + order placer, wired together as the ten-step sequence of spec
// §4.H. It is generic over the bundle type exactly like backtest.Engine, so
// one Loop type serves both the Vegas and NWE strategy families.
type Loop[B cache.Bundle[B, V], V any] struct {
	Cache     *cache.Manager[B, V]
	Dedup     *Dedup
	Evaluate  func(candle.Window, V) strategy.SignalResult
	NewBundle func() B
	WindowMin int
	Risk      risk.Config
	Placer    OrderPlacer
	Log       *zap.Logger

	// OnTradeClosed, if set, is called with the most recently closed trade
	// for key right after its close order is dispatched — the hook a
	// caller wires a trade journal through, since the loop itself has no
	// persistence opinions.
	OnTradeClosed func(key cache.Key, tr risk.TradeRecord)

	statesMu sync.Mutex
	states   map[cache.Key]*risk.State
}

// riskState returns (creating if absent) the per-key risk state machine.
// Callers must hold that key's cache mutex, since risk state mutation is
// part of the same per-key critical section as the cache update.
func (l *Loop[B, V]) riskState(key cache.Key) *risk.State {
	l.statesMu.Lock()
	defer l.statesMu.Unlock()
	if l.states == nil {
		l.states = make(map[cache.Key]*risk.State)
	}
	st, ok := l.states[key]
	if !ok {
		st = risk.NewState(l.Risk)
		l.states[key] = st
	}
	return st
}

// Dispatch runs one candle event through the ten-step live pipeline. It is
// the single entry point both WS candle events and cron ticks funnel into
// (spec §4.H): both call Dispatch the same way, and the dedup-map check in
// step 2 makes a duplicate trigger on the same closed bar a no-op.
func (l *Loop[B, V]) Dispatch(ctx context.Context, key cache.Key, c candle.Candle) {
	// Step 2: timestamp dedup — a WS tick and a cron tick landing on the
	// same bar must not both run the strategy. The slot is released when
	// this call returns (mark_completed, step 10) so a later event for the
	// same ts — notably the confirmed close following its own forming bar
	// — is never permanently blocked; the TTL in Dedup only guards against
	// a crashed processor that never reaches the release.
	if !l.Dedup.TryMarkProcessing(key, c.TS) {
		return
	}
	defer l.Dedup.MarkCompleted(key, c.TS)

	// Step 3: acquire the per-key mutex; steps 4-8 run under it.
	mu := l.Cache.AcquireKeyMutex(key)
	mu.Lock()
	defer mu.Unlock()

	// Step 4: snapshot_last_n.
	history, bundle, oldTS, ok := l.Cache.SnapshotLastN(key, 0)
	if !ok {
		bundle = l.NewBundle()
	}

	// Step 5: freshness check.
	switch {
	case c.TS < oldTS:
		return // out-of-order, reject
	case c.TS == oldTS && c.Confirm == 0:
		return // no-op: still the same forming bar
	case c.TS == oldTS && c.Confirm == 1:
		// the bar just closed: rewrite the last stored bar before replay.
		// A stored bar that is already confirmed makes this a duplicate.
		if len(history) == 0 || history[len(history)-1].Confirmed() {
			return
		}
		history = history[:len(history)-1]
	}

	// Step 6: advance the bundle.
	bv := bundle.Next(c)

	// Step 7: enqueue into history. UpdateAtomic (step 8) trims to K_max;
	// the in-memory window handed to Evaluate below is the untrimmed tail,
	// which only differs from the persisted one if K_max was just crossed.
	history = append(history, c)

	// Step 8: atomic write-back.
	l.Cache.UpdateAtomic(key, history, bundle, c.TS)

	if len(history) < l.WindowMin {
		return
	}

	// Step 9: evaluate the strategy; hand off to the risk state machine /
	// order placer with full risk context.
	sig := l.Evaluate(history, bv)
	st := l.riskState(key)
	prevPos := st.Position
	if sig.Actionable() || st.Position != nil {
		st.OnCandle(c, sig)
	}
	l.dispatchOrders(ctx, key, prevPos, st)

	// Step 10: mark_completed — handled by the deferred call above, which
	// runs on every exit path, not just this one.
}

// dispatchOrders compares the risk state machine's position before and
// after OnCandle to decide whether to place a new entry or a close.
func (l *Loop[B, V]) dispatchOrders(ctx context.Context, key cache.Key, prev *risk.Position, st *risk.State) {
	if l.Placer == nil {
		return
	}
	switch {
	case prev == nil && st.Position != nil:
		l.placeEntry(ctx, key, st.Position)
	case prev != nil && st.Position == nil:
		l.placeClose(ctx, key, prev)
		if l.OnTradeClosed != nil && len(st.TradeRecords) > 0 {
			l.OnTradeClosed(key, st.TradeRecords[len(st.TradeRecords)-1])
		}
	}
}

func (l *Loop[B, V]) placeEntry(ctx context.Context, key cache.Key, pos *risk.Position) {
	posSide := "long"
	side := risk.SideLong
	if pos.Side == risk.SideShort {
		posSide, side = "short", risk.SideShort
	}
	req := OrderRequest{
		InstID:  key.Inst,
		TdMode:  TradeModeIsolated,
		Side:    side,
		PosSide: posSide,
		OrdType: OrderTypeMarket,
		Sz:      pos.Size,
		Px:      pos.EntryPrice,
		ClOrdID: newClOrdID(),
	}
	if err := l.Placer.PlaceEntry(ctx, req); err != nil && l.Log != nil {
		l.Log.Error("place entry failed", zap.String("inst_id", key.Inst), zap.Error(err))
	}
}

// newClOrdID returns a 32-character alphanumeric idempotency key, the
// maximum length and character set the exchange's clOrdId field accepts.
func newClOrdID() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}

func (l *Loop[B, V]) placeClose(ctx context.Context, key cache.Key, pos *risk.Position) {
	posSide := "long"
	if pos.Side == risk.SideShort {
		posSide = "short"
	}
	req := CloseRequest{InstID: key.Inst, PosSide: posSide, MgnMode: TradeModeIsolated, AutoCancel: true}
	if err := l.Placer.ClosePosition(ctx, req); err != nil && l.Log != nil {
		l.Log.Error("close position failed", zap.String("inst_id", key.Inst), zap.Error(err))
	}
}
