// Package indicator provides the incremental technical-indicator primitives
// consumed by the strategy bundles. Every primitive takes candles one at a
// time, in ascending ts order, and keeps only a bounded window of state, so
// none of them rescans the full history. Most are O(1) per Next call; the
// lookback-window detectors (leg, market structure, fake breakout) scan
// their window on each call, and NWE recomputes over its whole window.
package indicator

import "fmt"

// Indicator is the capability set shared by every primitive: readiness,
// reset-for-reuse, and checkpoint serialization. Each primitive additionally
// exposes its own Next/Value methods with a result shape specific to what it
// computes (a plain float64 for EMA/RSI/ATR, a richer struct for Bollinger,
// NWE, the candlestick detectors, and so on) — the shared interface only
// covers what the cache manager and sweep driver need to treat primitives
// uniformly.
type Indicator interface {
	// Ready reports whether the primitive has seen enough candles to produce
	// a meaningful value. Warm-up outputs before this are not gated by the
	// primitive itself; callers gate signal logic behind it.
	Ready() bool

	// Reset clears all internal state, as if newly constructed.
	Reset()

	// Snapshot serializes current state for checkpoint persistence.
	Snapshot() Snapshot

	// Restore replaces internal state from a previously taken Snapshot. The
	// snapshot's Kind must match the primitive's own kind.
	Restore(Snapshot) error
}

// Kind identifies which primitive a Snapshot belongs to, since the bundle
// holds many different primitive types behind one slice of Indicator.
type Kind string

const (
	KindEMA            Kind = "ema"
	KindRSI            Kind = "rsi"
	KindATR            Kind = "atr"
	KindBollinger      Kind = "bollinger"
	KindVolumeRatio    Kind = "volume_ratio"
	KindCandlestick    Kind = "candlestick"
	KindNWE            Kind = "nwe"
	KindLegDetection   Kind = "leg_detection"
	KindFairValueGap   Kind = "fair_value_gap"
	KindMarketStruct   Kind = "market_structure"
	KindFakeBreakout   Kind = "fake_breakout"
	KindEmaDistFilter  Kind = "ema_distance_filter"
)

// Snapshot is an opaque, JSON-serializable checkpoint of one primitive's
// internal state. Data is primitive-specific; Restore on the matching
// concrete type knows how to decode it. This generalizes the teacher's
// single IndicatorSnapshot struct (which enumerated SMA/EMA/RSI fields with
// `omitempty`) to the larger primitive set this spec requires, without one
// struct accreting every field of every kind.
type Snapshot struct {
	Kind Kind
	Data any
}

// castSnapshot type-asserts Data against T after checking Kind matches want,
// used by every primitive's Restore method.
func castSnapshot[T any](s Snapshot, want Kind) (T, error) {
	var zero T
	if s.Kind != want {
		return zero, fmt.Errorf("indicator: snapshot kind mismatch: want %s, got %s", want, s.Kind)
	}
	st, ok := s.Data.(T)
	if !ok {
		return zero, fmt.Errorf("indicator: snapshot data for kind %s has wrong type", want)
	}
	return st, nil
}
