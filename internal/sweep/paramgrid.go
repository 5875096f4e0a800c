// Package sweep implements the parameter sweep driver: a lazy
// Cartesian-product generator over strategy and risk parameter lists, with
// resumable, Redis-persisted progress and bounded-concurrency batch
// execution (spec §4.I).
package sweep

// ParamList is one named axis of the sweep grid (e.g. Bollinger periods,
// RSI oversold/overbought pairs, ATR multipliers, boolean flags).
type ParamList struct {
	Name   string
	Values []any
}

// ParamSet is one point in the Cartesian product: one value per ParamList,
// keyed by name.
type ParamSet map[string]any
