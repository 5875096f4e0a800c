package indicator

import (
	"math"

	"github.com/rkvolt/perpswap-engine/internal/candle"
)

// NWEValue is the Nadaraya-Watson envelope's output for the latest bar.
type NWEValue struct {
	Mid   float64 // kernel-smoothed estimate
	Upper float64
	Lower float64
}

// NWE is the Nadaraya-Watson envelope: a Gaussian-kernel-weighted regression
// over the last N closes, offset by k * mean-absolute-error to form an
// upper/lower band. Recomputed over the whole window each bar: the
// mean-absolute-error pass runs a kernel regression at every window point,
// so one Next call costs O(window²) kernel evaluations once the window is
// full.
type NWE struct {
	window    int
	bandwidth float64
	k         float64

	closes []float64
	value  NWEValue
	ready  bool
}

// NewNWE builds an NWE with window size n, Gaussian bandwidth h, and band
// multiplier k.
func NewNWE(n int, h, k float64) *NWE {
	return &NWE{window: n, bandwidth: h, k: k, closes: make([]float64, 0, n)}
}

// Next feeds one candle and returns the updated envelope.
func (e *NWE) Next(c candle.Candle) NWEValue {
	e.closes = append(e.closes, c.Close)
	if len(e.closes) > e.window {
		e.closes = e.closes[len(e.closes)-e.window:]
	}
	if len(e.closes) < e.window {
		return e.value
	}

	n := len(e.closes)
	mid := e.kernelRegress(n - 1)

	var maeSum float64
	for i := 0; i < n; i++ {
		est := e.kernelRegress(i)
		maeSum += math.Abs(e.closes[i] - est)
	}
	mae := maeSum / float64(n)

	e.value = NWEValue{
		Mid:   mid,
		Upper: mid + e.k*mae,
		Lower: mid - e.k*mae,
	}
	e.ready = true
	return e.value
}

// kernelRegress estimates the smoothed value at window index i using a
// Gaussian kernel over every other point in the window.
func (e *NWE) kernelRegress(i int) float64 {
	n := len(e.closes)
	var wSum, vSum float64
	for j := 0; j < n; j++ {
		d := float64(i - j)
		w := math.Exp(-(d * d) / (2 * e.bandwidth * e.bandwidth))
		wSum += w
		vSum += w * e.closes[j]
	}
	if wSum == 0 {
		return e.closes[i]
	}
	return vSum / wSum
}

func (e *NWE) Value() NWEValue { return e.value }
func (e *NWE) Ready() bool     { return e.ready }

func (e *NWE) Reset() {
	e.closes = e.closes[:0]
	e.value = NWEValue{}
	e.ready = false
}

type nweState struct {
	Window              int
	Bandwidth, K        float64
	Closes              []float64
	Value               NWEValue
	Ready               bool
}

func (e *NWE) Snapshot() Snapshot {
	cp := make([]float64, len(e.closes))
	copy(cp, e.closes)
	return Snapshot{Kind: KindNWE, Data: nweState{
		Window: e.window, Bandwidth: e.bandwidth, K: e.k, Closes: cp, Value: e.value, Ready: e.ready,
	}}
}

func (e *NWE) Restore(s Snapshot) error {
	st, err := castSnapshot[nweState](s, KindNWE)
	if err != nil {
		return err
	}
	e.window, e.bandwidth, e.k = st.Window, st.Bandwidth, st.K
	e.closes = make([]float64, len(st.Closes))
	copy(e.closes, st.Closes)
	e.value, e.ready = st.Value, st.Ready
	return nil
}
