package indicator

import (
	"fmt"

	"github.com/rkvolt/perpswap-engine/internal/candle"
)

// VegasEMAPeriods are the seven EMA periods the Vegas bundle tracks, in the
// fixed order every other part of the strategy addresses them by index.
var VegasEMAPeriods = [7]int{12, 144, 169, 576, 676, 2304, 2704}

// VegasBundleValues is the fanned-out output of one VegasBundle.Next call.
type VegasBundleValues struct {
	EMA             [7]float64
	RSI             float64
	ATR             float64
	Bollinger       BollingerValue
	VolumeRatio     float64
	Candlestick     CandlestickValue
	Leg             LegDetectionValue
	FakeBreakout    FakeBreakoutValue
	EmaDistance     EmaDistanceValue
	MarketStructure MarketStructureValue
}

// VegasBundle is the named composition of primitives the Vegas strategy
// evaluates against: seven EMAs, RSI, ATR, Bollinger, volume ratio,
// engulfing/hammer, leg detector, fake-breakout detector, EMA-distance
// filter, and market-structure detector (spec §4.C).
type VegasBundle struct {
	cfg             VegasBundleConfig
	emas            [7]*EMA
	rsi             *RSI
	atr             *ATR
	bollinger       *Bollinger
	volumeRatio     *VolumeRatio
	candlestick     *Candlestick
	leg             *LegDetection
	fakeBreakout    *FakeBreakout
	emaDistance     *EmaDistanceFilter
	marketStructure *MarketStructure
}

// VegasBundleConfig carries the constructor parameters for every primitive
// in the bundle, so a sweep can vary them without touching bundle wiring.
type VegasBundleConfig struct {
	RSIPeriod              int
	ATRPeriod              int
	BollingerPeriod        int
	BollingerK             float64
	VolumeRatioPeriod      int
	CandlestickBodyRatio   float64
	CandlestickShadowRatio float64
	LegSize                int
	FakeBreakoutLookback   int
	FakeBreakoutShadowMult float64
	FakeBreakoutVolumeMult float64
	EmaDistanceThreshold   float64
	MarketStructureLookback int
}

// DefaultVegasBundleConfig returns the reference implementation's defaults.
func DefaultVegasBundleConfig() VegasBundleConfig {
	return VegasBundleConfig{
		RSIPeriod:              14,
		ATRPeriod:              14,
		BollingerPeriod:        20,
		BollingerK:             2.0,
		VolumeRatioPeriod:      20,
		CandlestickBodyRatio:   1.0,
		CandlestickShadowRatio: 0.3,
		LegSize:                5,
		FakeBreakoutLookback:   20,
		FakeBreakoutShadowMult: 1.5,
		FakeBreakoutVolumeMult: 1.2,
		EmaDistanceThreshold:   0.05,
		MarketStructureLookback: 20,
	}
}

// NewVegasBundle builds a VegasBundle from cfg.
func NewVegasBundle(cfg VegasBundleConfig) *VegasBundle {
	b := &VegasBundle{
		cfg:             cfg,
		rsi:             NewRSI(cfg.RSIPeriod),
		atr:             NewATR(cfg.ATRPeriod),
		bollinger:       NewBollinger(cfg.BollingerPeriod, cfg.BollingerK),
		volumeRatio:     NewVolumeRatio(cfg.VolumeRatioPeriod),
		candlestick:     NewCandlestick(cfg.CandlestickBodyRatio, cfg.CandlestickShadowRatio),
		leg:             NewLegDetection(cfg.LegSize),
		fakeBreakout:    NewFakeBreakout(cfg.FakeBreakoutLookback, cfg.FakeBreakoutShadowMult, cfg.FakeBreakoutVolumeMult),
		emaDistance:     NewEmaDistanceFilter(cfg.EmaDistanceThreshold),
		marketStructure: NewMarketStructure(cfg.MarketStructureLookback),
	}
	for i, p := range VegasEMAPeriods {
		b.emas[i] = NewEMA(p)
	}
	return b
}

// Next fans candle c out to every primitive, in a fixed order, and collects
// their outputs into a BundleValues snapshot.
func (b *VegasBundle) Next(c candle.Candle) VegasBundleValues {
	var v VegasBundleValues
	for i, e := range b.emas {
		v.EMA[i] = e.Next(c)
	}
	v.RSI = b.rsi.Next(c)
	v.ATR = b.atr.Next(c)
	v.Bollinger = b.bollinger.Next(c)
	v.VolumeRatio = b.volumeRatio.Next(c)
	v.Candlestick = b.candlestick.Next(c)
	v.Leg = b.leg.Next(c)
	v.FakeBreakout = b.fakeBreakout.Next(c)
	// EMA index 1 = EMA_2 (144), index 2 = EMA_3 (169), index 3 = EMA_4 (576)
	// in the spec's 1-based EMA_1..EMA_7 naming over VegasEMAPeriods.
	v.EmaDistance = b.emaDistance.Next(c.Close, v.EMA[1], v.EMA[2], v.EMA[3])
	v.MarketStructure = b.marketStructure.Next(c)
	return v
}

// ATR exposes the underlying ATR primitive for stop/take-profit derivation.
func (b *VegasBundle) ATR() *ATR { return b.atr }

// Clone deep-copies the bundle's state into a fresh instance, for the cache
// manager's snapshot-then-mutate-then-swap update protocol (spec §4.G): the
// cache must never hand out a bundle another goroutine could concurrently
// mutate.
func (b *VegasBundle) Clone() *VegasBundle {
	c := NewVegasBundle(b.cfg)
	if err := c.Restore(b.Snapshot()); err != nil {
		panic(fmt.Sprintf("indicator: vegas bundle clone: %v", err))
	}
	return c
}

// Ready reports whether every primitive in the bundle has warmed up.
func (b *VegasBundle) Ready() bool {
	for _, e := range b.emas {
		if !e.Ready() {
			return false
		}
	}
	return b.rsi.Ready() && b.atr.Ready() && b.bollinger.Ready() &&
		b.volumeRatio.Ready() && b.leg.Ready() && b.fakeBreakout.Ready() && b.marketStructure.Ready()
}

// Snapshot captures every primitive's state in a fixed, deterministic order.
func (b *VegasBundle) Snapshot() []Snapshot {
	snaps := make([]Snapshot, 0, 14)
	for _, e := range b.emas {
		snaps = append(snaps, e.Snapshot())
	}
	snaps = append(snaps,
		b.rsi.Snapshot(), b.atr.Snapshot(), b.bollinger.Snapshot(), b.volumeRatio.Snapshot(),
		b.candlestick.Snapshot(), b.leg.Snapshot(), b.fakeBreakout.Snapshot(),
		b.emaDistance.Snapshot(), b.marketStructure.Snapshot(),
	)
	return snaps
}

// Restore replaces bundle state from a Snapshot slice taken from an
// identically-configured bundle (the order produced by Snapshot).
func (b *VegasBundle) Restore(snaps []Snapshot) error {
	if len(snaps) != 16 {
		return fmt.Errorf("indicator: vegas bundle restore expects 16 snapshots, got %d", len(snaps))
	}
	for i, e := range b.emas {
		if err := e.Restore(snaps[i]); err != nil {
			return err
		}
	}
	restorers := []Indicator{b.rsi, b.atr, b.bollinger, b.volumeRatio, b.candlestick, b.leg, b.fakeBreakout, b.emaDistance, b.marketStructure}
	for i, r := range restorers {
		if err := r.Restore(snaps[7+i]); err != nil {
			return err
		}
	}
	return nil
}

// NWEBundleValues is the fanned-out output of one NWEBundle.Next call.
type NWEBundleValues struct {
	NWE         NWEValue
	RSI         float64
	ATR         float64
	VolumeRatio float64
	Candlestick CandlestickValue
	EMA12       float64
	EMA144      float64
	EMA169      float64
}

// NWEBundle is the named composition the NWE strategy evaluates against:
// the Nadaraya-Watson envelope, RSI, ATR, volume ratio, hammer, and a small
// Vegas-EMA triplet (12/144/169) used only as a trend filter (spec §4.C).
type NWEBundle struct {
	cfg         NWEBundleConfig
	nwe         *NWE
	rsi         *RSI
	atr         *ATR
	volumeRatio *VolumeRatio
	candlestick *Candlestick
	ema12       *EMA
	ema144      *EMA
	ema169      *EMA
}

// NWEBundleConfig carries the constructor parameters for the NWE bundle.
type NWEBundleConfig struct {
	NWEWindow              int
	NWEBandwidth           float64
	NWEK                   float64
	RSIPeriod              int
	ATRPeriod              int
	VolumeRatioPeriod      int
	CandlestickBodyRatio   float64
	CandlestickShadowRatio float64
}

// DefaultNWEBundleConfig returns the reference implementation's defaults.
func DefaultNWEBundleConfig() NWEBundleConfig {
	return NWEBundleConfig{
		NWEWindow: 500, NWEBandwidth: 8, NWEK: 3,
		RSIPeriod: 14, ATRPeriod: 14, VolumeRatioPeriod: 20,
		CandlestickBodyRatio: 1.0, CandlestickShadowRatio: 0.3,
	}
}

// NewNWEBundle builds an NWEBundle from cfg.
func NewNWEBundle(cfg NWEBundleConfig) *NWEBundle {
	return &NWEBundle{
		cfg:         cfg,
		nwe:         NewNWE(cfg.NWEWindow, cfg.NWEBandwidth, cfg.NWEK),
		rsi:         NewRSI(cfg.RSIPeriod),
		atr:         NewATR(cfg.ATRPeriod),
		volumeRatio: NewVolumeRatio(cfg.VolumeRatioPeriod),
		candlestick: NewCandlestick(cfg.CandlestickBodyRatio, cfg.CandlestickShadowRatio),
		ema12:       NewEMA(12),
		ema144:      NewEMA(144),
		ema169:      NewEMA(169),
	}
}

// Next fans candle c out to every primitive in a fixed order.
func (b *NWEBundle) Next(c candle.Candle) NWEBundleValues {
	var v NWEBundleValues
	v.NWE = b.nwe.Next(c)
	v.RSI = b.rsi.Next(c)
	v.ATR = b.atr.Next(c)
	v.VolumeRatio = b.volumeRatio.Next(c)
	v.Candlestick = b.candlestick.Next(c)
	v.EMA12 = b.ema12.Next(c)
	v.EMA144 = b.ema144.Next(c)
	v.EMA169 = b.ema169.Next(c)
	return v
}

// ATR exposes the underlying ATR primitive for stop derivation.
func (b *NWEBundle) ATR() *ATR { return b.atr }

// Clone deep-copies the bundle's state into a fresh instance; see
// VegasBundle.Clone for why this exists.
func (b *NWEBundle) Clone() *NWEBundle {
	c := NewNWEBundle(b.cfg)
	if err := c.Restore(b.Snapshot()); err != nil {
		panic(fmt.Sprintf("indicator: nwe bundle clone: %v", err))
	}
	return c
}

// Ready reports whether every primitive in the bundle has warmed up.
func (b *NWEBundle) Ready() bool {
	return b.nwe.Ready() && b.rsi.Ready() && b.atr.Ready() && b.volumeRatio.Ready() &&
		b.ema12.Ready() && b.ema144.Ready() && b.ema169.Ready()
}

// Snapshot captures every primitive's state in a fixed, deterministic order.
func (b *NWEBundle) Snapshot() []Snapshot {
	return []Snapshot{
		b.nwe.Snapshot(), b.rsi.Snapshot(), b.atr.Snapshot(), b.volumeRatio.Snapshot(),
		b.candlestick.Snapshot(), b.ema12.Snapshot(), b.ema144.Snapshot(), b.ema169.Snapshot(),
	}
}

// Restore replaces bundle state from a Snapshot slice taken from an
// identically-configured bundle.
func (b *NWEBundle) Restore(snaps []Snapshot) error {
	if len(snaps) != 8 {
		return fmt.Errorf("indicator: nwe bundle restore expects 8 snapshots, got %d", len(snaps))
	}
	restorers := []Indicator{b.nwe, b.rsi, b.atr, b.volumeRatio, b.candlestick, b.ema12, b.ema144, b.ema169}
	for i, r := range restorers {
		if err := r.Restore(snaps[i]); err != nil {
			return err
		}
	}
	return nil
}
