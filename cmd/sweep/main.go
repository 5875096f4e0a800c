// cmd/sweep drives a resumable Cartesian-product parameter sweep over one
// (instrument, period, strategy family), replaying each parameter
// combination through backtest.Engine against the same historical candles
// and checkpointing progress to Redis so a restarted sweep resumes rather
// than starts over (spec §4.I).
//
// Usage:
//
//	go run ./cmd/sweep --grid=configs/vegas_grid.yaml --strategy=vegas --mysql-dsn=...
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/rkvolt/perpswap-engine/internal/backtest"
	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/config"
	"github.com/rkvolt/perpswap-engine/internal/indicator"
	"github.com/rkvolt/perpswap-engine/internal/logger"
	"github.com/rkvolt/perpswap-engine/internal/metrics"
	"github.com/rkvolt/perpswap-engine/internal/risk"
	redisstore "github.com/rkvolt/perpswap-engine/internal/store/redis"
	"github.com/rkvolt/perpswap-engine/internal/store/mysql"
	"github.com/rkvolt/perpswap-engine/internal/strategy"
	"github.com/rkvolt/perpswap-engine/internal/sweep"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	gridPath := flag.String("grid", "", "sweep parameter grid YAML file (required)")
	strategyName := flag.String("strategy", "vegas", "strategy family: vegas or nwe")
	fromTS := flag.Int64("from", 0, "unix-ms timestamp to start replay from (0=all)")
	dsn := flag.String("mysql-dsn", os.Getenv("MYSQL_DSN"), "MySQL DSN to read confirmed candles from")
	redisAddr := flag.String("redis-addr", getEnv("REDIS_ADDR", "localhost:6379"), "Redis address for progress checkpointing")
	redisPassword := flag.String("redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password")
	initialFunds := flag.Float64("funds", risk.DefaultConfig().InitialFunds, "initial backtest funds per run")
	maxLossPercent := flag.Float64("max-loss", risk.DefaultConfig().MaxLossPercent, "max-loss stop threshold, as a fraction")
	flag.Parse()

	log := logger.Init("perpswap-sweep", zapcore.InfoLevel)
	defer log.Sync()

	if *gridPath == "" {
		fmt.Fprintln(os.Stderr, "[sweep] --grid is required")
		os.Exit(1)
	}
	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "[sweep] --mysql-dsn (or MYSQL_DSN) is required")
		os.Exit(1)
	}

	doc, lists, err := config.LoadParamGrid(*gridPath)
	if err != nil {
		log.Fatal("param grid load failed", zap.Error(err))
	}
	if doc.Period == "" {
		fmt.Fprintln(os.Stderr, "[sweep] param grid file missing period")
		os.Exit(1)
	}

	store, err := mysql.New(*dsn, metrics.NewMetrics(), log)
	if err != nil {
		log.Fatal("mysql open failed", zap.Error(err))
	}
	defer store.Close()

	redisClient, err := redisstore.New(redisstore.Config{Addr: *redisAddr, Password: *redisPassword}, log)
	if err != nil {
		log.Fatal("redis connect failed", zap.Error(err))
	}
	defer redisClient.Close()
	progressStore := redisstore.NewBufferedProgressStore(redisstore.NewProgressStore(redisClient), redisClient.Breaker(), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received, stopping after current batch")
		cancel()
	}()

	candles, err := store.ReadCandles(ctx, doc.Inst, candle.Period(doc.Period), *fromTS)
	if err != nil {
		log.Fatal("read candles failed", zap.Error(err))
	}
	if len(candles) == 0 {
		fmt.Printf("[sweep] no confirmed candles found for %s %s after ts=%d\n", doc.Inst, doc.Period, *fromTS)
		return
	}

	riskCfg := risk.Config{InitialFunds: *initialFunds, MaxLossPercent: *maxLossPercent}
	runFn, err := buildRunFunc(*strategyName, candles, riskCfg)
	if err != nil {
		log.Fatal("build run func failed", zap.Error(err))
	}

	driver, gen, err := sweep.NewDriver(doc.Inst, doc.Period, lists, progressStore, runFn)
	if err != nil {
		log.Fatal("sweep driver init failed", zap.Error(err))
	}

	// runID distinguishes concurrent sweeps over the same (inst, period) in
	// logs — the stored Progress record itself is keyed by inst/period, not
	// by run, since two concurrent sweeps over the same key would race on
	// the same checkpoint anyway.
	runID := uuid.New().String()
	startIdx, total := gen.Progress()
	log.Info("sweep starting",
		zap.String("run_id", runID),
		zap.String("inst", doc.Inst), zap.String("period", doc.Period), zap.String("strategy", *strategyName),
		zap.Int("start_index", startIdx), zap.Int("total_combinations", total))

	results, err := driver.RunAll(ctx, gen)
	if err != nil && ctx.Err() == nil {
		log.Fatal("sweep run failed", zap.Error(err))
	}

	printBest(results)
}

// buildRunFunc returns a sweep.RunFunc that decodes each ParamSet into a
// Vegas or NWE config, runs the shared backtest.Engine over candles, and
// hands back its BackTestResult — the same replay path cmd/backtest drives,
// per spec §4.F's "shares live code paths" contract.
func buildRunFunc(strategyName string, candles []candle.Candle, riskCfg risk.Config) (sweep.RunFunc, error) {
	switch strategyName {
	case "vegas":
		return func(_ context.Context, params sweep.ParamSet) (any, error) {
			cfg := applyVegasParamSet(strategy.DefaultVegasConfig(), params)
			bundle := indicator.NewVegasBundle(indicator.DefaultVegasBundleConfig())
			eval := strategy.NewVegasEvaluator(cfg, 200)
			engine := backtest.Engine[indicator.VegasBundleValues]{
				Advance:   bundle.Next,
				Evaluate:  eval.Evaluate,
				WindowMin: eval.MinCandles(),
				Risk:      riskCfg,
			}
			return engine.Run(candles), nil
		}, nil
	case "nwe":
		return func(_ context.Context, params sweep.ParamSet) (any, error) {
			cfg := applyNWEParamSet(strategy.DefaultNWEConfig(), params)
			bundle := indicator.NewNWEBundle(indicator.DefaultNWEBundleConfig())
			eval := strategy.NewNWEEvaluator(cfg, 200)
			engine := backtest.Engine[indicator.NWEBundleValues]{
				Advance:   bundle.Next,
				Evaluate:  eval.Evaluate,
				WindowMin: eval.MinCandles(),
				Risk:      riskCfg,
			}
			return engine.Run(candles), nil
		}, nil
	default:
		return nil, fmt.Errorf("sweep: unknown strategy %q, want vegas or nwe", strategyName)
	}
}

// applyVegasParamSet overrides base's fields named by params, per
// VegasConfig's doc comment that field names mirror the grid's parameter
// names directly. Unknown keys are ignored; a key present but of the wrong
// underlying type is left at its base value.
func applyVegasParamSet(base strategy.VegasConfig, params sweep.ParamSet) strategy.VegasConfig {
	if v, ok := floatVal(params, "EmaBreakthroughThreshold"); ok {
		base.EmaBreakthroughThreshold = v
	}
	if v, ok := floatVal(params, "WeightSimpleBreakEma2"); ok {
		base.WeightSimpleBreakEma2 = v
	}
	if v, ok := floatVal(params, "VolumeIncreaseRatio"); ok {
		base.VolumeIncreaseRatio = v
	}
	if v, ok := floatVal(params, "WeightVolumeTrend"); ok {
		base.WeightVolumeTrend = v
	}
	if v, ok := floatVal(params, "EmaTrendBandRatio"); ok {
		base.EmaTrendBandRatio = v
	}
	if v, ok := floatVal(params, "WeightEmaTrend"); ok {
		base.WeightEmaTrend = v
	}
	if v, ok := floatVal(params, "RsiOversold"); ok {
		base.RsiOversold = v
	}
	if v, ok := floatVal(params, "RsiOverbought"); ok {
		base.RsiOverbought = v
	}
	if v, ok := floatVal(params, "WeightRsi"); ok {
		base.WeightRsi = v
	}
	if v, ok := floatVal(params, "WeightBolling"); ok {
		base.WeightBolling = v
	}
	if v, ok := floatVal(params, "EngulfingBodyRatioThreshold"); ok {
		base.EngulfingBodyRatioThreshold = v
	}
	if v, ok := floatVal(params, "WeightEngulfing"); ok {
		base.WeightEngulfing = v
	}
	if v, ok := floatVal(params, "HammerMinAmplitude"); ok {
		base.HammerMinAmplitude = v
	}
	if v, ok := floatVal(params, "HammerMinVolume"); ok {
		base.HammerMinVolume = v
	}
	if v, ok := floatVal(params, "WeightKlineHammer"); ok {
		base.WeightKlineHammer = v
	}
	if v, ok := floatVal(params, "FakeBreakoutMinVolumeRatio"); ok {
		base.FakeBreakoutMinVolumeRatio = v
	}
	if v, ok := floatVal(params, "WeightFakeBreakout"); ok {
		base.WeightFakeBreakout = v
	}
	if v, ok := floatVal(params, "WeightLegDetection"); ok {
		base.WeightLegDetection = v
	}
	if v, ok := floatVal(params, "MinTotalWeight"); ok {
		base.MinTotalWeight = v
	}
	if v, ok := boolVal(params, "UseCounterTrendTP"); ok {
		base.UseCounterTrendTP = v
	}
	if v, ok := floatVal(params, "AtrStopMultiplier"); ok {
		base.AtrStopMultiplier = v
	}
	if v, ok := boolVal(params, "VolumeDecreasingFilterEnabled"); ok {
		base.VolumeDecreasingFilterEnabled = v
	}
	if v, ok := boolVal(params, "Period4H"); ok {
		base.Period4H = v
	}
	return base
}

func applyNWEParamSet(base strategy.NWEConfig, params sweep.ParamSet) strategy.NWEConfig {
	if v, ok := floatVal(params, "RsiOversold"); ok {
		base.RsiOversold = v
	}
	if v, ok := floatVal(params, "RsiOverbought"); ok {
		base.RsiOverbought = v
	}
	if v, ok := floatVal(params, "AtrStopMultiplier"); ok {
		base.AtrStopMultiplier = v
	}
	return base
}

// floatVal extracts a float64 from params[key], tolerating YAML's int vs
// float64 scalar decoding.
func floatVal(params sweep.ParamSet, key string) (float64, bool) {
	v, ok := params[key]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func boolVal(params sweep.ParamSet, key string) (bool, bool) {
	v, ok := params[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// printBest ranks results by final funds descending and prints the top 10,
// matching cmd/backtest's plain field-per-line summary texture.
func printBest(results []sweep.Result) {
	ranked := make([]sweep.Result, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			ranked = append(ranked, r)
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		bi, oki := ranked[i].Output.(backtest.BackTestResult)
		bj, okj := ranked[j].Output.(backtest.BackTestResult)
		if !oki || !okj {
			return false
		}
		return bi.Funds > bj.Funds
	})

	fmt.Println()
	fmt.Println("==== SWEEP COMPLETE ====")
	fmt.Printf("combinations run: %d\n", len(results))
	n := len(ranked)
	if n > 10 {
		n = 10
	}
	for i := 0; i < n; i++ {
		bt, ok := ranked[i].Output.(backtest.BackTestResult)
		if !ok {
			continue
		}
		fmt.Printf("  #%d funds=%.4f win_rate=%.2f%% trades=%d params=%v\n",
			i+1, bt.Funds, bt.WinRate*100, bt.TradeCount, ranked[i].Params)
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
