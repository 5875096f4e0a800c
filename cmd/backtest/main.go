// cmd/backtest replays a historical candle sequence for one (instrument,
// period) through the Vegas or NWE bundle, strategy evaluator, and risk
// state machine, sharing every code path the live execution loop uses, and
// prints the resulting trade log and shadow-trade summary.
//
// Usage:
//
//	go run ./cmd/backtest --inst=BTC-USDT-SWAP --period=1H --strategy=vegas --mysql-dsn=...
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rkvolt/perpswap-engine/internal/backtest"
	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/indicator"
	"github.com/rkvolt/perpswap-engine/internal/logger"
	"github.com/rkvolt/perpswap-engine/internal/metrics"
	"github.com/rkvolt/perpswap-engine/internal/risk"
	"github.com/rkvolt/perpswap-engine/internal/store/mysql"
	"github.com/rkvolt/perpswap-engine/internal/strategy"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	inst := flag.String("inst", "BTC-USDT-SWAP", "instrument id")
	period := flag.String("period", "1H", "candle period (1m,3m,5m,15m,1H,4H,1D,1Dutc)")
	strategyName := flag.String("strategy", "vegas", "strategy family: vegas or nwe")
	fromTS := flag.Int64("from", 0, "unix-ms timestamp to start replay from (0=all)")
	dsn := flag.String("mysql-dsn", os.Getenv("MYSQL_DSN"), "MySQL DSN to read confirmed candles from")
	initialFunds := flag.Float64("funds", risk.DefaultConfig().InitialFunds, "initial backtest funds")
	maxLossPercent := flag.Float64("max-loss", risk.DefaultConfig().MaxLossPercent, "max-loss stop threshold, as a fraction")
	flag.Parse()

	log := logger.Init("perpswap-backtest", zapcore.InfoLevel)
	defer log.Sync()

	if *dsn == "" {
		fmt.Fprintln(os.Stderr, "[backtest] --mysql-dsn (or MYSQL_DSN) is required")
		os.Exit(1)
	}

	store, err := mysql.New(*dsn, metrics.NewMetrics(), log)
	if err != nil {
		log.Fatal("mysql open failed", zap.Error(err))
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	candles, err := store.ReadCandles(ctx, *inst, candle.Period(*period), *fromTS)
	if err != nil {
		log.Fatal("read candles failed", zap.Error(err))
	}
	if len(candles) == 0 {
		fmt.Printf("[backtest] no confirmed candles found for %s %s after ts=%d\n", *inst, *period, *fromTS)
		return
	}

	riskCfg := risk.Config{InitialFunds: *initialFunds, MaxLossPercent: *maxLossPercent}
	result, err := run(*strategyName, candles, riskCfg)
	if err != nil {
		log.Fatal("backtest run failed", zap.Error(err))
	}

	printSummary(*inst, *period, *strategyName, candles, result)
}

// run dispatches to the Vegas or NWE backtest.Engine instantiation. The two
// strategy families differ only in the bundle value type V the generic
// Engine is instantiated with, per spec §4.C/D.
func run(strategyName string, candles []candle.Candle, riskCfg risk.Config) (backtest.BackTestResult, error) {
	switch strategyName {
	case "vegas":
		bundle := indicator.NewVegasBundle(indicator.DefaultVegasBundleConfig())
		eval := strategy.NewVegasEvaluator(strategy.DefaultVegasConfig(), 200)
		engine := backtest.Engine[indicator.VegasBundleValues]{
			Advance:   bundle.Next,
			Evaluate:  eval.Evaluate,
			WindowMin: eval.MinCandles(),
			Risk:      riskCfg,
		}
		return engine.Run(candles), nil
	case "nwe":
		bundle := indicator.NewNWEBundle(indicator.DefaultNWEBundleConfig())
		eval := strategy.NewNWEEvaluator(strategy.DefaultNWEConfig(), 200)
		engine := backtest.Engine[indicator.NWEBundleValues]{
			Advance:   bundle.Next,
			Evaluate:  eval.Evaluate,
			WindowMin: eval.MinCandles(),
			Risk:      riskCfg,
		}
		return engine.Run(candles), nil
	default:
		return backtest.BackTestResult{}, fmt.Errorf("backtest: unknown strategy %q, want vegas or nwe", strategyName)
	}
}

func printSummary(inst, period, strategyName string, candles []candle.Candle, result backtest.BackTestResult) {
	fmt.Println()
	fmt.Println("==== BACKTEST COMPLETE ====")
	fmt.Printf("instrument:        %s\n", inst)
	fmt.Printf("period:            %s\n", period)
	fmt.Printf("strategy:          %s\n", strategyName)
	fmt.Printf("candles replayed:  %d\n", len(candles))
	fmt.Printf("final funds:       %.4f\n", result.Funds)
	fmt.Printf("win rate:          %.2f%%\n", result.WinRate*100)
	fmt.Printf("trade count:       %d\n", result.TradeCount)
	fmt.Printf("shadow signals:    %d\n", len(result.FilteredSignals))

	n := len(result.TradeRecords)
	if n > 10 {
		n = 10
	}
	for i := 0; i < n; i++ {
		t := result.TradeRecords[i]
		fmt.Printf("  trade[%d] side=%s entry=%.2f exit=%.2f net=%.4f win=%v reason=%s\n",
			i, sideLabel(t.Side), t.EntryPrice, t.ExitPrice, t.NetProfit, t.Win, t.Reason)
	}
	if len(result.TradeRecords) > n {
		fmt.Printf("  ... %d more trades\n", len(result.TradeRecords)-n)
	}
}

func sideLabel(s risk.Side) string {
	if s == risk.SideLong {
		return "long"
	}
	return "short"
}
