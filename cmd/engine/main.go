// cmd/engine runs the live execution loop: it subscribes to the exchange's
// candle WebSocket feed, drives every active (instrument, period, strategy
// family) key through the shared cache/strategy/risk pipeline, and places
// orders through the real exchange REST adapter. Scheduler ticks provide a
// backup trigger per spec §4.H(b) in case a WS delivery is missed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rkvolt/perpswap-engine/internal/breaker"
	"github.com/rkvolt/perpswap-engine/internal/cache"
	"github.com/rkvolt/perpswap-engine/internal/candle"
	"github.com/rkvolt/perpswap-engine/internal/config"
	"github.com/rkvolt/perpswap-engine/internal/exchange"
	"github.com/rkvolt/perpswap-engine/internal/execution"
	"github.com/rkvolt/perpswap-engine/internal/indicator"
	"github.com/rkvolt/perpswap-engine/internal/logger"
	"github.com/rkvolt/perpswap-engine/internal/markethours"
	"github.com/rkvolt/perpswap-engine/internal/metrics"
	"github.com/rkvolt/perpswap-engine/internal/notification"
	"github.com/rkvolt/perpswap-engine/internal/risk"
	"github.com/rkvolt/perpswap-engine/internal/scheduler"
	redisstore "github.com/rkvolt/perpswap-engine/internal/store/redis"
	"github.com/rkvolt/perpswap-engine/internal/store/mysql"
	"github.com/rkvolt/perpswap-engine/internal/store/sqlite"
	"github.com/rkvolt/perpswap-engine/internal/strategy"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// shutdownBudget is the aggregate cooperative-shutdown timeout (spec §5).
const shutdownBudget = 30 * time.Second

func main() {
	cfg := config.Load()
	log := logger.Init("perpswap-engine", zapcore.InfoLevel)
	defer log.Sync()

	health := &metrics.HealthStatus{}
	m := metrics.NewMetrics()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil {
			log.Warn("metrics server stopped", zap.Error(err))
		}
	}()

	redisClient, err := redisstore.New(redisstore.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}, log)
	if err != nil {
		log.Fatal("redis connect failed", zap.Error(err))
	}
	defer redisClient.Close()
	health.SetRedisConnected(true)
	dedupMirror := redisstore.NewDedupMirror(redisClient)
	streamWriter := redisstore.NewStreamWriter(redisClient)

	var store *mysql.Writer
	if cfg.MySQLDSN != "" {
		store, err = mysql.New(cfg.MySQLDSN, m, log)
		if err != nil {
			log.Fatal("mysql connect failed", zap.Error(err))
		}
		defer store.Close()
		health.SetMySQLConnected(true)
	}

	journal, err := sqlite.NewJournal(cfg.SQLitePath, log)
	if err != nil {
		log.Fatal("sqlite journal open failed", zap.Error(err))
	}
	defer journal.Close()

	notifier := buildNotifier(log)

	restClient := exchange.New(exchange.Config{
		BaseURL:    cfg.ExchangeBaseURL,
		APIKey:     cfg.ExchangeAPIKey,
		APISecret:  cfg.ExchangeSecret,
		Passphrase: cfg.ExchangePassphrase,
	}, cfg.ExchangeMaxReqHour, log)
	restClient.Breaker().OnStateChange = func(from, to breaker.State) {
		m.ExchangeCircuitBreakerState.Set(float64(to))
		if to == breaker.StateOpen {
			m.ExchangeCircuitBreakerTrips.Inc()
			notifier.Send(context.Background(), notification.CircuitBreakerTripped("exchange-rest"))
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received, draining")
		cancel()
	}()

	vegasLoop := newVegasLoop(cfg.KMax, restClient, journal, log)
	nweLoop := newNWELoop(cfg.KMax, restClient, journal, log)

	ws := exchange.NewWSClient(cfg.ExchangeWSURL, log)
	periods := map[candle.Period]struct{}{}
	for _, ik := range cfg.Instruments {
		p := candle.Period(ik.Period)
		ws.Subscribe(ik.Inst, p)
		periods[p] = struct{}{}
	}

	candleCh := make(chan exchange.CandleEvent, 1000)
	go func() {
		if err := ws.Run(ctx, candleCh); err != nil && ctx.Err() == nil {
			log.Error("ws client stopped", zap.Error(err))
			notifier.Send(ctx, notification.CircuitBreakerTripped("exchange-ws"))
		}
	}()
	health.SetExchangeWS(true)

	registerScheduler(cfg, periods, func(inst string, period candle.Period) {
		dispatchFromStore(ctx, cfg, store, vegasLoop, nweLoop, inst, period, log)
	})
	defer scheduler.Drain()

	go consumeLoop(ctx, cfg, candleCh, store, streamWriter, dedupMirror, vegasLoop, nweLoop, health, log)

	<-ctx.Done()
	drainCtx, drainCancel := context.WithTimeout(context.Background(), shutdownBudget)
	defer drainCancel()
	<-drainCtx.Done()
}

func buildNotifier(log *zap.Logger) notification.Notifier {
	backends := []notification.Notifier{notification.NewLogNotifier(log)}
	if url := os.Getenv("ALERT_WEBHOOK_URL"); url != "" {
		backends = append(backends, notification.NewWebhookNotifier(url, log))
	}
	if token, chatID := os.Getenv("TELEGRAM_BOT_TOKEN"), os.Getenv("TELEGRAM_CHAT_ID"); token != "" && chatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(token, chatID, log))
	}
	return notification.NewFanout(log, backends...)
}

func newVegasLoop(kMax int, placer execution.OrderPlacer, journal *sqlite.Journal, log *zap.Logger) *execution.Loop[*indicator.VegasBundle, indicator.VegasBundleValues] {
	eval := strategy.NewVegasEvaluator(strategy.DefaultVegasConfig(), 200)
	eval.SetBusinessHours(markethours.DefaultUSWindow())
	l := &execution.Loop[*indicator.VegasBundle, indicator.VegasBundleValues]{
		Cache:     cache.NewManager[*indicator.VegasBundle, indicator.VegasBundleValues](kMax),
		Dedup:     execution.NewDedup(),
		Evaluate:  eval.Evaluate,
		NewBundle: func() *indicator.VegasBundle { return indicator.NewVegasBundle(indicator.DefaultVegasBundleConfig()) },
		WindowMin: eval.MinCandles(),
		Risk:      risk.DefaultConfig(),
		Placer:    placer,
		Log:       log,
	}
	l.OnTradeClosed = func(key cache.Key, tr risk.TradeRecord) {
		if err := journal.RecordTrade(key.Inst, string(key.Period), key.StrategyFamily, tr); err != nil {
			log.Warn("journal record trade failed", zap.Error(err))
		}
	}
	go sweepDedup(l.Dedup)
	return l
}

func newNWELoop(kMax int, placer execution.OrderPlacer, journal *sqlite.Journal, log *zap.Logger) *execution.Loop[*indicator.NWEBundle, indicator.NWEBundleValues] {
	eval := strategy.NewNWEEvaluator(strategy.DefaultNWEConfig(), 200)
	l := &execution.Loop[*indicator.NWEBundle, indicator.NWEBundleValues]{
		Cache:     cache.NewManager[*indicator.NWEBundle, indicator.NWEBundleValues](kMax),
		Dedup:     execution.NewDedup(),
		Evaluate:  eval.Evaluate,
		NewBundle: func() *indicator.NWEBundle { return indicator.NewNWEBundle(indicator.DefaultNWEBundleConfig()) },
		WindowMin: eval.MinCandles(),
		Risk:      risk.DefaultConfig(),
		Placer:    placer,
		Log:       log,
	}
	l.OnTradeClosed = func(key cache.Key, tr risk.TradeRecord) {
		if err := journal.RecordTrade(key.Inst, string(key.Period), key.StrategyFamily, tr); err != nil {
			log.Warn("journal record trade failed", zap.Error(err))
		}
	}
	go sweepDedup(l.Dedup)
	return l
}

func sweepDedup(d *execution.Dedup) {
	t := time.NewTicker(time.Minute)
	defer t.Stop()
	for now := range t.C {
		d.Sweep(now)
	}
}

// consumeLoop fans WS candle events out to MySQL persistence, the Redis
// stream mirror, and the matching strategy-family Loop.
func consumeLoop(
	ctx context.Context,
	cfg *config.Config,
	candleCh <-chan exchange.CandleEvent,
	store *mysql.Writer,
	streamWriter *redisstore.StreamWriter,
	dedupMirror *redisstore.DedupMirror,
	vegasLoop *execution.Loop[*indicator.VegasBundle, indicator.VegasBundleValues],
	nweLoop *execution.Loop[*indicator.NWEBundle, indicator.NWEBundleValues],
	health *metrics.HealthStatus,
	log *zap.Logger,
) {
	// One (inst, period) can run more than one strategy family (e.g. both
	// vegas and nwe), so every matching config.InstrumentKey gets its own
	// Dispatch call off the same wire event.
	stratsByKey := make(map[string][]string)
	for _, ik := range cfg.Instruments {
		k := ik.Inst + ":" + ik.Period
		stratsByKey[k] = append(stratsByKey[k], ik.Strategy)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-candleCh:
			if !ok {
				return
			}
			health.SetLastCandleTime(time.Now())

			strats := stratsByKey[ev.Inst+":"+string(ev.Period)]
			if len(strats) == 0 {
				continue
			}

			if store != nil && ev.Candle.Confirmed() {
				if err := store.UpsertCandle(ctx, ev.Inst, ev.Period, ev.Candle); err != nil {
					log.Warn("candle upsert failed", zap.Error(err))
				}
				if err := streamWriter.Append(ctx, ev.Inst, ev.Period, ev.Candle); err != nil {
					log.Warn("candle stream append failed", zap.Error(err))
				}
			}

			for _, strategyFamily := range strats {
				key := cache.Key{Inst: ev.Inst, Period: ev.Period, StrategyFamily: strategyFamily}
				if won, err := dedupMirror.TryMarkProcessing(ctx, key, ev.Candle.TS); err != nil {
					log.Warn("dedup mirror check failed, falling back to in-process dedup", zap.Error(err))
				} else if !won {
					continue
				}
				switch strategyFamily {
				case "vegas":
					vegasLoop.Dispatch(ctx, key, ev.Candle)
				case "nwe":
					nweLoop.Dispatch(ctx, key, ev.Candle)
				}
				if err := dedupMirror.MarkCompleted(ctx, key, ev.Candle.TS); err != nil {
					log.Warn("dedup mirror release failed", zap.Error(err))
				}
			}
		}
	}
}

// registerScheduler wires one cron job per distinct period, firing fn for
// every instrument at that period's fixed cron expression (spec §6).
func registerScheduler(cfg *config.Config, periods map[candle.Period]struct{}, fn func(inst string, period candle.Period)) {
	for p := range periods {
		expr, err := candle.CronExpr(p)
		if err != nil {
			continue
		}
		period := p
		scheduler.Register(expr, func() {
			for _, ik := range cfg.Instruments {
				if candle.Period(ik.Period) == period {
					fn(ik.Inst, period)
				}
			}
		})
	}
}

// dispatchFromStore re-dispatches the latest persisted candle for
// (inst,period) through the loop of each strategy family configured for it
// — the scheduler-tick backup trigger of
// spec §4.H(b), relying on the dedup map to make this a no-op on the common
// path where the WS event already ran.
func dispatchFromStore(
	ctx context.Context,
	cfg *config.Config,
	store *mysql.Writer,
	vegasLoop *execution.Loop[*indicator.VegasBundle, indicator.VegasBundleValues],
	nweLoop *execution.Loop[*indicator.NWEBundle, indicator.NWEBundleValues],
	inst string,
	period candle.Period,
	log *zap.Logger,
) {
	if store == nil {
		return
	}
	candles, err := store.ReadCandles(ctx, inst, period, 0)
	if err != nil || len(candles) == 0 {
		if err != nil {
			log.Warn("scheduler tick: read candles failed", zap.Error(err))
		}
		return
	}
	latest := candles[len(candles)-1]
	for _, ik := range cfg.Instruments {
		if ik.Inst != inst || candle.Period(ik.Period) != period {
			continue
		}
		key := cache.Key{Inst: inst, Period: period, StrategyFamily: ik.Strategy}
		switch ik.Strategy {
		case "vegas":
			vegasLoop.Dispatch(ctx, key, latest)
		case "nwe":
			nweLoop.Dispatch(ctx, key, latest)
		}
	}
}
