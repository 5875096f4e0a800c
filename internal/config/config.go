// Package config loads process configuration: environment variables for
// secrets/connection strings (teacher's mustEnv/getEnv convention), plus a
// YAML parameter-grid file for strategy and sweep parameters.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds every environment-sourced setting the engine needs.
type Config struct {
	ExchangeAPIKey     string
	ExchangeSecret     string
	ExchangePassphrase string
	ExchangeBaseURL    string
	ExchangeWSURL      string
	ExchangeMaxReqHour int

	RedisAddr     string
	RedisPassword string
	MySQLDSN      string
	SQLitePath    string
	MetricsAddr   string

	SnapshotIntervalS int
	KMax              int

	// Instruments is the set of (inst, period, strategy family) keys the
	// live execution loop runs, parsed from a comma-separated
	// "INST:PERIOD:STRATEGY" list (teacher's ENABLED_TFS/SUBSCRIBE_TOKENS
	// comma-list convention, generalized to a three-part key).
	Instruments []InstrumentKey
}

// InstrumentKey names one active (instrument, period, strategy family) the
// live loop should run.
type InstrumentKey struct {
	Inst     string
	Period   string
	Strategy string
}

// Load reads a .env file if present (missing is not an error — production
// deployments inject env vars directly) then builds Config from the
// environment.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] .env load warning: %v", err)
	}

	return &Config{
		ExchangeAPIKey:     mustEnv("EXCHANGE_API_KEY"),
		ExchangeSecret:     mustEnv("EXCHANGE_SECRET"),
		ExchangePassphrase: mustEnv("EXCHANGE_PASSPHRASE"),
		ExchangeBaseURL:    getEnv("EXCHANGE_BASE_URL", "https://www.okx.com"),
		ExchangeWSURL:      getEnv("EXCHANGE_WS_URL", "wss://ws.okx.com:8443/ws/v5/business"),
		ExchangeMaxReqHour: getEnvInt("EXCHANGE_MAX_REQ_HOUR", 480),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MySQLDSN:      getEnv("MYSQL_DSN", ""),
		SQLitePath:    getEnv("SQLITE_PATH", "data/journal.db"),
		MetricsAddr:   getEnv("METRICS_ADDR", ":9090"),

		SnapshotIntervalS: getEnvInt("SNAPSHOT_INTERVAL_S", 30),
		KMax:              getEnvInt("CACHE_K_MAX", 10_000),

		Instruments: parseInstruments(getEnv("ENGINE_INSTRUMENTS", "BTC-USDT-SWAP:1H:vegas")),
	}
}

// parseInstruments parses a comma-separated "INST:PERIOD:STRATEGY" list.
// Malformed entries are skipped with a log line rather than aborting
// startup, matching the teacher's parseTFs tolerance for bad list entries.
func parseInstruments(s string) []InstrumentKey {
	var out []InstrumentKey
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Split(part, ":")
		if len(fields) != 3 {
			log.Printf("[config] skipping malformed instrument entry %q", part)
			continue
		}
		out = append(out, InstrumentKey{Inst: fields[0], Period: fields[1], Strategy: fields[2]})
	}
	return out
}

func mustEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		log.Fatalf("[config] required env var %s not set", key)
	}
	return v
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] invalid int for %s=%q, using default %d", key, v, fallback)
		return fallback
	}
	return n
}
