package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the trade simulator.
type Config struct {
	Port     int
	LogLevel string

	// Instrument universe served by the market feed.
	ISINs []string

	// Market feed.
	TickInterval  time.Duration
	AverageWindow int // ticks per rolling average

	// Execution engine.
	Workers                 int
	MaxAttempts             int
	BackoffBase             time.Duration
	DeviationTolerance      float64
	TransientFailureProb    float64
	PartialFillProb         float64
	ConfirmationFailureProb float64
	FailurePauseMin         time.Duration
	FailurePauseMax         time.Duration
	PartialFollowUpMin      time.Duration
	PartialFollowUpMax      time.Duration
	ConfirmationDelayMin    time.Duration
	ConfirmationDelayMax    time.Duration

	// Exposure gate.
	ExposureLimits       map[string]float64
	ExposureDefaultLimit float64

	// Seed for the engine's probability rolls and the feed's random walk.
	// 0 means "derive from the clock".
	RandomSeed int64

	// HTTP server.
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	isins := getList("ISINS", []string{"US0001", "US0002", "US0003", "GB0001", "JP0001"})

	tickInterval, err := getDuration("TICK_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid TICK_INTERVAL: %w", err)
	}

	averageWindow, err := getInt("AVERAGE_WINDOW", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid AVERAGE_WINDOW: %w", err)
	}
	if averageWindow < 1 {
		return nil, fmt.Errorf("invalid AVERAGE_WINDOW: must be >= 1, got %d", averageWindow)
	}

	workers, err := getInt("WORKER_COUNT", 8)
	if err != nil {
		return nil, fmt.Errorf("invalid WORKER_COUNT: %w", err)
	}
	if workers < 1 {
		return nil, fmt.Errorf("invalid WORKER_COUNT: must be >= 1, got %d", workers)
	}

	maxAttempts, err := getInt("MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, fmt.Errorf("invalid MAX_ATTEMPTS: %w", err)
	}
	if maxAttempts < 1 {
		return nil, fmt.Errorf("invalid MAX_ATTEMPTS: must be >= 1, got %d", maxAttempts)
	}

	backoffBase, err := getDuration("BACKOFF_BASE", 400*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid BACKOFF_BASE: %w", err)
	}

	deviationTolerance, err := getFloat("DEVIATION_TOLERANCE", 0.10)
	if err != nil {
		return nil, fmt.Errorf("invalid DEVIATION_TOLERANCE: %w", err)
	}
	if deviationTolerance <= 0 {
		return nil, fmt.Errorf("invalid DEVIATION_TOLERANCE: must be > 0, got %g", deviationTolerance)
	}

	transientFailureProb, err := getProb("TRANSIENT_FAILURE_PROB", 0.12)
	if err != nil {
		return nil, err
	}
	partialFillProb, err := getProb("PARTIAL_FILL_PROB", 0.25)
	if err != nil {
		return nil, err
	}
	confirmationFailureProb, err := getProb("CONFIRMATION_FAILURE_PROB", 0.08)
	if err != nil {
		return nil, err
	}

	exposureLimits, err := getLimits("EXPOSURE_LIMITS", map[string]float64{
		"TRADER1": 1_000_000,
		"TRADER2": 500_000,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid EXPOSURE_LIMITS: %w", err)
	}

	exposureDefaultLimit, err := getFloat("EXPOSURE_DEFAULT_LIMIT", 250_000)
	if err != nil {
		return nil, fmt.Errorf("invalid EXPOSURE_DEFAULT_LIMIT: %w", err)
	}
	if exposureDefaultLimit < 0 {
		return nil, fmt.Errorf("invalid EXPOSURE_DEFAULT_LIMIT: must be >= 0, got %g", exposureDefaultLimit)
	}

	randomSeed, err := getInt("RANDOM_SEED", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid RANDOM_SEED: %w", err)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                    port,
		LogLevel:                logLevel,
		ISINs:                   isins,
		TickInterval:            tickInterval,
		AverageWindow:           averageWindow,
		Workers:                 workers,
		MaxAttempts:             maxAttempts,
		BackoffBase:             backoffBase,
		DeviationTolerance:      deviationTolerance,
		TransientFailureProb:    transientFailureProb,
		PartialFillProb:         partialFillProb,
		ConfirmationFailureProb: confirmationFailureProb,
		FailurePauseMin:         100 * time.Millisecond,
		FailurePauseMax:         400 * time.Millisecond,
		PartialFollowUpMin:      300 * time.Millisecond,
		PartialFollowUpMax:      700 * time.Millisecond,
		ConfirmationDelayMin:    200 * time.Millisecond,
		ConfirmationDelayMax:    600 * time.Millisecond,
		ExposureLimits:          exposureLimits,
		ExposureDefaultLimit:    exposureDefaultLimit,
		RandomSeed:              int64(randomSeed),
		ReadTimeout:             readTimeout,
		WriteTimeout:            writeTimeout,
		IdleTimeout:             idleTimeout,
		ShutdownTimeout:         shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

// getProb reads a probability env var and validates it is within [0, 1].
func getProb(key string, defaultVal float64) (float64, error) {
	p, err := getFloat(key, defaultVal)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if p < 0 || p > 1 {
		return 0, fmt.Errorf("invalid %s: must be within [0, 1], got %g", key, p)
	}
	return p, nil
}

// getLimits parses "TRADER1=1000000,TRADER2=500000" into per-trader limits.
func getLimits(key string, defaultVal map[string]float64) (map[string]float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}

	out := make(map[string]float64)
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		trader, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("entry %q must be trader=limit", pair)
		}
		limit, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", pair, err)
		}
		if limit < 0 {
			return nil, fmt.Errorf("entry %q: limit must be >= 0", pair)
		}
		out[strings.TrimSpace(trader)] = limit
	}
	if len(out) == 0 {
		return defaultVal, nil
	}
	return out, nil
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
