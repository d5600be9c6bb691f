package engine

import (
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/efreitasn/tradesim/internal/domain"
	"github.com/efreitasn/tradesim/internal/fix"
	"github.com/efreitasn/tradesim/internal/store"
)

// MarketData is the market feed contract the executor consumes.
type MarketData interface {
	// Latest returns the most recent tick; it never errors and returns a
	// synthetic default tick for unknown instruments.
	Latest(isin string) domain.MarketTick
	// AveragePrice returns the rolling average over the given window, or a
	// negative value when no data is available (which disables the
	// deviation guard for that attempt).
	AveragePrice(isin string, window int) float64
}

// ReportSink records execution reports keyed by trade id.
type ReportSink interface {
	CreateExecutionReport(tradeID string, lastPx float64, lastQty int64) fix.ExecutionReport
}

// ExposureRecorder accumulates confirmed notional per trader.
type ExposureRecorder interface {
	Add(trader string, notional float64)
}

// Config holds the executor's tunables.
type Config struct {
	MaxAttempts        int
	BackoffBase        time.Duration
	DeviationTolerance float64
	AverageWindow      int

	// ForcePartialTrader and ForcePartialLimit are independent predicates:
	// a trade matching either one always takes the partial-fill path.
	ForcePartialTrader string
	ForcePartialLimit  float64
}

// Executor drives each trade through its state machine: retried execution
// attempts with linear backoff, the price-deviation guard, partial/full fill
// decisions, and scheduling of delayed continuations (partial-fill follow-up
// and confirmation). All trade mutations happen inside store.Update, under
// the per-trade lock, so attempts never race with cancellation.
type Executor struct {
	store  *store.TradeStore
	market MarketData
	sink   ReportSink
	gate   ExposureRecorder
	sched  *Scheduler
	rnd    Randomizer
	logger *slog.Logger
	cfg    Config
}

// NewExecutor creates an executor. A nil logger falls back to slog.Default.
func NewExecutor(
	tradeStore *store.TradeStore,
	market MarketData,
	sink ReportSink,
	gate ExposureRecorder,
	sched *Scheduler,
	rnd Randomizer,
	cfg Config,
	logger *slog.Logger,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		store:  tradeStore,
		market: market,
		sink:   sink,
		gate:   gate,
		sched:  sched,
		rnd:    rnd,
		logger: logger,
		cfg:    cfg,
	}
}

// Submit enqueues the trade's first execution attempt on the worker pool
// and returns immediately.
func (e *Executor) Submit(tradeID string) {
	e.sched.Submit(func() { e.runExecution(tradeID) })
}

// Cancel transitions the trade to CANCELLED. It returns false if the trade
// does not exist or is already in a terminal state. The transition runs
// under the per-trade lock, so it is serialized against any in-flight
// execution step for the same trade.
func (e *Executor) Cancel(tradeID string) bool {
	cancelled := false
	err := e.store.Update(tradeID, func(t *domain.Trade) {
		if t.State.Terminal() {
			return
		}
		t.SetState(domain.TradeStateCancelled)
		cancelled = true
	})
	if err != nil {
		return false
	}
	if cancelled {
		e.logger.Info("trade cancelled", slog.String("trade_id", tradeID))
	}
	return cancelled
}

// attemptKind classifies the outcome of one execution attempt.
type attemptKind int

const (
	// attemptHalt: the trade was observed cancelled or otherwise terminal;
	// the attempt was a no-op.
	attemptHalt attemptKind = iota
	// attemptRetry: a simulated transient failure; pause, back off, retry.
	attemptRetry
	// attemptRejectedDeviation: the execution price breached the deviation
	// tolerance; terminal, bypasses retry.
	attemptRejectedDeviation
	// attemptAlreadyComplete: nothing remained to fill; the trade went
	// straight to CONFIRMED.
	attemptAlreadyComplete
	// attemptPartial: a partial fill; a follow-up attempt is scheduled.
	attemptPartial
	// attemptFull: a full fill; the confirmation step is scheduled.
	attemptFull
)

// attemptResult carries what the attempt decided, so reports, exposure
// updates, and scheduling happen after the per-trade lock is released.
type attemptResult struct {
	kind     attemptKind
	price    float64
	fillQty  int64
	pause    time.Duration
	trader   string
	notional float64
}

// runExecution performs execution attempts for the trade until it reaches a
// terminal state, schedules a continuation, or exhausts the attempt cap.
// The loop is structurally bounded by MaxAttempts; it never runs forever.
func (e *Executor) runExecution(tradeID string) {
	for attempt := 1; attempt <= e.cfg.MaxAttempts; attempt++ {
		res, err := e.attempt(tradeID)
		if err != nil {
			return
		}

		switch res.kind {
		case attemptHalt:
			return

		case attemptAlreadyComplete:
			e.gate.Add(res.trader, res.notional)
			e.logger.Info("trade confirmed", slog.String("trade_id", tradeID))
			return

		case attemptRejectedDeviation:
			e.sink.CreateExecutionReport(tradeID, res.price, 0)
			e.logger.Info("trade rejected on price deviation",
				slog.String("trade_id", tradeID),
				slog.Float64("price", res.price),
			)
			return

		case attemptPartial:
			e.sink.CreateExecutionReport(tradeID, res.price, res.fillQty)
			delay := e.rnd.PartialFollowUpDelay()
			e.logger.Debug("partial fill, follow-up scheduled",
				slog.String("trade_id", tradeID),
				slog.Int64("quantity", res.fillQty),
				slog.Duration("delay", delay),
			)
			e.sched.After(delay, func() { e.runExecution(tradeID) })
			return

		case attemptFull:
			e.sink.CreateExecutionReport(tradeID, res.price, res.fillQty)
			delay := e.rnd.ConfirmationDelay()
			e.logger.Debug("full fill, confirmation scheduled",
				slog.String("trade_id", tradeID),
				slog.Int64("quantity", res.fillQty),
				slog.Duration("delay", delay),
			)
			e.sched.After(delay, func() { e.confirm(tradeID) })
			return

		case attemptRetry:
			// The in-flight pause always completes; the next attempt
			// re-checks for cancellation at its entry point.
			time.Sleep(res.pause + e.cfg.BackoffBase*time.Duration(attempt))
		}
	}

	e.exhaustRetries(tradeID)
}

// attempt performs a single execution attempt under the per-trade lock:
// cancellation check, transient-failure roll, price decision, deviation
// guard, then the fill decision.
func (e *Executor) attempt(tradeID string) (attemptResult, error) {
	var res attemptResult
	err := e.store.Update(tradeID, func(t *domain.Trade) {
		if t.State.Terminal() {
			res.kind = attemptHalt
			return
		}

		t.Attempts++
		t.ExecutionStartedAt = time.Now().UnixMilli()

		if e.rnd.TransientFailure() {
			t.SetState(domain.TradeStateRetry)
			t.AddEvent("TRANSIENT_FAILURE")
			res.kind = attemptRetry
			res.pause = e.rnd.FailurePause()
			return
		}

		// Execution price: the limit price when valid, else market.
		price := t.LimitPrice
		if price <= 0 {
			price = e.market.Latest(t.ISIN).Price
		}
		t.ExecutionPrice = price
		res.price = price

		// Deviation guard. A negative average means no data, which
		// disables the guard for this attempt.
		if avg := e.market.AveragePrice(t.ISIN, e.cfg.AverageWindow); avg > 0 {
			if math.Abs(price-avg)/avg > e.cfg.DeviationTolerance {
				t.SetState(domain.TradeStateRejected)
				t.AddEvent("REJECTED_PRICE_DEVIATION")
				t.ExecutionEndedAt = time.Now().UnixMilli()
				res.kind = attemptRejectedDeviation
				return
			}
		}

		remaining := t.Remaining()
		if remaining <= 0 {
			// Fully filled by prior continuations.
			t.SetState(domain.TradeStateConfirmed)
			t.ExecutionEndedAt = time.Now().UnixMilli()
			res.kind = attemptAlreadyComplete
			res.trader = t.Trader
			res.notional = t.ExecutionPrice * float64(t.Filled)
			return
		}

		forced := strings.EqualFold(t.Trader, e.cfg.ForcePartialTrader) ||
			t.LimitPrice == e.cfg.ForcePartialLimit
		if forced || e.rnd.PartialFill() {
			qty := remaining / 2
			if qty < 1 {
				qty = 1
			}
			t.AddFilled(qty)
			t.SetState(domain.TradeStatePartial)
			t.AddEvent(fmt.Sprintf("PARTIAL_FILL:%d", qty))
			t.ExecutionEndedAt = time.Now().UnixMilli()
			res.kind = attemptPartial
			res.fillQty = qty
			return
		}

		t.AddFilled(remaining)
		t.SetState(domain.TradeStateExecuted)
		t.AddEvent(fmt.Sprintf("EXECUTED:%d", remaining))
		t.SetState(domain.TradeStatePendingConfirmation)
		t.ExecutionEndedAt = time.Now().UnixMilli()
		res.kind = attemptFull
		res.fillQty = remaining
	})
	return res, err
}

// confirm runs the confirmation step once, after its scheduled delay. It
// re-checks for cancellation first and never re-attempts execution.
func (e *Executor) confirm(tradeID string) {
	var (
		acted     bool
		confirmed bool
		trader    string
		notional  float64
	)
	err := e.store.Update(tradeID, func(t *domain.Trade) {
		if t.State.Terminal() {
			return
		}
		acted = true

		if e.rnd.ConfirmationFailure() {
			t.SetState(domain.TradeStateRejected)
			t.AddEvent("CONFIRMATION_FAILED")
		} else {
			t.SetState(domain.TradeStateConfirmed)
			confirmed = true
			trader = t.Trader
			notional = t.ExecutionPrice * float64(t.Filled)
		}
		t.ExecutionEndedAt = time.Now().UnixMilli()
	})
	if err != nil || !acted {
		return
	}

	if confirmed {
		e.gate.Add(trader, notional)
		e.logger.Info("trade confirmed", slog.String("trade_id", tradeID))
	} else {
		e.logger.Info("trade confirmation failed", slog.String("trade_id", tradeID))
	}
}

// exhaustRetries rejects the trade after the attempt cap is exhausted.
func (e *Executor) exhaustRetries(tradeID string) {
	rejected := false
	err := e.store.Update(tradeID, func(t *domain.Trade) {
		if t.State.Terminal() {
			return
		}
		t.SetState(domain.TradeStateRejected)
		t.AddEvent("REJECTED_AFTER_RETRIES")
		t.ExecutionEndedAt = time.Now().UnixMilli()
		rejected = true
	})
	if err != nil {
		return
	}
	if rejected {
		e.logger.Info("trade rejected after retries",
			slog.String("trade_id", tradeID),
			slog.Int("max_attempts", e.cfg.MaxAttempts),
		)
	}
}
