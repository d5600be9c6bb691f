package domain

import "time"

// TradeState represents the lifecycle state of a trade.
type TradeState string

const (
	TradeStateCreated             TradeState = "CREATED"
	TradeStateRetry               TradeState = "RETRY"
	TradeStatePartial             TradeState = "PARTIAL"
	TradeStateExecuted            TradeState = "EXECUTED"
	TradeStatePendingConfirmation TradeState = "PENDING_CONFIRMATION"
	TradeStateConfirmed           TradeState = "CONFIRMED"
	TradeStateRejected            TradeState = "REJECTED"
	TradeStateCancelled           TradeState = "CANCELLED"
)

// TradeStateDuplicate is a transport-level response label for duplicate
// creation requests. It is never stored on a trade.
const TradeStateDuplicate TradeState = "DUPLICATE"

// Terminal returns true if the state admits no further transitions.
func (s TradeState) Terminal() bool {
	switch s {
	case TradeStateConfirmed, TradeStateRejected, TradeStateCancelled:
		return true
	}
	return false
}

// Trade represents a trade order from creation through settlement.
// ID, ISIN, Trader, Quantity, and LimitPrice are immutable after creation;
// the remaining fields are mutated exclusively by the execution engine and
// the cancel operation, under the store's per-trade lock.
type Trade struct {
	ID         string
	ISIN       string
	Trader     string
	Quantity   int64
	LimitPrice float64 // <= 0 means "execute at market price"

	Filled         int64
	ExecutionPrice float64
	State          TradeState
	Attempts       int

	ExecutionStartedAt int64 // unix millis, 0 until the first attempt
	ExecutionEndedAt   int64

	// History is the append-only sequence of state labels and event labels.
	// The last entry is always the current state's canonical label or the
	// most recent event.
	History []string

	CreatedAt time.Time
}

// NewTrade creates a trade in state CREATED with "CREATED" as the first
// history entry.
func NewTrade(id, isin, trader string, quantity int64, limitPrice float64) *Trade {
	t := &Trade{
		ID:         id,
		ISIN:       isin,
		Trader:     trader,
		Quantity:   quantity,
		LimitPrice: limitPrice,
		State:      TradeStateCreated,
		CreatedAt:  time.Now().UTC(),
	}
	t.History = append(t.History, string(TradeStateCreated))
	return t
}

// SetState transitions the trade to s and appends the canonical state label
// to history.
func (t *Trade) SetState(s TradeState) {
	t.State = s
	t.History = append(t.History, string(s))
}

// AddEvent appends an event label (e.g. "PARTIAL_FILL:10") to history.
func (t *Trade) AddEvent(label string) {
	t.History = append(t.History, label)
}

// AddFilled increases the filled quantity by qty.
func (t *Trade) AddFilled(qty int64) {
	t.Filled += qty
}

// Remaining returns the unfilled quantity.
func (t *Trade) Remaining() int64 {
	return t.Quantity - t.Filled
}

// Clone returns a deep copy of the trade. The history slice is copied so
// callers can hold the snapshot while the engine keeps appending to the
// live record.
func (t *Trade) Clone() *Trade {
	c := *t
	c.History = make([]string, len(t.History))
	copy(c.History, t.History)
	return &c
}
