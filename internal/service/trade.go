package service

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"sync"

	"github.com/google/uuid"

	"github.com/efreitasn/tradesim/internal/domain"
	"github.com/efreitasn/tradesim/internal/engine"
	"github.com/efreitasn/tradesim/internal/exposure"
	"github.com/efreitasn/tradesim/internal/store"
)

var (
	isinRegex   = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{2,10}$`)
	traderRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
)

// ExposureBreachReason is the rejection reason recorded when the exposure
// gate denies a trade at admission.
const ExposureBreachReason = "Exposure breach"

// CreateTradeRequest represents the input for trade creation.
type CreateTradeRequest struct {
	ISIN       string
	Trader     string
	Quantity   int64
	LimitPrice float64
}

// CreateTradeResult is the outcome of a creation request. For duplicates,
// TradeID is the id of the originally created trade and State is DUPLICATE.
type CreateTradeResult struct {
	TradeID   string
	State     domain.TradeState
	Reason    string
	Duplicate bool
}

// TradeService handles trade creation, retrieval, listing, and cancellation.
// It is the gateway in front of the execution engine: validation, instrument
// whitelist check, duplicate-request detection, and the exposure pre-check
// all happen here, before a trade is handed to the executor.
type TradeService struct {
	tradeStore  *store.TradeStore
	executor    *engine.Executor
	gate        *exposure.Gate
	instruments *domain.InstrumentRegistry

	mu   sync.Mutex
	seen map[uint64]string // request fingerprint -> first trade id
}

// NewTradeService creates a new TradeService with the given dependencies.
func NewTradeService(
	tradeStore *store.TradeStore,
	executor *engine.Executor,
	gate *exposure.Gate,
	instruments *domain.InstrumentRegistry,
) *TradeService {
	return &TradeService{
		tradeStore:  tradeStore,
		executor:    executor,
		gate:        gate,
		instruments: instruments,
		seen:        make(map[uint64]string),
	}
}

// CreateTrade validates the request, rejects duplicates and exposure
// breaches, then creates the trade and submits it for asynchronous
// execution. It returns as soon as the trade is enqueued; execution progress
// is observed through the store.
func (s *TradeService) CreateTrade(req CreateTradeRequest) (CreateTradeResult, error) {
	if !isinRegex.MatchString(req.ISIN) {
		return CreateTradeResult{}, &domain.ValidationError{
			Message: "isin must match ^[A-Z]{2}[A-Z0-9]{2,10}$",
		}
	}
	if !traderRegex.MatchString(req.Trader) {
		return CreateTradeResult{}, &domain.ValidationError{
			Message: "trader must match ^[a-zA-Z0-9_-]{1,64}$",
		}
	}
	if req.Quantity <= 0 {
		return CreateTradeResult{}, &domain.ValidationError{
			Message: "quantity must be a positive integer",
		}
	}

	if !s.instruments.Exists(req.ISIN) {
		return CreateTradeResult{}, domain.ErrInstrumentNotFound
	}

	fp := fingerprint(req)

	s.mu.Lock()
	if existingID, ok := s.seen[fp]; ok {
		s.mu.Unlock()
		return CreateTradeResult{
			TradeID:   existingID,
			State:     domain.TradeStateDuplicate,
			Duplicate: true,
		}, nil
	}

	id := uuid.NewString()
	s.seen[fp] = id
	s.mu.Unlock()

	if !s.gate.Allowed(req.Trader, req.Quantity, req.LimitPrice) {
		t := domain.NewTrade(id, req.ISIN, req.Trader, req.Quantity, req.LimitPrice)
		t.SetState(domain.TradeStateRejected)
		t.AddEvent("EXPOSURE_BREACH")
		s.tradeStore.Put(t)
		return CreateTradeResult{
			TradeID: id,
			State:   domain.TradeStateRejected,
			Reason:  ExposureBreachReason,
		}, nil
	}

	s.tradeStore.Put(domain.NewTrade(id, req.ISIN, req.Trader, req.Quantity, req.LimitPrice))
	s.executor.Submit(id)

	return CreateTradeResult{TradeID: id, State: domain.TradeStateCreated}, nil
}

// GetTrade returns a snapshot of the trade.
func (s *TradeService) GetTrade(tradeID string) (*domain.Trade, error) {
	return s.tradeStore.Get(tradeID)
}

// ListTrades returns snapshots of all trades.
func (s *TradeService) ListTrades() []*domain.Trade {
	return s.tradeStore.All()
}

// CancelTrade cancels the trade if it has not yet reached a terminal state.
// It returns cancelled=false (with no error) when the trade exists but is
// already terminal, and ErrTradeNotFound when it does not exist.
func (s *TradeService) CancelTrade(tradeID string) (bool, error) {
	if _, err := s.tradeStore.Get(tradeID); err != nil {
		return false, err
	}
	return s.executor.Cancel(tradeID), nil
}

// fingerprint hashes the identifying request fields so that resubmissions of
// the same trade are detected for the lifetime of the process.
func fingerprint(req CreateTradeRequest) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s|%s|%s",
		req.ISIN,
		req.Trader,
		strconv.FormatInt(req.Quantity, 10),
		strconv.FormatFloat(req.LimitPrice, 'f', -1, 64),
	)
	return h.Sum64()
}
