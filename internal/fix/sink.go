// Package fix records FIX-style execution reports. The reports mimic the
// shape of a FIX ExecutionReport (MsgType 8) as JSON; this is a test double,
// not a FIX engine.
package fix

import (
	"encoding/json"
	"sync"

	"github.com/efreitasn/tradesim/internal/domain"
	"github.com/google/uuid"
)

// ExecutionReport is the recorded fill summary for a trade.
type ExecutionReport struct {
	MsgType  string  `json:"MsgType"`  // always "8"
	ExecType string  `json:"ExecType"` // always "0" (new)
	ExecID   string  `json:"ExecID"`
	OrderID  string  `json:"OrderID"`
	LastPx   float64 `json:"LastPx"`
	LastQty  int64   `json:"LastQty"`
}

// Sink is a thread-safe in-memory store of execution reports keyed by
// trade id. A later report for the same trade replaces the earlier one.
type Sink struct {
	mu      sync.RWMutex
	reports map[string]ExecutionReport
}

// NewSink creates an empty Sink.
func NewSink() *Sink {
	return &Sink{
		reports: make(map[string]ExecutionReport),
	}
}

// CreateExecutionReport records a fill of lastQty at lastPx for the trade
// and returns the report. A zero lastQty records a reject report.
func (s *Sink) CreateExecutionReport(tradeID string, lastPx float64, lastQty int64) ExecutionReport {
	report := ExecutionReport{
		MsgType:  "8",
		ExecType: "0",
		ExecID:   uuid.New().String(),
		OrderID:  tradeID,
		LastPx:   lastPx,
		LastQty:  lastQty,
	}

	s.mu.Lock()
	s.reports[tradeID] = report
	s.mu.Unlock()

	return report
}

// ExecutionReport returns the report for the trade. It returns
// domain.ErrReportNotFound if no report has been recorded.
func (s *Sink) ExecutionReport(tradeID string) (ExecutionReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[tradeID]
	if !ok {
		return ExecutionReport{}, domain.ErrReportNotFound
	}
	return report, nil
}

// MarshalFIX renders the report as its JSON wire form.
func (r ExecutionReport) MarshalFIX() ([]byte, error) {
	return json.Marshal(r)
}
