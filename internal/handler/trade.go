package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/tradesim/internal/domain"
	"github.com/efreitasn/tradesim/internal/service"
)

// TradeHandler handles HTTP requests for trade endpoints.
type TradeHandler struct {
	tradeSvc *service.TradeService
}

// NewTradeHandler creates a new TradeHandler.
func NewTradeHandler(tradeSvc *service.TradeService) *TradeHandler {
	return &TradeHandler{tradeSvc: tradeSvc}
}

// createTradeRequest is the JSON request body for POST /api/trades.
type createTradeRequest struct {
	ISIN       string  `json:"isin"`
	Trader     string  `json:"trader"`
	Quantity   int64   `json:"quantity"`
	LimitPrice float64 `json:"limit_price"`
}

// createTradeResponse is the JSON response for trade creation. Reason is only
// present for trades rejected at admission.
type createTradeResponse struct {
	TradeID string `json:"trade_id"`
	State   string `json:"state"`
	Reason  string `json:"reason,omitempty"`
}

// tradeResponse is the full JSON view of a trade.
type tradeResponse struct {
	TradeID            string   `json:"trade_id"`
	ISIN               string   `json:"isin"`
	Trader             string   `json:"trader"`
	Quantity           int64    `json:"quantity"`
	LimitPrice         float64  `json:"limit_price"`
	Filled             int64    `json:"filled"`
	ExecutionPrice     float64  `json:"execution_price"`
	State              string   `json:"state"`
	Attempts           int      `json:"attempts"`
	ExecutionStartedAt int64    `json:"execution_started_at"`
	ExecutionEndedAt   int64    `json:"execution_ended_at"`
	History            []string `json:"history"`
	CreatedAt          string   `json:"created_at"`
}

// cancelTradeResponse is the JSON response for DELETE /api/trades/{trade_id}.
type cancelTradeResponse struct {
	TradeID   string `json:"trade_id"`
	Cancelled bool   `json:"cancelled"`
}

// CreateTrade handles POST /api/trades. Duplicate requests return 200 with
// the original trade id; admission rejections return 201 with the stored
// REJECTED trade.
func (h *TradeHandler) CreateTrade(w http.ResponseWriter, r *http.Request) {
	var req createTradeRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	res, err := h.tradeSvc.CreateTrade(service.CreateTradeRequest{
		ISIN:       req.ISIN,
		Trader:     req.Trader,
		Quantity:   req.Quantity,
		LimitPrice: req.LimitPrice,
	})
	if err != nil {
		mapTradeError(w, err)
		return
	}

	status := http.StatusCreated
	if res.Duplicate {
		status = http.StatusOK
	}
	WriteJSON(w, status, createTradeResponse{
		TradeID: res.TradeID,
		State:   string(res.State),
		Reason:  res.Reason,
	})
}

// GetTrade handles GET /api/trades/{trade_id}.
func (h *TradeHandler) GetTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "trade_id")

	trade, err := h.tradeSvc.GetTrade(tradeID)
	if err != nil {
		mapTradeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, buildTradeResponse(trade))
}

// ListTrades handles GET /api/trades.
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades := h.tradeSvc.ListTrades()

	resp := make([]tradeResponse, len(trades))
	for i, t := range trades {
		resp[i] = buildTradeResponse(t)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// CancelTrade handles DELETE /api/trades/{trade_id}. Cancelling a settled
// trade is not an error; the response reports cancelled=false.
func (h *TradeHandler) CancelTrade(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "trade_id")

	cancelled, err := h.tradeSvc.CancelTrade(tradeID)
	if err != nil {
		mapTradeError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, cancelTradeResponse{
		TradeID:   tradeID,
		Cancelled: cancelled,
	})
}

func buildTradeResponse(t *domain.Trade) tradeResponse {
	return tradeResponse{
		TradeID:            t.ID,
		ISIN:               t.ISIN,
		Trader:             t.Trader,
		Quantity:           t.Quantity,
		LimitPrice:         t.LimitPrice,
		Filled:             t.Filled,
		ExecutionPrice:     t.ExecutionPrice,
		State:              string(t.State),
		Attempts:           t.Attempts,
		ExecutionStartedAt: t.ExecutionStartedAt,
		ExecutionEndedAt:   t.ExecutionEndedAt,
		History:            t.History,
		CreatedAt:          t.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// mapTradeError maps domain errors to HTTP responses for trade endpoints.
func mapTradeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrTradeNotFound):
		WriteError(w, http.StatusNotFound, "trade_not_found", err.Error())
	case errors.Is(err, domain.ErrInstrumentNotFound):
		WriteError(w, http.StatusBadRequest, "instrument_not_found", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
