package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/tradesim/internal/domain"
	"github.com/efreitasn/tradesim/internal/fix"
)

// ReportHandler handles HTTP requests for execution-report endpoints.
type ReportHandler struct {
	sink *fix.Sink
}

// NewReportHandler creates a new ReportHandler.
func NewReportHandler(sink *fix.Sink) *ReportHandler {
	return &ReportHandler{sink: sink}
}

// GetReport handles GET /api/reports/{trade_id}.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	tradeID := chi.URLParam(r, "trade_id")

	report, err := h.sink.ExecutionReport(tradeID)
	if err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			WriteError(w, http.StatusNotFound, "report_not_found", err.Error())
			return
		}
		WriteError(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
		return
	}

	WriteJSON(w, http.StatusOK, report)
}
