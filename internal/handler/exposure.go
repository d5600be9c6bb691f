package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/tradesim/internal/exposure"
)

// ExposureHandler handles HTTP requests for the exposure endpoint.
type ExposureHandler struct {
	gate *exposure.Gate
}

// NewExposureHandler creates a new ExposureHandler.
func NewExposureHandler(gate *exposure.Gate) *ExposureHandler {
	return &ExposureHandler{gate: gate}
}

// exposureResponse is the JSON view of a trader's exposure. Exposure and
// limit are rendered as strings to keep decimal precision on the wire.
type exposureResponse struct {
	Trader   string `json:"trader"`
	Exposure string `json:"exposure"`
	Limit    string `json:"limit"`
}

// GetExposure handles GET /api/exposure/{trader}. Unknown traders report
// zero exposure against the default limit.
func (h *ExposureHandler) GetExposure(w http.ResponseWriter, r *http.Request) {
	trader := chi.URLParam(r, "trader")

	WriteJSON(w, http.StatusOK, exposureResponse{
		Trader:   trader,
		Exposure: h.gate.Exposure(trader).String(),
		Limit:    h.gate.Limit(trader).String(),
	})
}
