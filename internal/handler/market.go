package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/efreitasn/tradesim/internal/market"
)

// MarketHandler handles HTTP requests for market data endpoints.
type MarketHandler struct {
	feed *market.Feed
}

// NewMarketHandler creates a new MarketHandler.
func NewMarketHandler(feed *market.Feed) *MarketHandler {
	return &MarketHandler{feed: feed}
}

// averageResponse is the JSON response for the rolling-average endpoint.
// Average is -1 when no ticks have been recorded for the instrument.
type averageResponse struct {
	ISIN    string  `json:"isin"`
	Average float64 `json:"average"`
	Window  int     `json:"window"`
}

// GetPrice handles GET /api/market/{isin}. Instruments the feed has never
// ticked get a synthetic default price, so this always returns 200.
func (h *MarketHandler) GetPrice(w http.ResponseWriter, r *http.Request) {
	isin := chi.URLParam(r, "isin")
	WriteJSON(w, http.StatusOK, h.feed.Latest(isin))
}

// GetAverage handles GET /api/market/{isin}/average. An optional `window`
// query parameter overrides the configured window size.
func (h *MarketHandler) GetAverage(w http.ResponseWriter, r *http.Request) {
	isin := chi.URLParam(r, "isin")

	window := 0
	if raw := r.URL.Query().Get("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteError(w, http.StatusBadRequest, "validation_error", "window must be a positive integer")
			return
		}
		window = n
	}

	WriteJSON(w, http.StatusOK, averageResponse{
		ISIN:    isin,
		Average: h.feed.AveragePrice(isin, window),
		Window:  window,
	})
}
