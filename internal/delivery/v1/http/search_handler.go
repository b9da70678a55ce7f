package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ktrack/pricecore/internal/usecase"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
)

type SearchHandler struct {
	uc     usecase.CoreUC
	logger logger.Logger
}

func NewSearchHandler(uc usecase.CoreUC, log logger.Logger) *SearchHandler {
	return &SearchHandler{uc: uc, logger: log}
}

// searchDeals handles GET /api/v1/deals/search?minDiscount=&minRating=&domain=
func (h *SearchHandler) searchDeals(w http.ResponseWriter, r *http.Request) {
	minDiscount := parseFloatOrZero(r.URL.Query().Get("minDiscount"))
	minRating := parseFloatOrZero(r.URL.Query().Get("minRating"))
	domainID := parseIntOrZero(r.URL.Query().Get("domain"))

	agg, err := h.uc.SearchDeals(r.Context(), minDiscount, minRating, domainID)
	if err != nil {
		h.logger.Warnf("deal search failed: %v", err)
		WriteError(w, err)
		return
	}
	WriteSuccess(w, http.StatusOK, agg)
}

// priceStats handles GET /api/v1/prices/{productCode}/stats
func (h *SearchHandler) priceStats(w http.ResponseWriter, r *http.Request) {
	productCode := chi.URLParam(r, "productCode")
	if productCode == "" {
		WriteError(w, e.Wrap("SearchHandler.priceStats", e.ErrStatusBadRequest))
		return
	}

	stats, err := h.uc.PriceStats(r.Context(), productCode)
	if err != nil {
		h.logger.Warnf("price stats failed for %s: %v", productCode, err)
		WriteError(w, err)
		return
	}
	WriteSuccess(w, http.StatusOK, stats)
}

func parseFloatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func parseIntOrZero(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return v
}
