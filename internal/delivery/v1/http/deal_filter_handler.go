package http

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ktrack/pricecore/internal/domain"
	"github.com/ktrack/pricecore/internal/usecase"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
)

type DealFilterHandler struct {
	uc     usecase.CoreUC
	logger logger.Logger
}

func NewDealFilterHandler(uc usecase.CoreUC, log logger.Logger) *DealFilterHandler {
	return &DealFilterHandler{uc: uc, logger: log}
}

type dealFilterRequest struct {
	ID          string          `json:"id,omitempty"`
	UserID      string          `json:"userId"`
	Categories  []string        `json:"categories"`
	MinPrice    decimal.Decimal `json:"minPrice"`
	MaxPrice    decimal.Decimal `json:"maxPrice"`
	MinDiscount decimal.Decimal `json:"minDiscount"`
	MaxDiscount decimal.Decimal `json:"maxDiscount"`
	MinRating   float64         `json:"minRating"`
	Active      bool            `json:"active"`
}

func (h *DealFilterHandler) upsert(w http.ResponseWriter, r *http.Request) {
	var req dealFilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, e.Wrap("DealFilterHandler.upsert", e.ErrStatusBadRequest))
		return
	}

	f, err := toDomainFilter(&req)
	if err != nil {
		WriteError(w, err)
		return
	}

	saved, err := h.uc.UpsertDealFilter(r.Context(), f)
	if err != nil {
		h.logger.Warnf("upsert deal filter failed: %v", err)
		WriteError(w, err)
		return
	}

	status := http.StatusCreated
	if req.ID != "" {
		status = http.StatusOK
	}
	WriteSuccess(w, status, saved)
}

func (h *DealFilterHandler) list(w http.ResponseWriter, r *http.Request) {
	filters, err := h.uc.ListDealFilters(r.Context())
	if err != nil {
		h.logger.Warnf("list deal filters failed: %v", err)
		WriteError(w, err)
		return
	}
	WriteSuccess(w, http.StatusOK, filters)
}

func toDomainFilter(req *dealFilterRequest) (*domain.DealFilter, error) {
	f := &domain.DealFilter{
		Categories:  req.Categories,
		MinPrice:    req.MinPrice,
		MaxPrice:    req.MaxPrice,
		MinDiscount: req.MinDiscount,
		MaxDiscount: req.MaxDiscount,
		MinRating:   req.MinRating,
		Active:      req.Active,
	}

	userID, err := parseUUID(req.UserID)
	if err != nil {
		return nil, e.Wrap("toDomainFilter", e.ErrStatusBadRequest)
	}
	f.UserID = userID

	if req.ID != "" {
		id, err := parseUUID(req.ID)
		if err != nil {
			return nil, e.Wrap("toDomainFilter", e.ErrStatusBadRequest)
		}
		f.ID = id
	}

	return f, nil
}
