package http

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ktrack/pricecore/internal/usecase"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
)

type WatchHandler struct {
	uc     usecase.CoreUC
	logger logger.Logger
}

func NewWatchHandler(uc usecase.CoreUC, log logger.Logger) *WatchHandler {
	return &WatchHandler{uc: uc, logger: log}
}

type createWatchRequest struct {
	UserID      uuid.UUID       `json:"userId"`
	ProductCode string          `json:"productCode"`
	Title       string          `json:"title"`
	Domain      int             `json:"domain"`
	TargetPrice decimal.Decimal `json:"targetPrice"`
}

func (h *WatchHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, e.Wrap("WatchHandler.create", e.ErrStatusBadRequest))
		return
	}

	watch, err := h.uc.CreateWatch(r.Context(), req.UserID, req.ProductCode, req.Title, req.Domain, req.TargetPrice)
	if err != nil {
		h.logger.Warnf("create watch failed: %v", err)
		WriteError(w, err)
		return
	}
	WriteSuccess(w, http.StatusCreated, watch)
}

func (h *WatchHandler) list(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.URL.Query().Get("userId"))
	if err != nil {
		WriteError(w, e.Wrap("WatchHandler.list", e.ErrStatusBadRequest))
		return
	}

	watches, err := h.uc.ListWatches(r.Context(), userID)
	if err != nil {
		h.logger.Warnf("list watches failed: %v", err)
		WriteError(w, err)
		return
	}
	WriteSuccess(w, http.StatusOK, watches)
}

func (h *WatchHandler) pause(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.uc.PauseWatch)
}

func (h *WatchHandler) resume(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.uc.ResumeWatch)
}

func (h *WatchHandler) delete(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, h.uc.DeleteWatch)
}

func (h *WatchHandler) setStatus(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, watchID uuid.UUID) error) {
	watchID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		WriteError(w, e.Wrap("WatchHandler.setStatus", e.ErrStatusBadRequest))
		return
	}

	if err := fn(r.Context(), watchID); err != nil {
		h.logger.Warnf("watch status update failed: %v", err)
		WriteError(w, err)
		return
	}
	WriteSuccess(w, http.StatusOK, map[string]bool{"changed": true})
}
