package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ktrack/pricecore/internal/domain"
	"github.com/ktrack/pricecore/internal/infrastructure/search"
	"github.com/ktrack/pricecore/pkg/e"
	"github.com/ktrack/pricecore/pkg/logger"
)

type fakeCoreUC struct {
	createWatchErr                 error
	pauseErr, resumeErr, deleteErr error
	lastCreateWatchID              uuid.UUID
	lastStatusWatchID              uuid.UUID
}

func (f *fakeCoreUC) CreateWatch(ctx context.Context, userID uuid.UUID, productCode, title string, domainID int, targetPrice decimal.Decimal) (*domain.WatchedProduct, error) {
	f.lastCreateWatchID = userID
	if f.createWatchErr != nil {
		return nil, f.createWatchErr
	}
	return &domain.WatchedProduct{ID: uuid.New(), UserID: userID, ProductCode: productCode}, nil
}

func (f *fakeCoreUC) ListWatches(ctx context.Context, userID uuid.UUID) ([]*domain.WatchedProduct, error) {
	return []*domain.WatchedProduct{{ID: uuid.New(), UserID: userID}}, nil
}

func (f *fakeCoreUC) PauseWatch(ctx context.Context, watchID uuid.UUID) error {
	f.lastStatusWatchID = watchID
	return f.pauseErr
}

func (f *fakeCoreUC) ResumeWatch(ctx context.Context, watchID uuid.UUID) error {
	f.lastStatusWatchID = watchID
	return f.resumeErr
}

func (f *fakeCoreUC) DeleteWatch(ctx context.Context, watchID uuid.UUID) error {
	f.lastStatusWatchID = watchID
	return f.deleteErr
}

func (f *fakeCoreUC) UpsertDealFilter(ctx context.Context, filter *domain.DealFilter) (*domain.DealFilter, error) {
	return filter, nil
}

func (f *fakeCoreUC) ListDealFilters(ctx context.Context) ([]*domain.DealFilter, error) {
	return nil, nil
}

func (f *fakeCoreUC) SearchDeals(ctx context.Context, minDiscount, minRating float64, domainID int) (*search.DealAggregations, error) {
	return &search.DealAggregations{}, nil
}

func (f *fakeCoreUC) PriceStats(ctx context.Context, productCode string) (*search.PriceStatistics, error) {
	return &search.PriceStatistics{}, nil
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	ctx := chi.NewRouteContext()
	ctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, ctx))
}

func TestWatchHandlerCreateSucceeds(t *testing.T) {
	uc := &fakeCoreUC{}
	h := NewWatchHandler(uc, logger.NewSlogLogger())

	body, _ := json.Marshal(createWatchRequest{
		UserID:      uuid.New(),
		ProductCode: "B001",
		TargetPrice: decimal.NewFromInt(10),
	})
	req := httptest.NewRequest(http.MethodPost, "/watches", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.create(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
}

func TestWatchHandlerCreateRejectsMalformedBody(t *testing.T) {
	uc := &fakeCoreUC{}
	h := NewWatchHandler(uc, logger.NewSlogLogger())

	req := httptest.NewRequest(http.MethodPost, "/watches", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()

	h.create(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWatchHandlerCreatePropagatesNotFoundAsIs(t *testing.T) {
	uc := &fakeCoreUC{createWatchErr: e.ErrUserNotFound}
	h := NewWatchHandler(uc, logger.NewSlogLogger())

	body, _ := json.Marshal(createWatchRequest{ProductCode: "B001", TargetPrice: decimal.NewFromInt(10)})
	req := httptest.NewRequest(http.MethodPost, "/watches", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	h.create(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestWatchHandlerListRequiresUserID(t *testing.T) {
	uc := &fakeCoreUC{}
	h := NewWatchHandler(uc, logger.NewSlogLogger())

	req := httptest.NewRequest(http.MethodGet, "/watches", nil)
	rec := httptest.NewRecorder()

	h.list(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestWatchHandlerPauseParsesURLParam(t *testing.T) {
	uc := &fakeCoreUC{}
	h := NewWatchHandler(uc, logger.NewSlogLogger())

	watchID := uuid.New()
	req := withURLParam(httptest.NewRequest(http.MethodPatch, "/watches/"+watchID.String()+"/pause", nil), "id", watchID.String())
	rec := httptest.NewRecorder()

	h.pause(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if uc.lastStatusWatchID != watchID {
		t.Errorf("lastStatusWatchID = %s, want %s", uc.lastStatusWatchID, watchID)
	}
}

func TestWatchHandlerDeleteRejectsMalformedID(t *testing.T) {
	uc := &fakeCoreUC{}
	h := NewWatchHandler(uc, logger.NewSlogLogger())

	req := withURLParam(httptest.NewRequest(http.MethodDelete, "/watches/not-a-uuid", nil), "id", "not-a-uuid")
	rec := httptest.NewRecorder()

	h.delete(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}
