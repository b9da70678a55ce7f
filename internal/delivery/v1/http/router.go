package http

import (
	_ "github.com/ktrack/pricecore/docs"
	"github.com/ktrack/pricecore/internal/usecase"
	"github.com/ktrack/pricecore/pkg/logger"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(uc usecase.CoreUC) {
	r.router.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.router.Route("/api/v1", func(v1 chi.Router) {
		watchHandler := NewWatchHandler(uc, r.logger)
		registerWatchRoutes(v1, watchHandler)

		filterHandler := NewDealFilterHandler(uc, r.logger)
		registerDealFilterRoutes(v1, filterHandler)

		searchHandler := NewSearchHandler(uc, r.logger)
		registerSearchRoutes(v1, searchHandler)
	})
}

func registerWatchRoutes(router chi.Router, h *WatchHandler) {
	router.Route("/watches", func(wr chi.Router) {
		wr.Post("/", h.create)
		wr.Get("/", h.list)
		wr.Patch("/{id}/pause", h.pause)
		wr.Patch("/{id}/resume", h.resume)
		wr.Delete("/{id}", h.delete)
	})
}

func registerDealFilterRoutes(router chi.Router, h *DealFilterHandler) {
	router.Route("/deal-filters", func(fr chi.Router) {
		fr.Post("/", h.upsert)
		fr.Get("/", h.list)
		fr.Put("/{id}", h.upsert)
	})
}

func registerSearchRoutes(router chi.Router, h *SearchHandler) {
	router.Get("/deals/search", h.searchDeals)
	router.Get("/prices/{productCode}/stats", h.priceStats)
}
