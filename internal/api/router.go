package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/calm3366/bond-portfolio/internal/api/handlers"
	custommiddleware "github.com/calm3366/bond-portfolio/internal/api/middleware"
	"github.com/calm3366/bond-portfolio/internal/config"
	"github.com/calm3366/bond-portfolio/internal/service"
)

// Services bundles the services the HTTP handlers delegate to.
type Services struct {
	System    *service.SystemService
	Bond      *service.BondService
	Search    *service.SearchService
	Trade     *service.TradeService
	Portfolio *service.PortfolioService
	Fx        *service.FxService
	EventLog  *service.EventLogService
}

// NewRouter creates and configures the HTTP router
func NewRouter(svc Services, cfg *config.Config) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(svc.System)
			r.Get("/health", systemHandler.Health)
			r.Get("/version", systemHandler.Version)
		})

		r.Route("/bond", func(r chi.Router) {
			bondHandler := handlers.NewBondHandler(svc.Bond, svc.Search)
			r.Get("/", bondHandler.Bonds)
			r.Post("/", bondHandler.AddBond)
			r.Get("/search", bondHandler.SearchBonds)
			r.Post("/refresh", bondHandler.RefreshAll)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", bondHandler.GetBond)
				r.Delete("/", bondHandler.DeleteBond)
				r.Post("/refresh", bondHandler.RefreshBond)
				r.Get("/coupons", bondHandler.BondCoupons)
				r.Get("/open", bondHandler.BondOpenValues)
			})
		})

		r.Route("/trade", func(r chi.Router) {
			tradeHandler := handlers.NewTradeHandler(svc.Trade)
			r.Get("/", tradeHandler.Trades)
			r.Post("/", tradeHandler.CreateTrade)

			r.Route("/{uuid}", func(r chi.Router) {
				r.Use(custommiddleware.ValidateUUIDMiddleware)
				r.Get("/", tradeHandler.GetTrade)
				r.Put("/", tradeHandler.UpdateTrade)
				r.Delete("/", tradeHandler.DeleteTrade)
			})
		})

		r.Route("/portfolio", func(r chi.Router) {
			portfolioHandler := handlers.NewPortfolioHandler(svc.Portfolio)
			r.Get("/summary", portfolioHandler.Summary)
			r.Get("/positions", portfolioHandler.Positions)
			r.Get("/breakdown", portfolioHandler.Breakdown)
			r.Get("/coupons", portfolioHandler.Coupons)
		})

		r.Route("/fx", func(r chi.Router) {
			fxHandler := handlers.NewFxHandler(svc.Fx)
			r.Get("/", fxHandler.Rates)
			r.Post("/refresh", fxHandler.RefreshRates)
		})

		r.Route("/events", func(r chi.Router) {
			eventHandler := handlers.NewEventHandler(svc.EventLog)
			r.Get("/", eventHandler.Events)
			r.Post("/", eventHandler.CreateEvent)
			r.Delete("/", eventHandler.ClearEvents)
		})
	})

	return r
}
