package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/calm3366/bond-portfolio/internal/api"
	"github.com/calm3366/bond-portfolio/internal/cache"
	"github.com/calm3366/bond-portfolio/internal/cbr"
	"github.com/calm3366/bond-portfolio/internal/config"
	"github.com/calm3366/bond-portfolio/internal/corpbonds"
	"github.com/calm3366/bond-portfolio/internal/database"
	"github.com/calm3366/bond-portfolio/internal/logging"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/moex"
	"github.com/calm3366/bond-portfolio/internal/notify"
	"github.com/calm3366/bond-portfolio/internal/repository"
	"github.com/calm3366/bond-portfolio/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	notifier := notify.New(cfg.Notify.WebhookURL, cfg.Notify.ServiceName)
	var sinks []io.Writer
	if notifier.Enabled() {
		sinks = append(sinks, notify.NewWriter(notifier))
	}
	logging.Setup(cfg.Logging, sinks...)

	// Open database connection
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}
	log.Info().Str("path", cfg.Database.Path).Msg("Connected to database")

	// Create repositories
	bondRepo := repository.NewBondRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	tradeRepo := repository.NewTradeRepository(db)
	fxRepo := repository.NewFxRateRepository(db)
	summaryRepo := repository.NewSummaryRepository(db)
	eventRepo := repository.NewEventLogRepository(db)

	// Create provider clients
	iss := moex.NewClient(
		cfg.Providers.MoexBaseURL,
		cfg.Providers.HTTPTimeout,
		cfg.Providers.ListingTimeout,
		cfg.Providers.ListingRPS,
	)
	pages := corpbonds.NewClient(cfg.Providers.CorpbondsBaseURL, cfg.Providers.HTTPTimeout)
	rates := cbr.NewClient(cfg.Providers.CBRURL, cfg.Providers.HTTPTimeout)

	// Create services
	openValueService := service.NewOpenValueService(iss, nil)
	bondService := service.NewBondService(
		db,
		bondRepo,
		couponRepo,
		eventRepo,
		iss,
		pages,
		openValueService,
		cfg.Scheduler.RefreshConcurrency,
		nil,
	)
	searchService := service.NewSearchService(
		iss,
		bondRepo,
		cache.New[[]model.BondSearchResult](cfg.Cache.SearchTTL, cfg.Cache.SearchSize, nil),
	)
	tradeService := service.NewTradeService(tradeRepo, bondRepo)
	fxService := service.NewFxService(rates, fxRepo, bondRepo, cfg.Cache.FxTTL, nil)
	portfolioService := service.NewPortfolioService(tradeRepo, couponRepo, summaryRepo, fxService, nil)
	eventLogService := service.NewEventLogService(eventRepo)

	scheduler, err := service.NewScheduler(cfg.Scheduler.RefreshSchedule, bondService, fxService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create scheduler")
	}
	systemService := service.NewSystemService(db, map[string]bool{
		"scheduler": scheduler.Enabled(),
		"notify":    notifier.Enabled(),
	})

	// Create router
	router := api.NewRouter(api.Services{
		System:    systemService,
		Bond:      bondService,
		Search:    searchService,
		Trade:     tradeService,
		Portfolio: portfolioService,
		Fx:        fxService,
		EventLog:  eventLogService,
	}, cfg)

	// Create HTTP server. The write timeout must cover a full market listing.
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Providers.ListingTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	scheduler.Start()

	// Start server in a goroutine
	go func() {
		log.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	scheduler.Stop(ctx)
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
