package cli

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/calm3366/bond-portfolio/internal/cache"
	"github.com/calm3366/bond-portfolio/internal/cbr"
	"github.com/calm3366/bond-portfolio/internal/config"
	"github.com/calm3366/bond-portfolio/internal/corpbonds"
	"github.com/calm3366/bond-portfolio/internal/database"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/moex"
	"github.com/calm3366/bond-portfolio/internal/repository"
	"github.com/calm3366/bond-portfolio/internal/service"
)

// App holds the application dependencies. Services are built on first use so
// that commands which never touch the database do not open it.
type App struct {
	Config *config.Config
	Logger zerolog.Logger

	DB        *sql.DB
	Bonds     *service.BondService
	Search    *service.SearchService
	Fx        *service.FxService
	Portfolio *service.PortfolioService
}

// openDB opens the database without migrating it.
func (a *App) openDB() (*sql.DB, error) {
	if a.DB != nil {
		return a.DB, nil
	}
	db, err := database.Open(a.Config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	a.DB = db
	a.Logger.Debug().Str("path", a.Config.Database.Path).Msg("database opened")
	return db, nil
}

// init opens and migrates the database and wires the services.
func (a *App) init() error {
	if a.Bonds != nil {
		return nil
	}
	db, err := a.openDB()
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}

	cfg := a.Config
	bondRepo := repository.NewBondRepository(db)
	couponRepo := repository.NewCouponRepository(db)
	tradeRepo := repository.NewTradeRepository(db)

	iss := moex.NewClient(
		cfg.Providers.MoexBaseURL,
		cfg.Providers.HTTPTimeout,
		cfg.Providers.ListingTimeout,
		cfg.Providers.ListingRPS,
	)
	pages := corpbonds.NewClient(cfg.Providers.CorpbondsBaseURL, cfg.Providers.HTTPTimeout)
	rates := cbr.NewClient(cfg.Providers.CBRURL, cfg.Providers.HTTPTimeout)

	a.Bonds = service.NewBondService(
		db,
		bondRepo,
		couponRepo,
		repository.NewEventLogRepository(db),
		iss,
		pages,
		service.NewOpenValueService(iss, nil),
		cfg.Scheduler.RefreshConcurrency,
		nil,
	)
	a.Search = service.NewSearchService(
		iss,
		bondRepo,
		cache.New[[]model.BondSearchResult](cfg.Cache.SearchTTL, cfg.Cache.SearchSize, nil),
	)
	a.Fx = service.NewFxService(rates, repository.NewFxRateRepository(db), bondRepo, cfg.Cache.FxTTL, nil)
	a.Portfolio = service.NewPortfolioService(tradeRepo, couponRepo, repository.NewSummaryRepository(db), a.Fx, nil)
	return nil
}

// Close releases the database, if it was opened.
func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	err := a.DB.Close()
	a.DB = nil
	a.Bonds = nil
	return err
}
