// Package cli provides the bondctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/calm3366/bond-portfolio/internal/api/request"
	"github.com/calm3366/bond-portfolio/internal/config"
	"github.com/calm3366/bond-portfolio/internal/database"
	"github.com/calm3366/bond-portfolio/internal/model"
	"github.com/calm3366/bond-portfolio/internal/version"
)

// commandTimeout bounds every command that talks to a provider.
const commandTimeout = 10 * time.Minute

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	return newRootCmd(&App{
		Config: cfg,
		Logger: logger,
	})
}

func newRootCmd(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bondctl",
		Short: "Bond portfolio tracker",
		Long: `bondctl manages the bond portfolio database from the command line.

It shares the database and provider settings of the HTTP server, read from
the environment or a .env file.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if debug, _ := cmd.Flags().GetBool("debug"); debug {
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			if path, _ := cmd.Flags().GetString("db"); path != "" {
				app.Config.Database.Path = path
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return app.Close()
		},
	}

	rootCmd.PersistentFlags().String("db", "", "database path (default: DB_PATH)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	rootCmd.AddCommand(
		newMigrateCmd(app),
		newAddCmd(app),
		newRefreshCmd(app),
		newFxCmd(app),
		newSummaryCmd(app),
		newSearchCmd(app),
	)

	return rootCmd
}

func newMigrateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			db, err := app.openDB()
			if err != nil {
				return err
			}
			if err := database.Migrate(db); err != nil {
				return err
			}
			v, err := database.Version(db)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int64{"db_version": v})
			}
			output.Printf("Database at version %d\n", v)
			return nil
		},
	}
}

func newAddCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "add <secid|isin>",
		Short:   "Track a bond by exchange code or ISIN",
		Example: "  bondctl add SU26238RMFS4\n  bondctl add RU000A105TU9",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.init(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			bond, err := app.Bonds.AddBond(ctx, args[0])
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(bond)
			}
			printBond(output, bond)
			return nil
		},
	}
}

func newRefreshCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh [secid...]",
		Short: "Refresh tracked bonds from the data providers",
		Long:  "Refresh the given bonds, or every tracked bond when none is named.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.init(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			if len(args) == 0 {
				report, err := app.Bonds.RefreshAll(ctx)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(report)
				}
				printReport(output, report)
				return nil
			}

			bonds := make([]model.Bond, 0, len(args))
			for _, secid := range args {
				bond, err := app.Bonds.RefreshBond(ctx, secid)
				if err != nil {
					return fmt.Errorf("%s: %w", secid, err)
				}
				bonds = append(bonds, bond)
			}
			if output.IsJSON() {
				return output.JSON(bonds)
			}
			for _, b := range bonds {
				printBond(output, b)
			}
			return nil
		},
	}
}

func newFxCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "fx [currency...]",
		Short: "Update exchange rates from the central bank",
		Long:  "Update the given rates, or the rates of every currency the tracked bonds use.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.init(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			var codes []string
			for _, a := range args {
				codes = append(codes, strings.ToUpper(a))
			}
			rates, err := app.Fx.UpdateRates(ctx, codes)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rates)
			}
			if len(rates) == 0 {
				output.Println("No foreign currencies to update")
				return nil
			}
			for _, r := range rates {
				output.Printf("%-4s %s\n", r.Currency, FormatMoney(r.Rate, model.BaseCurrency))
			}
			return nil
		},
	}
}

func newSummaryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show portfolio totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.init(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			s, err := app.Portfolio.Summary(ctx)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(s)
			}
			output.Printf("Invested:       %s\n", FormatMoney(s.Invested, model.BaseCurrency))
			output.Printf("Trades sum:     %s\n", FormatMoney(s.TradesSum, model.BaseCurrency))
			output.Printf("Coupon profit:  %s\n", FormatMoney(s.CouponProfit, model.BaseCurrency))
			output.Printf("Current value:  %s\n", FormatMoney(s.CurrentValue, model.BaseCurrency))
			output.Printf("Total value:    %s\n", FormatMoney(s.TotalValue, model.BaseCurrency))
			output.Printf("Profit:         %.2f%%\n", s.ProfitPercent)
			for _, e := range s.ExcludedCurrencies {
				output.Printf("Excluded:       %s (no exchange rate)\n", FormatMoney(e.Amount, e.Currency))
			}
			return nil
		},
	}
}

func newSearchCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "search <query>",
		Short:   "Search bonds across the exchange markets",
		Example: "  bondctl search ОФЗ --coupon-from 10 --maturity-to 2030-12-31",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			couponFrom, _ := cmd.Flags().GetString("coupon-from")
			couponTo, _ := cmd.Flags().GetString("coupon-to")
			maturityFrom, _ := cmd.Flags().GetString("maturity-from")
			maturityTo, _ := cmd.Flags().GetString("maturity-to")
			rating, _ := cmd.Flags().GetString("rating")

			filter, err := request.ParseSearchFilter(strings.Join(args, " "), couponFrom, couponTo, maturityFrom, maturityTo, rating)
			if err != nil {
				return err
			}
			if err := app.init(); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
			defer cancel()

			results, err := app.Search.Search(ctx, filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(results)
			}
			if len(results) == 0 {
				output.Println("No bonds found")
				return nil
			}
			for _, r := range results {
				maturity := "-"
				if r.MaturityDate != nil {
					maturity = r.MaturityDate.Format("2006-01-02")
				}
				output.Printf("%-14s %-12s %6.2f%%  %s  %-6s %s\n", r.SecID, r.ISIN, r.Coupon, maturity, orDash(r.Rating), r.Name)
			}
			return nil
		},
	}

	cmd.Flags().String("coupon-from", "", "minimum coupon rate, percent")
	cmd.Flags().String("coupon-to", "", "maximum coupon rate, percent")
	cmd.Flags().String("maturity-from", "", "earliest maturity date (YYYY-MM-DD)")
	cmd.Flags().String("maturity-to", "", "latest maturity date (YYYY-MM-DD)")
	cmd.Flags().String("rating", "", "rating substring")

	return cmd
}

func printBond(output *Output, b model.Bond) {
	currency := model.BaseCurrency
	if c, ok := deref(b.Currency); ok {
		currency = c
	}
	output.Printf("%s  %s\n", b.SecID, orDash(b.Name))
	if p, ok := deref(b.LastPrice); ok {
		output.Printf("  Price:    %s\n", FormatMoney(p, currency))
	}
	if y, ok := deref(b.YTM); ok {
		output.Printf("  YTM:      %.2f%%\n", y)
	}
	if r := b.RatingDisplay(); r != "" {
		output.Printf("  Rating:   %s\n", strings.ReplaceAll(r, "\n", ", "))
	}
	if b.StaleReason != nil {
		output.Printf("  Stale:    %s\n", *b.StaleReason)
	}
}

func printReport(output *Output, r model.RefreshReport) {
	output.Printf("Refreshed: %d\n", len(r.Refreshed))
	for secid, reason := range r.Stale {
		output.Printf("  stale  %s: %s\n", secid, reason)
	}
	for secid, reason := range r.Failed {
		output.Printf("  failed %s: %s\n", secid, reason)
	}
}
