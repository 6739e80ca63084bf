package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/omartood/somalia-ex-rate/internal/api"
	"github.com/omartood/somalia-ex-rate/internal/config"
	"github.com/omartood/somalia-ex-rate/internal/cron"
	"github.com/omartood/somalia-ex-rate/internal/migrate"
	"github.com/omartood/somalia-ex-rate/internal/providers"
	"github.com/omartood/somalia-ex-rate/internal/rates"
	"github.com/omartood/somalia-ex-rate/internal/storage"
)

func main() {
	// Optional .env for local development; absence is not an error.
	_ = godotenv.Load()

	if err := rootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sosrates",
		Short:         "Somali Shilling exchange rates with multi-provider failover",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		serveCmd(),
		workerCmd(),
		ratesCmd(),
		convertCmd(),
		historyCmd(),
		volatilityCmd(),
		migrateCmd(),
	)
	return root
}

// buildServices wires the provider chain, cache, and historical cache the
// same way for every subcommand. withDB selects the configured storage
// backend for the historical tier and job bookkeeping; one-shot commands
// stay on the file-backed tier.
func buildServices(ctx context.Context, cfg config.Config, withDB bool) (*rates.Service, *rates.HistoricalService, storage.Storage, error) {
	descs := providers.Descriptors()
	manager, err := providers.BuildManager(rates.ManagerConfig{
		MaxRetries:     cfg.MaxRetries,
		AttemptTimeout: cfg.AttemptTimeout,
	}, descs)
	if err != nil {
		return nil, nil, nil, err
	}

	svc := rates.NewService(rates.ServiceConfig{
		TTL:       cfg.TTL,
		Offline:   cfg.Offline,
		CachePath: cfg.CachePath,
	}, manager)

	var st storage.Storage
	var histStore rates.HistoryStore = rates.NewFileHistoryStore(cfg.HistoryPath)
	if withDB && cfg.DBDriver != "" && cfg.DBDriver != "memory" {
		st, err = storage.Open(ctx, storage.Config{Driver: cfg.DBDriver, DSN: cfg.DBDSN})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open storage: %w", err)
		}
		histStore = storage.NewHistoryAdapter(st)
	}

	hist := rates.NewHistoricalService(manager, histStore, cfg.RetentionDays)
	return svc, hist, st, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			svc, hist, st, err := buildServices(ctx, cfg, true)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			server := api.NewServer(svc, hist, st, providers.Descriptors())
			addr := ":" + cfg.Port
			log.Printf("sosrates listening on %s", addr)
			return http.ListenAndServe(addr, server.Mux())
		},
	}
}

func workerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background refresh worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			svc, hist, st, err := buildServices(ctx, cfg, true)
			if err != nil {
				return err
			}
			if st != nil {
				defer st.Close()
			}

			worker := cron.New(svc, hist, st, cfg.CronInterval)
			if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			return nil
		},
	}
}

func ratesCmd() *cobra.Command {
	var opts queryFlags
	cmd := &cobra.Command{
		Use:   "rates",
		Short: "Print the current rate table",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc, _, _, err := buildServices(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			table, err := svc.GetRates(cmd.Context(), opts.options())
			if err != nil {
				return err
			}
			for code, rate := range table {
				fmt.Printf("%s\t%.6f\n", code, rate)
			}
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

func convertCmd() *cobra.Command {
	var opts queryFlags
	cmd := &cobra.Command{
		Use:   "convert AMOUNT FROM TO",
		Short: "Convert an amount between two currencies",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var amount float64
			if _, err := fmt.Sscanf(args[0], "%f", &amount); err != nil {
				return fmt.Errorf("invalid amount %q", args[0])
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			svc, _, _, err := buildServices(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			result, err := svc.Convert(cmd.Context(), amount, args[1], args[2], opts.options())
			if err != nil {
				return err
			}
			fmt.Printf("%.4f %s = %.4f %s\n", amount, args[1], result, args[2])
			return nil
		},
	}
	opts.register(cmd)
	return cmd
}

func historyCmd() *cobra.Command {
	var base string
	cmd := &cobra.Command{
		Use:   "history CURRENCY FROM TO",
		Short: "Print the daily rate history for a currency over a date range",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := time.Parse("2006-01-02", args[1])
			if err != nil {
				return fmt.Errorf("invalid from date %q", args[1])
			}
			to, err := time.Parse("2006-01-02", args[2])
			if err != nil {
				return fmt.Errorf("invalid to date %q", args[2])
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_, hist, _, err := buildServices(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			points, err := hist.RateHistory(cmd.Context(), args[0], base, from, to)
			if err != nil {
				return err
			}
			for _, p := range points {
				fmt.Printf("%s\t%.6f\n", p.Date.Format("2006-01-02"), p.Rate)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&base, "base", "", "quote against this base instead of the pivot")
	return cmd
}

func volatilityCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "volatility CURRENCY",
		Short: "Print the annualized volatility of a currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			_, hist, _, err := buildServices(cmd.Context(), cfg, false)
			if err != nil {
				return err
			}
			vol, err := hist.Volatility(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}
			fmt.Printf("%s %d-day annualized volatility: %.4f%%\n", args[0], days, vol*100)
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "trailing window in days")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Run database schema migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			switch args[0] {
			case "up":
				return migrate.Up(ctx, cfg.DBDriver, cfg.DBDSN)
			case "down":
				return migrate.Down(ctx, cfg.DBDriver, cfg.DBDSN)
			case "status":
				return migrate.Status(ctx, cfg.DBDriver, cfg.DBDSN)
			default:
				return fmt.Errorf("unknown migrate action %q", args[0])
			}
		},
	}
	return cmd
}

// queryFlags mirrors the per-query service options as CLI flags.
type queryFlags struct {
	provider string
	ttl      time.Duration
	offline  bool
	cache    string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.provider, "provider", "", "restrict the fetch to one provider key")
	cmd.Flags().DurationVar(&f.ttl, "ttl", 0, "cache freshness window (default 6h)")
	cmd.Flags().BoolVar(&f.offline, "offline", false, "skip the network, use cache or seed data")
	cmd.Flags().StringVar(&f.cache, "cache", "", "override the durable cache file")
}

func (f *queryFlags) options() rates.Options {
	return rates.Options{
		Provider:    f.provider,
		TTL:         f.ttl,
		Offline:     f.offline,
		PersistPath: f.cache,
	}
}
