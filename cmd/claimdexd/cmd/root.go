package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cosmossdk.io/log"
	"github.com/spf13/cobra"

	"github.com/openclaim/claimdex/advisor"
	"github.com/openclaim/claimdex/api"
	"github.com/openclaim/claimdex/api/middleware"
	"github.com/openclaim/claimdex/config"
	"github.com/openclaim/claimdex/store"
)

// NewRootCmd creates the root command for claimdexd.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "claimdexd",
		Short: "ClaimDex - campus prediction market engine",
		Long: `ClaimDex runs binary prediction markets on campus claims: users stake
Campus Credits on true/false outcomes and oracle reports settle markets
by stake-weighted consensus.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd(), versionCmd())
	return rootCmd
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	logger := log.NewLogger(os.Stderr)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	var st store.Store
	if cfg.DatabaseURL != "" {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pg.Close()
		st = pg
		logger.Info("using postgres store")
	} else {
		st = store.NewMemory()
		logger.Warn("DATABASE_URL not set, state is in-memory only")
	}

	var adv advisor.Advisor = advisor.Noop{}
	if cfg.AdvisorAPIKey != "" {
		adv = advisor.NewClient(cfg.AdvisorBaseURL, cfg.AdvisorAPIKey, cfg.AdvisorModel, logger)
		logger.Info("advisor enabled", "model", cfg.AdvisorModel)
	}

	issuer := middleware.NewTokenIssuer(cfg.SecretKey, 0)
	hasher := middleware.NewIPHasher(cfg.IPHmacSecret)
	if !hasher.Enabled() {
		logger.Warn("IP_HMAC_SECRET not set, per-IP vote limit disabled")
	}

	service := api.NewCoreService(st, adv, issuer, logger)
	server := api.NewServer(&api.Config{
		Addr:           cfg.Addr(),
		AllowedOrigins: cfg.AllowedOrigins,
	}, service, issuer, hasher, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the application version",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Println("ClaimDex v0.1.0")
		},
	}
}
