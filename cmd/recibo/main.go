package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/recibo/recibo/internal/cache"
	"github.com/recibo/recibo/internal/clock"
	"github.com/recibo/recibo/internal/config"
	"github.com/recibo/recibo/internal/logger"
	"github.com/recibo/recibo/internal/postgres"
	repo "github.com/recibo/recibo/internal/repository/postgres"
	"github.com/recibo/recibo/internal/service"
	"github.com/recibo/recibo/internal/types"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "recibo",
		Short:         "Subscription billing back office",
		Long:          "recibo manages subscriptions, manual payment entry and the daily dunning sweep.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newSweepCmd())
	root.AddCommand(newStatsCmd())
	return root
}

// bootstrap loads config and wires the service layer against Postgres. The
// returned closer releases the connection pool.
func bootstrap(ctx context.Context) (service.ServiceParams, func(), error) {
	var params service.ServiceParams

	cfg, err := config.NewConfig()
	if err != nil {
		return params, nil, err
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		return params, nil, err
	}

	db, err := postgres.NewClient(ctx, cfg, log)
	if err != nil {
		return params, nil, err
	}

	params = service.ServiceParams{
		Logger:           log,
		Config:           cfg,
		DB:               db,
		Clock:            clock.New(),
		SubRepo:          repo.NewSubscriptionRepository(db, log),
		PaymentRepo:      repo.NewPaymentRepository(db, log),
		NotificationRepo: repo.NewNotificationRepository(db, log),
		AccountGate:      repo.NewUserAccountGate(db, log),
		Cache:            cache.Initialize(cfg, log),
	}
	return params, db.Close, nil
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run the dunning sweep as of today",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := systemContext(cmd.Context())
			params, closer, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer closer()

			billing := service.NewBillingService(params)
			result, err := billing.RunDunningSweep(ctx, params.Clock.Now())
			if err != nil {
				return err
			}

			return printJSON(cmd, result)
		},
	}
}

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print the dashboard statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := systemContext(cmd.Context())
			params, closer, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer closer()

			stats := service.NewStatsService(params)
			resp, err := stats.GetStatistics(ctx)
			if err != nil {
				return err
			}

			return printJSON(cmd, resp)
		},
	}
}

// systemContext stamps the CLI actor so audit fields record who acted
func systemContext(ctx context.Context) context.Context {
	ctx = types.SetRequestID(ctx, types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST))
	ctx = types.SetUserID(ctx, "system")
	return types.SetUserRole(ctx, types.RoleAdmin)
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
