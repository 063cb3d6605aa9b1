// Command notify runs push-notification campaign batches from the command
// line, for cron-driven deployments and manual operation.
//
// Usage:
//
//	cleny-notify run --campaign daily
//	cleny-notify run --campaign milestone
//	cleny-notify run-all
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/enesbilik/cleny/internal/config"
	"github.com/enesbilik/cleny/internal/db"
	"github.com/enesbilik/cleny/internal/notify"
	"github.com/enesbilik/cleny/internal/push"
	"github.com/enesbilik/cleny/internal/store"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

func main() {
	// Load .env if present
	_ = godotenv.Load(".env")

	root := &cobra.Command{
		Use:   "cleny-notify",
		Short: "Cleny campaign batch runner",
	}

	root.AddCommand(runCmd())
	root.AddCommand(runAllCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCmd() *cobra.Command {
	var campaignFlag string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one campaign batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			campaign, err := notify.ParseCampaign(campaignFlag)
			if err != nil {
				return err
			}
			return withRunner(func(ctx context.Context, r *notify.Runner) error {
				start := time.Now()
				res, err := r.Run(ctx, campaign)
				if err != nil {
					return fmt.Errorf("campaign %s: %w", campaign, err)
				}
				logger.Info("campaign finished",
					"campaign", campaign,
					"sent", res.Sent,
					"duration", time.Since(start).Round(time.Millisecond))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&campaignFlag, "campaign", "daily", "Campaign type (daily, inactive, streak_risk, milestone, weekly, dormant)")
	return cmd
}

func runAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run-all",
		Short: "Run every campaign once, in schedule order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRunner(func(ctx context.Context, r *notify.Runner) error {
				for _, e := range notify.DefaultSchedule() {
					res, err := r.Run(ctx, e.Campaign)
					if err != nil {
						// Later campaigns are independent; keep going.
						logger.Error("campaign failed", "campaign", e.Campaign, "error", err)
						continue
					}
					logger.Info("campaign finished", "campaign", e.Campaign, "sent", res.Sent)
				}
				return nil
			})
		},
	}
}

// withRunner loads config, connects, and hands a ready Runner to fn.
func withRunner(fn func(ctx context.Context, r *notify.Runner) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	pool, err := db.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	sender := push.NewOneSignal(cfg.OneSignalAppID, cfg.OneSignalAPIKey, logger)
	if sender == nil {
		logger.Warn("ONESIGNAL_REST_API_KEY not set; nothing will be delivered")
	}

	return fn(ctx, notify.NewRunner(store.New(pool.Pool), sender, logger))
}
