package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/segyhp/investment-engine/internal/bootstrap"
	"github.com/segyhp/investment-engine/internal/config"
	"github.com/segyhp/investment-engine/internal/domain"
	"github.com/segyhp/investment-engine/internal/logging"
	"github.com/segyhp/investment-engine/internal/scheduler"
)

const eliminationJobName = "investment-elimination"

var rootCmd = &cobra.Command{
	Use:           "scheduler",
	Short:         "Runs the investment elimination job",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// serveCmd runs the elimination job on its cron schedule until interrupted
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the elimination job on its configured schedule",
	RunE:  runServe,
}

// runOnceCmd triggers a single elimination scan and prints the result
var runOnceCmd = &cobra.Command{
	Use:   "run-once",
	Short: "Run one elimination scan now and print the result as JSON",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(serveCmd, runOnceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

func setup(ctx context.Context) (*bootstrap.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(logger)

	return bootstrap.New(ctx, cfg, logger)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	defer app.Logger.Sync()

	// A run must not outlive its lease.
	s := scheduler.New(app.Config.GetLocation(), app.Config.Scheduler.LockTTL, app.Logger)
	err = s.Add(eliminationJobName, app.Schedule, func(jobCtx context.Context) {
		result, err := app.Elimination.RunEliminationJob(jobCtx, domain.TriggerScheduled)
		if err != nil {
			app.Logger.Warn("scheduled elimination did not complete",
				zap.String("job", eliminationJobName),
				zap.Error(err),
			)
			return
		}
		app.Logger.Info("scheduled elimination completed",
			zap.String("job", eliminationJobName),
			zap.Int("eliminated", result.EliminatedCount),
		)
	})
	if err != nil {
		return err
	}

	s.Start()
	app.Logger.Info("scheduler started",
		zap.String("cron", app.Schedule.Spec()),
		zap.Time("next_run", app.Schedule.Next(time.Now())),
	)

	<-ctx.Done()
	app.Logger.Info("shutting down scheduler")

	stopCtx, cancel := context.WithTimeout(context.Background(), bootstrap.ShutdownTimeout)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		app.Logger.Error("scheduler did not stop cleanly", zap.Error(err))
		return err
	}

	app.Logger.Info("scheduler stopped")
	return nil
}

func runOnce(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := setup(ctx)
	if err != nil {
		return err
	}
	defer app.Close()
	defer app.Logger.Sync()

	result, runErr := app.Elimination.RunEliminationJob(ctx, domain.TriggerManual)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	return runErr
}
