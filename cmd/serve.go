package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jon4hz/gradebook/internal/api"
	"github.com/jon4hz/gradebook/internal/cache"
	"github.com/jon4hz/gradebook/internal/grade"
	"github.com/jon4hz/gradebook/internal/notify/email"
	"github.com/jon4hz/gradebook/internal/scheduler"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const weightAuditJobID = "weight-audit"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Gradebook server",
	Long:  `Start the Gradebook API server and the scheduled weight audit.`,
	Example: `gradebook serve --config config.yml
gradebook serve -c /path/to/config.yml --log-level debug
`,
	RunE: startServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func startServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint: errcheck

	summaries := cache.NewSummaryCache(cfg.Cache)
	log.Debug("Summary cache ready", "type", summaries.Type())

	sched, err := scheduler.New()
	if err != nil {
		return err
	}
	if cfg.Audit != nil && cfg.Audit.Enabled {
		if err := sched.AddCronJob(
			weightAuditJobID,
			"Weight audit",
			"Logs courses whose weights do not add up",
			cfg.Audit.Schedule,
			grade.AuditJob(db, cfg.Grading.WeightTolerance),
		); err != nil {
			return fmt.Errorf("failed to schedule weight audit: %w", err)
		}
	}

	mailer := email.New(cfg.Email, cfg.ServerURL)
	log.Debug("Email notifications", "enabled", mailer.Enabled())

	server, err := api.New(cfg, db, summaries, mailer, sched, log.GetLevel() == log.DebugLevel)
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	sched.Start()
	if cfg.Audit != nil && cfg.Audit.Enabled && cfg.Audit.RunOnStart {
		if err := sched.RunJobNow(weightAuditJobID); err != nil {
			log.Warn("Failed to trigger weight audit", "error", err)
		}
	}
	g.Go(func() error {
		<-ctx.Done()
		return sched.Stop()
	})

	g.Go(server.Run)
	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	log.Info("gradebook started successfully", "listen", cfg.Listen)
	return g.Wait()
}
