package cmd

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/studymatch/backend/internal"
	authpg "github.com/studymatch/backend/internal/auth/postgres"
	userpg "github.com/studymatch/backend/internal/user/postgres"
	"github.com/studymatch/backend/pkg/logger"
)

var (
	sweepCmd = &cobra.Command{
		RunE:  runSweep,
		Use:   "sweep",
		Short: "Garbage-collect expired sessions and reconcile lapsed grants",
		Long: `Deletes session rows whose expiry has passed and flips users with a
lapsed permission window from active to inactive. Request-time checks never
depend on this; it only keeps the stored state tidy.`,
	}
	sweepOnce     bool
	sweepSchedule string
)

func init() {
	sweepCmd.Flags().BoolVar(&sweepOnce, "once", false, "run a single sweep pass and exit")
	sweepCmd.Flags().StringVar(&sweepSchedule, "schedule", "@every 1h", "cron schedule for recurring sweeps")
}

func runSweep(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig(".")
	if err != nil {
		log.Fatal(err)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	lg := logger.L()

	db, err := initDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{})
	if err != nil {
		return err
	}

	sessions := authpg.NewSessionRepository(gormDB)
	users := userpg.NewRepository(gormDB)

	sweep := func() {
		ctx, cancel := internal.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		now := time.Now()
		removed, err := sessions.DeleteExpired(ctx, now)
		if err != nil {
			lg.Error("session sweep failed", "error", err)
		} else if removed > 0 {
			lg.Info("expired sessions removed", "count", removed)
		}

		flipped, err := users.DeactivateLapsed(ctx, now)
		if err != nil {
			lg.Error("grant reconciliation failed", "error", err)
		} else if flipped > 0 {
			lg.Info("lapsed grants deactivated", "count", flipped)
		}
	}

	sweep()
	if sweepOnce {
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(sweepSchedule, sweep); err != nil {
		return err
	}
	c.Start()
	lg.Info("sweep scheduled", "schedule", sweepSchedule)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	ctx := c.Stop()
	<-ctx.Done()
	return nil
}
