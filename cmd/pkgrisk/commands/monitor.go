package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkgrisk/analyzer/internal/daemon"
	"github.com/pkgrisk/analyzer/internal/model"
)

const (
	shutdownGrace   = 5 * time.Second
	statsLogInterval = 5 * time.Minute
)

// NewMonitorCommand runs the continuous daemon until interrupted.
func NewMonitorCommand() *cobra.Command {
	cobraCmd := &cobra.Command{
		Use:   "monitor",
		Short: "Run the continuous analysis daemon",
		RunE:  runMonitor,
	}
	return cobraCmd
}

func runMonitor(cmd *cobra.Command, _ []string) error {
	app, err := NewApp()
	if err != nil {
		return err
	}

	if err := app.Publisher.EnsureBranch(); err != nil {
		app.Logger.Warnf("monitor: publish branch setup skipped: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metricsErrCh := app.ServeMetrics(ctx)

	d := app.NewDaemon()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		errChan <- d.Run(ctx)
	}()

	statsTicker := time.NewTicker(statsLogInterval)
	defer statsTicker.Stop()

	for {
		select {
		case sig := <-sigChan:
			app.Logger.Infof("monitor: received signal %v, shutting down", sig)
			d.Stop()
			cancel()
			select {
			case <-errChan:
			case <-time.After(shutdownGrace):
			}
			app.Logger.Infof("monitor: stopped")
			return nil

		case err := <-errChan:
			if err != nil && err != context.Canceled {
				return fmt.Errorf("daemon exited: %w", err)
			}
			app.Logger.Infof("monitor: stopped")
			return nil

		case err := <-metricsErrCh:
			if err != nil {
				app.Logger.Errorf("monitor: metrics server: %v", err)
			}

		case <-statsTicker.C:
			logQueueIntrospection(app, d)
		}
	}
}

// logQueueIntrospection prints the work-queue backlog, live interleave
// position, and the dashboard's progress/ETA/average-score for
// operators watching the daemon's log output.
func logQueueIntrospection(app *App, d *daemon.Daemon) {
	ecos := make([]model.Ecosystem, 0)
	stats := d.QueueStats()
	for eco := range stats {
		ecos = append(ecos, eco)
	}
	sort.Slice(ecos, func(i, j int) bool { return ecos[i] < ecos[j] })

	states := d.QueueState()
	for _, eco := range ecos {
		s := stats[eco]
		qs := states[eco]
		app.Logger.Infof("monitor: %s queue: %d new, %d stale, %d up-to-date (interleave: %d new-remaining, %d stale-remaining, cycle %d/%d known)",
			eco, s.NewPackages, s.StalePackages, s.UpToDate, qs.NewRemaining, qs.StaleRemaining, qs.CyclePosition, qs.TotalKnownPackages)
	}

	if app.Metrics == nil {
		return
	}
	snap := app.Metrics.Snapshot()
	msg := fmt.Sprintf("monitor: progress %.1f%% (%d/%d), scored %d, unavailable %d, errors %d",
		snap.ProgressPercent(), snap.CompletedPackages, snap.TotalPackages,
		snap.ScoredCount, snap.UnavailableCount, snap.ErrorCount)
	if avg, ok := snap.AverageScore(); ok {
		msg += fmt.Sprintf(", average score %.1f", avg)
	}
	if eta, ok := snap.ETASeconds(); ok {
		msg += fmt.Sprintf(", eta %s", time.Duration(eta*float64(time.Second)).Round(time.Second))
	}
	app.Logger.Infof("%s", msg)
}
