// cmd/watch.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jeepinbird/autoftp/pkg/logging"
	"github.com/jeepinbird/autoftp/pkg/notify/logobserver"
	"github.com/jeepinbird/autoftp/pkg/notify/metrics"
	"github.com/jeepinbird/autoftp/pkg/schedule"
)

var (
	watchInterval time.Duration
	metricsAddr   string
	watchConsole  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run cycles on an interval until stopped",
	Long: `Runs a cycle immediately and then every interval (the configured "interval"
in minutes unless --interval is given). A cycle that is still downloading when
the next one is due causes that one to be skipped.

SIGINT or SIGTERM stops scheduling; a cycle in progress is allowed to finish.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := logging.L()

		settings, err := store.Snapshot()
		if err != nil {
			return err
		}
		interval := settings.Interval
		if watchInterval > 0 {
			interval = watchInterval
		}

		opts := cycleOptions{console: watchConsole, color: !noColor}
		events := newNotifier(opts, logger)
		events.Register(logobserver.New(logger))

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		stats := metrics.New(reg)
		events.Register(stats)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if metricsAddr != "" {
			srv := &http.Server{Addr: metricsAddr, Handler: metricsMux(reg), ReadHeaderTimeout: 5 * time.Second}
			go func() {
				logger.Info("serving metrics", zap.String("addr", metricsAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("metrics server failed", zap.Error(err))
				}
			}()
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()
		}

		s := newSyncer(store, events, opts, logger)
		runner := &schedule.Runner{
			Interval: interval,
			Job:      s.Run,
			Logger:   logger.Named("schedule"),
			OnSkip:   stats.CycleSkipped,
			OnFinish: func(elapsed time.Duration, err error) {
				stats.CycleFinished(elapsed)
			},
		}
		if err := runner.Start(ctx); err != nil {
			return fmt.Errorf("scheduler: %w", err)
		}
		logger.Info("stopped", zap.Int64("cycles", runner.Runs()), zap.Int64("skipped", runner.Skips()))
		return nil
	},
}

func metricsMux(reg *prometheus.Registry) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	return mux
}

func init() {
	watchCmd.Flags().DurationVarP(&watchInterval, "interval", "i", 0, "Time between cycles (overrides the configured interval)")
	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9102")
	watchCmd.Flags().BoolVar(&watchConsole, "console", false, "Also print events to the console")
	watchCmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")
	rootCmd.AddCommand(watchCmd)
}
