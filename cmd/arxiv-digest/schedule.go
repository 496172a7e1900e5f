package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/pdiddy/arxiv-digest/internal/schedule"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the pipeline every day at a fixed time",
	Long: `Schedule keeps running and triggers the pipeline once a day at schedule.time
(local time, HH:MM), or at a fixed interval with --every. A trigger that fires
while a run is still in progress is skipped. Stop with Ctrl-C.`,
	RunE: runSchedule,
}

func init() {
	addSearchFlags(scheduleCmd)
	scheduleCmd.Flags().String("at", "", "daily run time HH:MM (overrides schedule.time)")
	scheduleCmd.Flags().Duration("every", 0, "run at a fixed interval instead of daily")
	scheduleCmd.Flags().Bool("run-now", false, "also run once immediately")
	scheduleCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9091)")

	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) error {
	s, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	spec, err := scheduleSpec(cmd, s.Schedule.Time)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		go serveMetrics(ctx, addr, reg)
	}

	p, err := newPipeline(ctx, s, reg, logger)
	if err != nil {
		return err
	}

	runNow, _ := cmd.Flags().GetBool("run-now")
	runner := schedule.NewRunner(time.Local, logger)
	return runner.RunForever(ctx, spec, runNow, func(ctx context.Context) {
		report := p.Run(ctx, s.Search.Query())
		printReport(cmd.OutOrStdout(), report)
	})
}

func scheduleSpec(cmd *cobra.Command, daily string) (string, error) {
	if every, _ := cmd.Flags().GetDuration("every"); every > 0 {
		return schedule.Every(every)
	}
	if at, _ := cmd.Flags().GetString("at"); at != "" {
		daily = at
	}
	return schedule.ParseDaily(daily)
}

func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("addr", addr).Msg("serving metrics")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server stopped")
	}
}
