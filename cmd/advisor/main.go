// Command advisor runs one index-selection pass against a captured
// workload and a target database, emitting an action script of
// CREATE/DROP INDEX statements.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"indexadvisor/internal/engine"
	"indexadvisor/internal/metrics"
	"indexadvisor/internal/oracle/pgoracle"
	"indexadvisor/internal/script"
	"indexadvisor/internal/workload"
	"indexadvisor/pkg/config"
	"indexadvisor/pkg/database"
	"indexadvisor/pkg/errors"
	"indexadvisor/pkg/logging"
)

func main() {
	workloadPath := flag.String("workload", "", "path to the captured workload log (overrides advisor.workload_path)")
	dryRun := flag.Bool("dry-run", false, "print the action script to stdout instead of writing output_path")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics on this address (e.g. :9090) for the duration of the run")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "advisor: load config: %v\n", err)
		if errors.IsFatal(err) {
			os.Exit(1)
		}
		os.Exit(2)
	}
	if *workloadPath != "" {
		cfg.Advisor.WorkloadPath = *workloadPath
	}
	if cfg.Advisor.WorkloadPath == "" {
		fmt.Fprintln(os.Stderr, "advisor: no workload path given (-workload or advisor.workload_path)")
		os.Exit(1)
	}

	logger := logging.New(logging.Config{Level: cfg.Logging.Level, Format: logging.Format(cfg.Logging.Format)})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Advisor.RunTimeout)
	defer cancel()

	rec := metrics.New()
	if *metricsAddr != "" {
		go serveMetrics(*metricsAddr, logger)
	}

	if err := run(ctx, cfg, logger, rec, *dryRun); err != nil {
		logger.Error("advisor run failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger, rec *metrics.Recorder, dryRun bool) error {
	runID := uuid.New()
	logger = logger.WithFields(logging.String("run_id", runID.String()))

	pool, err := database.Connect(ctx, &cfg.Database, logger)
	if err != nil {
		return errors.NewOracleError("connect", err)
	}
	defer pool.Close()

	if err := database.Health(ctx, pool); err != nil {
		return errors.NewOracleError("health check", err)
	}

	f, err := os.Open(cfg.Advisor.WorkloadPath)
	if err != nil {
		return fmt.Errorf("open workload: %w", err)
	}
	defer f.Close()

	statements, err := workload.LoadCaptureLog(f)
	if err != nil {
		return fmt.Errorf("load workload: %w", err)
	}
	logger.Info("workload loaded",
		logging.String("path", cfg.Advisor.WorkloadPath),
		logging.Int("statements", len(statements)))

	var writer *script.Writer
	if dryRun {
		writer = script.NewWithWriter(os.Stdout)
	} else {
		writer, err = script.Open(cfg.Advisor.OutputPath, runID, cfg.Advisor.WorkloadPath, time.Now())
		if err != nil {
			return fmt.Errorf("open action script: %w", err)
		}
		defer writer.Close()
	}

	o := pgoracle.New(pool, logger)
	e := engine.New(o, logger, rec, writer, engine.Config{
		MinCostFactor:     cfg.Advisor.MinCostFactor,
		MaxIndexWidth:     cfg.Advisor.MaxIndexWidth,
		MemoryBudgetBytes: cfg.Advisor.MemoryBudgetBytes,
	})

	if err := e.Setup(ctx, statements); err != nil {
		return err
	}

	reason, err := e.Run(ctx)
	if err != nil {
		return err
	}

	stats := database.PoolStats(pool)
	logger.Info("advisor run complete",
		logging.String("reason", reason),
		logging.Int("indexes_accepted", len(e.Config())),
		logging.Float64("final_cost", e.Cost()),
		logging.Int("pool_acquired_conns", int(stats.AcquiredConns)),
		logging.Int("pool_idle_conns", int(stats.IdleConns)),
		logging.Int("pool_max_conns", int(stats.MaxConns)))
	return nil
}

func serveMetrics(addr string, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("metrics server stopped", logging.String("error", err.Error()))
	}
}
