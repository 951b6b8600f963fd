package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/prodops/declfast/catalog"
	"github.com/prodops/declfast/config"
	"github.com/prodops/declfast/engine"
	"github.com/prodops/declfast/logging"
	"github.com/prodops/declfast/provider"
	"github.com/prodops/declfast/store"
	"github.com/prodops/declfast/ui"
)

var (
	flagRecursive     bool
	flagValidate      bool
	flagDelete        bool
	flagTUI           bool
	flagConfig        string
	flagLogLevel      string
	flagMetricsListen string
)

func main() {
	root := &cobra.Command{
		Use:   "declfast SOURCE DEST",
		Short: "Declare data files to the catalog and transfer them to storage",
		Long: `declfast registers scientific data files with the file catalog and
copies them to a destination store, driving both stages concurrently.

SOURCE is a single file, or with --recursive a directory tree to walk.
DEST is the destination base: a local path or an s3://bucket/prefix URL.

The EXPERIMENT environment variable selects the catalog namespace and
CP_MAXRETRIES bounds the per-file copy retries; both must be set.`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), args[0], args[1])
		},
	}

	root.Flags().BoolVarP(&flagRecursive, "recursive", "R", false, "walk SOURCE as a directory tree")
	root.Flags().BoolVarP(&flagValidate, "validate", "V", false, "validate metadata against the catalog schema before declaring")
	root.Flags().BoolVarP(&flagDelete, "delete", "d", false, "delete source files and sidecars after successful transfer")
	root.Flags().BoolVar(&flagTUI, "tui", false, "show a live terminal dashboard (with --recursive)")
	root.Flags().StringVar(&flagConfig, "config", "", "path to a config file")
	root.Flags().StringVar(&flagLogLevel, "log-level", "", "log level: debug, info, warn, error")
	root.Flags().StringVar(&flagMetricsListen, "metrics-listen", "", "address to serve Prometheus metrics on, e.g. :9090")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "declfast: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, source, dest string) error {
	// Fail on missing environment before touching any file.
	experiment := os.Getenv("EXPERIMENT")
	if experiment == "" {
		return errors.New("EXPERIMENT environment variable is not set")
	}
	retriesEnv := os.Getenv("CP_MAXRETRIES")
	if retriesEnv == "" {
		return errors.New("CP_MAXRETRIES environment variable is not set")
	}
	maxRetries, err := strconv.Atoi(retriesEnv)
	if err != nil {
		return fmt.Errorf("invalid CP_MAXRETRIES %q: %w", retriesEnv, err)
	}

	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	cfg.Experiment = experiment

	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	log := logging.New("declfast", level)

	cat, err := catalog.NewHTTPClient(cfg.Catalog.URL, cfg.Experiment, cfg.Catalog.Timeout)
	if err != nil {
		return err
	}

	rules := cfg.Naming.Rules()
	builder := catalog.NewSidecarBuilder(rules)

	dstProvider, copyBase, err := provider.FromPath(ctx, dest)
	if err != nil {
		return err
	}
	copier := provider.NewCopier(provider.NewLocalProvider(), dstProvider, maxRetries)

	pcfg := engine.Config{
		SourceRoot:           source,
		DestBase:             dest,
		CopyBase:             copyBase,
		Rules:                rules,
		Validate:             flagValidate,
		Delete:               flagDelete,
		MaxDeclareWorkers:    cfg.Pipeline.MaxDeclareWorkers,
		MaxTransferWorkers:   cfg.Pipeline.MaxTransferWorkers,
		MinBatchSize:         cfg.Pipeline.MinBatchSize,
		QueueDepth:           cfg.Pipeline.QueueDepth,
		DeclarePopTimeout:    cfg.Pipeline.DeclarePopTimeout,
		TransferPopTimeout:   cfg.Pipeline.TransferPopTimeout,
		DeclareStartDelayMax: cfg.Pipeline.DeclareStartDelayMax,
		TransferStartDelay:   cfg.Pipeline.TransferStartDelay,
		MaxRespawns:          cfg.Pipeline.MaxRespawns,
		RequestsPerSecond:    cfg.Pipeline.RequestsPerSecond,
		Smear:                cfg.Pipeline.Smear,
	}

	opts := []engine.Option{engine.WithLogger(log)}

	if cfg.Journal.Path != "" {
		journal, err := store.NewBoltJournal(cfg.Journal.Path)
		if err != nil {
			return fmt.Errorf("failed to open journal: %w", err)
		}
		defer journal.Close()
		opts = append(opts, engine.WithJournal(journal))
	}

	metricsListen := cfg.Metrics.Listen
	if flagMetricsListen != "" {
		metricsListen = flagMetricsListen
	}
	if metricsListen != "" {
		reg := prometheus.NewRegistry()
		opts = append(opts, engine.WithMetrics(engine.NewMetrics(reg)))

		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsListen, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server stopped", "error", err)
			}
		}()
		defer srv.Close()
	}

	p := engine.NewPipeline(pcfg, cat, builder, copier, opts...)

	if !flagRecursive {
		return p.RunSingle(ctx, source)
	}

	if flagTUI {
		errCh := make(chan error, 1)
		go func() { errCh <- p.Run(ctx) }()

		if err := ui.Run(p.Counters(), pcfg.MaxDeclareWorkers, pcfg.MaxTransferWorkers); err != nil {
			log.Warn("tui stopped", "error", err)
		}
		return <-errCh
	}

	return p.Run(ctx)
}
