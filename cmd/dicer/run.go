package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mohammed-shakir/grid-dicer/internal/codec/wkbcodec"
	"github.com/mohammed-shakir/grid-dicer/internal/core/config"
	"github.com/mohammed-shakir/grid-dicer/internal/core/model"
	"github.com/mohammed-shakir/grid-dicer/internal/core/server"
	"github.com/mohammed-shakir/grid-dicer/internal/dicer"
	"github.com/mohammed-shakir/grid-dicer/internal/grid"
	"github.com/mohammed-shakir/grid-dicer/internal/logger"
	"github.com/mohammed-shakir/grid-dicer/internal/metrics"
	"github.com/mohammed-shakir/grid-dicer/internal/sink/tsvsink"
	"github.com/mohammed-shakir/grid-dicer/internal/source/tsvsource"
)

func newRunCmd() *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Dice one batch of records",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			applyFlags(cmd, &cfg)
			return runBatch(cmd.Context(), input, cfg)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&input, "input", "i", "", "tab separated input (list_id, location_id, geom)")
	fl.StringP("output", "o", "", "output path for file sinks (default $OUTPUT_PATH)")
	fl.String("sink", "", "sink driver: tsv, geojson, redis, kafka (default $SINK_DRIVER)")
	fl.Float64("cell-size", 0, "grid cell size in degrees (default $CELL_SIZE_DEGREES)")
	fl.Int("workers", 0, "dicing workers (default one per CPU)")
	fl.String("undiced", "", "also write the loaded input records to this path")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

// flags only override env values they were explicitly given
func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	fl := cmd.Flags()
	if fl.Changed("output") {
		cfg.Sink.OutputPath, _ = fl.GetString("output")
	}
	if fl.Changed("sink") {
		cfg.Sink.Driver, _ = fl.GetString("sink")
	}
	if fl.Changed("cell-size") {
		cfg.CellSizeDegrees, _ = fl.GetFloat64("cell-size")
	}
	if fl.Changed("workers") {
		cfg.Workers, _ = fl.GetInt("workers")
	}
	if fl.Changed("undiced") {
		cfg.Sink.UndicedPath, _ = fl.GetString("undiced")
	}
}

func runBatch(parent context.Context, input string, cfg config.Config) error {
	if parent == nil {
		parent = context.Background()
	}
	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Component: "dicer",
	}, os.Stderr)
	log := logger.NewSlog(&zl)

	idx, err := grid.Build(cfg.CellSizeDegrees)
	if err != nil {
		log.Error("grid setup failed", "cell_size", cfg.CellSizeDegrees, "err", err)
		return err
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	src, err := tsvsource.Open(input)
	if err != nil {
		log.Error("open input failed", "input", input, "err", err)
		return err
	}
	defer func() { _ = src.Close() }()

	out, err := openSink(ctx, cfg.Sink, log)
	if err != nil {
		log.Error("sink setup failed", "driver", cfg.Sink.Driver, "err", err)
		return err
	}
	defer func() {
		if err := out.Close(); err != nil {
			log.Warn("sink close failed", "driver", cfg.Sink.Driver, "err", err)
		}
	}()

	var decode []wkbcodec.DecodeOption
	if len(cfg.AcceptSRID) > 0 {
		decode = append(decode, wkbcodec.WithSRID(cfg.AcceptSRID...))
	}

	opts := dicer.Options{Logger: log, DedupeSize: cfg.DedupeSize}
	if path := cfg.Sink.UndicedPath; path != "" {
		opts.OnLoad = func(ctx context.Context, recs []model.RawRecord) error {
			if err := tsvsink.WriteRecordsFile(path, recs); err != nil {
				return err
			}
			log.InfoContext(ctx, "undiced records written", "path", path, "records", len(recs))
			return nil
		}
	}

	orch, err := dicer.New(dicer.Config{
		Workers:         cfg.Workers,
		QueueSize:       cfg.QueueSize,
		MinFragmentArea: cfg.MinFragmentArea,
		HexOutput:       cfg.HexOutput,
		Decode:          decode,
	}, idx, opts)
	if err != nil {
		return err
	}

	if cfg.Metrics.Enabled {
		if err := startOps(ctx, cfg.Metrics, log, orch); err != nil {
			return err
		}
	}

	log.Info("starting dicer",
		"version", Version,
		"input", input,
		"sink", cfg.Sink.Driver,
		"grid", idx.String())

	sum, err := orch.Run(ctx, src, out.Sink)
	for _, s := range sum.Skips {
		log.Debug("skipped record", "list_id", s.ListID, "location_id", s.LocationID, "reason", s.Reason)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("dicer interrupted", "summary", sum.String())
		}
		return fmt.Errorf("run: %w", err)
	}
	log.Info("dicer done", "summary", sum.String(), "skipped_ids", sum.SkippedIDs)
	return nil
}

func startOps(ctx context.Context, mc config.MetricsCfg, log *slog.Logger, orch *dicer.Orchestrator) error {
	p, err := metrics.Init(metrics.Config{
		Enabled: true,
		Addr:    mc.Addr,
		Path:    "/metrics",
		Build:   metrics.BuildInfo{Version: Version, Revision: Revision, BuildDate: BuildDate},
	})
	if err != nil {
		return fmt.Errorf("metrics init: %w", err)
	}
	go func() {
		err := server.Run(ctx, server.Config{
			Addr:    mc.Addr,
			Logger:  log,
			Ready:   orch,
			Metrics: p.Handler(),
		})
		if err != nil {
			log.Error("ops server failed", "addr", mc.Addr, "err", err)
		}
	}()
	return nil
}
