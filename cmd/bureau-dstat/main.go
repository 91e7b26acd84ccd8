// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Bureau-dstat runs dstat as a supervised child process, tails its CSV
// output, and emits one record per sample line to the configured
// outputs. A sampler that goes silent is restarted; its output file is
// truncated every max_lines lines so it never grows without bound.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/bureau-foundation/bureau-dstat/lib/collector"
	"github.com/bureau-foundation/bureau-dstat/lib/config"
	"github.com/bureau-foundation/bureau-dstat/lib/hostname"
	"github.com/bureau-foundation/bureau-dstat/lib/process"
	"github.com/bureau-foundation/bureau-dstat/lib/sampler"
	"github.com/bureau-foundation/bureau-dstat/lib/sink"
	"github.com/bureau-foundation/bureau-dstat/lib/statusserver"
	"github.com/bureau-foundation/bureau-dstat/lib/version"
)

const (
	hostnameTimeout = 10 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		process.Fatal(err)
	}
}

func run(args []string) error {
	flags, err := parseFlags(args, os.Stderr)
	if err != nil {
		if errors.Is(err, errHelp) {
			return nil
		}
		return process.WithExitCode(err, process.ExitUsage)
	}
	if flags.showVersion {
		fmt.Println(version.Banner("bureau-dstat"))
		return nil
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return process.WithExitCode(err, process.ExitUsage)
	}

	logger := newLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return serve(ctx, cfg, logger, os.Stdout)
}

// loadConfig layers defaults, the config file, the environment, and
// the flags the user set, then validates the result.
func loadConfig(flags *cliFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// serve runs the collector until ctx is cancelled or the collector
// faults, then shuts everything down. stdout receives stdout outputs.
func serve(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout io.Writer) error {
	logger.Info("starting bureau-dstat",
		"version", version.Info(),
		"tag", cfg.Tag,
		"command", cfg.SamplerCommand().String(),
		"outputs", len(cfg.Outputs),
	)

	hostnameCtx, cancel := context.WithTimeout(ctx, hostnameTimeout)
	host, err := hostname.Resolve(hostnameCtx, cfg.HostnameArgv())
	cancel()
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	output, err := sink.Open(cfg.Outputs, cfg.Inject, stdout, registry)
	if err != nil {
		return fmt.Errorf("opening outputs: %w", err)
	}
	defer func() {
		if err := output.Close(); err != nil {
			logger.Error("closing outputs", "error", err)
		}
	}()

	pipeline, err := collector.New(collector.Config{
		Tag:           cfg.Tag,
		Command:       cfg.SamplerCommand(),
		Hostname:      host,
		MaxLines:      cfg.MaxLines,
		PollInterval:  cfg.PollInterval,
		CheckInterval: cfg.CheckInterval,
		StaleAfter:    cfg.StaleAfter(),
		Notify:        cfg.Notify,
		StateFile:     cfg.StateFile,
	}, collector.Options{
		Logger:     logger,
		Spawner:    sampler.ExecSpawner{Logger: logger},
		Sink:       output,
		Registerer: registry,
	})
	if err != nil {
		return err
	}

	// The reactor outlives ctx so Shutdown can run on it.
	if err := pipeline.Start(context.Background()); err != nil {
		return fmt.Errorf("starting collector: %w", err)
	}

	var server *statusserver.Server
	if cfg.HTTP.Listen != "" {
		server = statusserver.New(statusserver.Config{
			Listen:   cfg.HTTP.Listen,
			Source:   pipeline,
			Gatherer: registry,
			Logger:   logger,
		})
		if err := server.Start(); err != nil {
			pipeline.Shutdown(context.Background())
			return err
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("received shutdown signal")
	case <-pipeline.Done():
		logger.Error("collector stopped unexpectedly", "error", pipeline.Err())
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	var errs []error
	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
	}
	if err := pipeline.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, fmt.Errorf("shutting down collector: %w", err))
	}
	if err := pipeline.Err(); err != nil {
		errs = append(errs, process.WithExitCode(fmt.Errorf("collector faulted: %w", err), process.ExitSoftware))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
