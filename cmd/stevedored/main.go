// Command stevedored serves the container control API.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mvdwal/stevedore"
	"github.com/mvdwal/stevedore/engine"
	"github.com/mvdwal/stevedore/serve"
)

var version = "dev"

func main() {
	fs := flag.NewFlagSet("stevedored", flag.ExitOnError)
	configPath := fs.String("config", "", "YAML config file")
	addr := fs.String("addr", "", "HTTP listen address (overrides config)")
	secrets := fs.String("secrets", "", "JSON secrets file (overrides config)")
	interval := fs.Duration("interval", 0, "container poll interval (overrides config)")
	showVersion := fs.Bool("version", false, "print version and exit")

	fs.Usage = func() {
		fmt.Println(`Usage: stevedored [options]

Serve an authenticated HTTP API for controlling containers on this host.

Options:`)
		fs.PrintDefaults()
		fmt.Println(`
Examples:
  stevedored
  stevedored -addr :8000 -secrets /etc/stevedore/secrets.json
  stevedored -config /etc/stevedore/config.yaml`)
	}

	if err := fs.Parse(os.Args[1:]); err != nil {
		os.Exit(1)
	}

	if *showVersion {
		fmt.Printf("stevedored %s\n", version)
		return
	}

	cfg := serve.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = serve.LoadConfig(*configPath)
		if err != nil {
			slog.Error("config load failed", "error", err)
			os.Exit(1)
		}
	}
	if *addr != "" {
		cfg.Addr = *addr
	}
	if *secrets != "" {
		cfg.SecretsFile = *secrets
	}
	if *interval > 0 {
		cfg.PollInterval = serve.Duration(*interval)
	}

	if _, err := os.Stat(cfg.SecretsFile); err != nil {
		slog.Error("secrets file unavailable", "path", cfg.SecretsFile, "error", err)
		os.Exit(1)
	}

	platform := engine.DetectPlatform()
	slog.Info("starting stevedored", "version", version, "platform", platform)

	eng, err := engine.New(
		engine.WithPlatform(platform),
		engine.WithStopTimeout(cfg.StopTimeoutSeconds),
	)
	if err != nil {
		slog.Error("docker connection failed", "error", err)
		os.Exit(1)
	}

	sup := stevedore.NewSupervisor(eng,
		stevedore.WithPollInterval(cfg.PollInterval.Std()),
	)
	defer sup.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := serve.New(sup, eng, cfg)
	if err := srv.Start(ctx); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
