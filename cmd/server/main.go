package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"relaychat/internal/config"
	"relaychat/internal/httpapi"
	"relaychat/internal/server"
)

// Version is injected at build time with -ldflags. It is the semver the
// server reports in its READY greeting.
var Version = "1.6.0"

func main() {
	configPath := flag.String("config", "", "YAML config file path")
	controlAddr := flag.String("addr", "", "Control listen address (overrides config)")
	relayAddr := flag.String("relay-addr", "", "File relay listen address (overrides config)")
	httpAddr := flag.String("http-addr", "", "Admin API listen address (overrides config; \"off\" disables)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug || strings.Contains(Version, "dev") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}
	if *controlAddr != "" {
		cfg.ControlAddr = *controlAddr
	}
	if *relayAddr != "" {
		cfg.RelayAddr = *relayAddr
	}
	switch *httpAddr {
	case "":
	case "off":
		cfg.HTTPAddr = ""
	default:
		cfg.HTTPAddr = *httpAddr
	}

	slog.Info("starting server", "version", Version,
		"control", cfg.ControlAddr, "relay", cfg.RelayAddr)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	go func() {
		<-sigCh
		slog.Info("received interrupt, shutting down")
		cancel()
	}()

	srv := server.New(cfg, Version)
	if err := srv.Listen(); err != nil {
		slog.Error("listen", "err", err)
		os.Exit(1)
	}

	if cfg.HTTPAddr != "" {
		api := httpapi.New(srv)
		go func() {
			slog.Info("admin api listening", "addr", cfg.HTTPAddr)
			if err := api.Run(ctx, cfg.HTTPAddr); err != nil {
				slog.Error("admin api error", "err", err)
				cancel()
			}
		}()
	}

	if err := srv.Run(ctx); err != nil {
		slog.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
