// Command gateway runs the meeting-summary HTTP gateway.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/mangodesk/summary-gateway/internal/config"
	"github.com/mangodesk/summary-gateway/internal/gateway"
	"github.com/mangodesk/summary-gateway/internal/utils"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// .env is optional; environment always wins over the YAML file.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	setupLogging(*debug || cfg.Server.Debug, os.Stdout)

	log.Info().
		Int("port", cfg.Server.Port).
		Str("env", cfg.Server.Env).
		Str("ai_api_key", utils.MaskKey(cfg.Generator.APIKey)).
		Bool("email_configured", cfg.EmailConfigured()).
		Msg("starting gateway")

	gw := gateway.New(cfg)

	errCh := make(chan error, 1)
	go func() { errCh <- gw.Start() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
			os.Exit(1)
		}
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("signal received, shutting down gracefully")
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.D())
		defer cancel()
		if err := gw.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("shutdown error")
			os.Exit(1)
		}
		log.Info().Msg("process terminated")
	}
}
