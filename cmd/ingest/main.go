package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/config"
	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/platform"
	"github.com/dtce-ai/docpipe/internal/worker"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Str("mode", cfg.PlatformMode).Msg("Starting ingestion worker")

	backends, err := platform.Bind(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bind platform backends")
	}
	defer backends.Close()

	ingestor := worker.NewIngestor(backends.Store, backends.Status, backends.Bus)
	stop, err := backends.Bus.StartConsume(models.TopicJobRequests, ingestor.Handle)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start consumer")
	}
	defer stop()

	log.Info().Str("topic", models.TopicJobRequests).Msg("Worker started, consuming messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down ingestion worker...")
}
