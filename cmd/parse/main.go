package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/config"
	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/parser"
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

	log.Info().Str("mode", cfg.PlatformMode).Msg("Starting parsing worker")

	backends, err := platform.Bind(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to bind platform backends")
	}
	defer backends.Close()

	dispatcher := parser.NewDispatcher(&http.Client{Timeout: 60 * time.Second})
	parseWorker := worker.NewParser(backends.Store, backends.Status, backends.Bus, dispatcher)

	stop, err := backends.Bus.StartConsume(models.TopicParsingJobs, parseWorker.Handle)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start consumer")
	}
	defer stop()

	log.Info().Str("topic", models.TopicParsingJobs).Msg("Worker started, consuming messages...")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down parsing worker...")
}
