// Package platform binds the three infrastructure contracts (object
// store, job status store, message bus) to concrete backends at process
// start. Dev targets the filesystem; Prod targets S3, Postgres and
// Kafka. There is no runtime switching.
package platform

import (
	"fmt"
	"io"

	"github.com/dtce-ai/docpipe/internal/bus"
	"github.com/dtce-ai/docpipe/internal/config"
	"github.com/dtce-ai/docpipe/internal/status"
	"github.com/dtce-ai/docpipe/internal/storage"
)

// Backends holds the bound infrastructure instances for one process.
type Backends struct {
	Store  storage.ObjectStore
	Status status.Store
	Bus    bus.Bus

	closers []io.Closer
}

// Bind selects and constructs backends per cfg.PlatformMode.
func Bind(cfg *config.Config) (*Backends, error) {
	switch cfg.PlatformMode {
	case config.ModeProd:
		return bindProd(cfg)
	case config.ModeDev:
		return bindDev(cfg)
	default:
		return nil, fmt.Errorf("unknown platform mode %q", cfg.PlatformMode)
	}
}

func bindProd(cfg *config.Config) (*Backends, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required in Prod mode")
	}
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, fmt.Errorf("S3 credentials are required in Prod mode")
	}

	store, err := storage.NewS3Store(cfg.S3Endpoint, cfg.S3Region, cfg.S3Bucket, cfg.S3AccessKey, cfg.S3SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 store: %w", err)
	}

	statusStore, err := status.Connect(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize status store: %w", err)
	}

	return &Backends{
		Store:   store,
		Status:  statusStore,
		Bus:     bus.NewKafkaBus(cfg.KafkaBrokers, cfg.KafkaConsumerGroup),
		closers: []io.Closer{statusStore},
	}, nil
}

func bindDev(cfg *config.Config) (*Backends, error) {
	store, err := storage.NewFileSystemStore(storage.FileSystemStoreOptions{
		RootPath:       cfg.StorageRootPath,
		GatewayBaseURL: cfg.GatewayBaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize filesystem store: %w", err)
	}

	statusStore, err := status.NewFileStore(cfg.StorageRootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file status store: %w", err)
	}

	queue, err := bus.NewFileQueue(bus.FileQueueOptions{
		RootPath:     cfg.MessagingRootPath,
		PollInterval: cfg.PollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file queue: %w", err)
	}

	return &Backends{
		Store:  store,
		Status: statusStore,
		Bus:    queue,
	}, nil
}

// Close stops consumers and closes held resources.
func (b *Backends) Close() {
	b.Bus.StopAll()
	for _, c := range b.closers {
		c.Close()
	}
}
