package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// FileQueueOptions configures the local file-backed queue.
type FileQueueOptions struct {
	RootPath     string
	PollInterval time.Duration
	// ClaimTimeout bounds how long a claimed message may stay in flight
	// before a scan reclaims it. Covers consumers that died mid-handler.
	ClaimTimeout time.Duration
}

// FileQueue implements Bus on the filesystem. Each topic maps to a
// directory; Publish writes one JSON file per message with a timestamp
// prefix so a lexicographic sort yields FIFO. A consumer claims a
// message by renaming it, which fails atomically if another consumer
// got there first; the claim is released on handler failure so the
// message is re-processed on the next scan. A claim that outlives the
// claim timeout is treated as abandoned and released, so a consumer
// that dies mid-handler does not strand its message.
const claimSuffix = ".claim"

type FileQueue struct {
	root         string
	poll         time.Duration
	claimTimeout time.Duration

	mu      sync.Mutex
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

// NewFileQueue creates a filesystem-backed message bus.
func NewFileQueue(opts FileQueueOptions) (*FileQueue, error) {
	if opts.RootPath == "" {
		return nil, fmt.Errorf("messaging root path is required")
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 250 * time.Millisecond
	}
	if opts.ClaimTimeout <= 0 {
		opts.ClaimTimeout = 30 * time.Second
	}
	if err := os.MkdirAll(opts.RootPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create messaging root: %w", err)
	}

	log.Info().
		Str("root", opts.RootPath).
		Dur("poll_interval", opts.PollInterval).
		Msg("File queue initialized")

	return &FileQueue{root: opts.RootPath, poll: opts.PollInterval, claimTimeout: opts.ClaimTimeout}, nil
}

func (q *FileQueue) topicDir(topic string) string {
	return filepath.Join(q.root, topic)
}

// Publish writes {timestamp}-{uuid}.json into the topic directory.
func (q *FileQueue) Publish(ctx context.Context, topic string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	dir := q.topicDir(topic)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create topic directory: %w", err)
	}

	now := time.Now().UTC()
	name := fmt.Sprintf("%s%03d-%s.json",
		now.Format("20060102150405"), now.Nanosecond()/1e6, uuid.New())

	tmp := filepath.Join(dir, "."+name)
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write message file: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to publish message file: %w", err)
	}

	log.Debug().Str("topic", topic).Str("message", name).Msg("Message published to file queue")
	return nil
}

// StartConsume polls the topic directory on the configured interval and
// hands each message to handler in document order. Single-threaded per
// topic.
func (q *FileQueue) StartConsume(topic string, handler Handler) (func(), error) {
	dir := q.topicDir(topic)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create topic directory: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	q.mu.Lock()
	q.cancels = append(q.cancels, cancel)
	q.mu.Unlock()

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		ticker := time.NewTicker(q.poll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Info().Str("topic", topic).Msg("File queue consumer stopped")
				return
			case <-ticker.C:
				q.scan(ctx, topic, dir, handler)
			}
		}
	}()

	log.Info().Str("topic", topic).Msg("File queue consumer started")
	return cancel, nil
}

func (q *FileQueue) scan(ctx context.Context, topic, dir string, handler Handler) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		log.Error().Err(err).Str("topic", topic).Msg("Failed to scan topic directory")
		return
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		// A claim left behind by a crashed consumer is released once it
		// exceeds the claim timeout, so the message redelivers.
		if strings.HasSuffix(name, claimSuffix) {
			q.reclaim(dir, name)
			continue
		}
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		names = append(names, name)
	}
	// Timestamp prefix makes lexicographic order FIFO.
	sort.Strings(names)

	for _, name := range names {
		if ctx.Err() != nil {
			return
		}
		q.deliver(ctx, topic, filepath.Join(dir, name), handler)
	}
}

func (q *FileQueue) reclaim(dir, name string) {
	claimed := filepath.Join(dir, name)
	info, err := os.Stat(claimed)
	if err != nil {
		return
	}
	if time.Since(info.ModTime()) < q.claimTimeout {
		return
	}
	released := filepath.Join(dir, strings.TrimSuffix(name, claimSuffix))
	if err := os.Rename(claimed, released); err != nil {
		return
	}
	log.Warn().Str("message", released).Msg("Reclaimed stale message claim")
}

// deliver claims one message file, runs the handler and deletes the
// file on success. Claim contention means another consumer owns the
// message; it is skipped. If the handler panics the claim is released
// and the message re-processed on a later scan.
func (q *FileQueue) deliver(ctx context.Context, topic, path string, handler Handler) {
	claimed := path + claimSuffix
	if err := os.Rename(path, claimed); err != nil {
		// In progress elsewhere (or already consumed).
		return
	}
	// Claim age starts now, not at publish time.
	now := time.Now()
	if err := os.Chtimes(claimed, now, now); err != nil {
		log.Debug().Err(err).Str("message", path).Msg("Failed to stamp message claim")
	}

	release := func() {
		if err := os.Rename(claimed, path); err != nil {
			log.Error().Err(err).Str("message", path).Msg("Failed to release message claim")
		}
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("topic", topic).
				Str("message", path).
				Interface("panic", r).
				Msg("Handler panicked, message will be re-processed")
			release()
		}
	}()

	data, err := os.ReadFile(claimed)
	if err != nil {
		log.Error().Err(err).Str("message", path).Msg("Failed to read message file")
		release()
		return
	}

	if err := handler(ctx, data); err != nil {
		log.Error().Err(err).Str("topic", topic).Str("message", path).Msg("Handler failed, message retained")
		release()
		return
	}

	if err := os.Remove(claimed); err != nil {
		log.Error().Err(err).Str("message", path).Msg("Failed to delete consumed message")
	}
}

// StopAll cancels every consume loop and waits for them to drain.
func (q *FileQueue) StopAll() {
	q.mu.Lock()
	cancels := q.cancels
	q.cancels = nil
	q.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	q.wg.Wait()
	log.Info().Msg("File queue stopped")
}
