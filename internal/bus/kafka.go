package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
)

// KafkaBus implements Bus on Kafka. One writer and at most one reader
// exist per topic; the reader fetches one message at a time, which
// bounds in-flight work to a single handler per topic.
type KafkaBus struct {
	brokers []string
	groupID string

	mu      sync.Mutex
	writers map[string]*kafka.Writer
	readers []*kafka.Reader
	cancels []context.CancelFunc
	wg      sync.WaitGroup
}

// NewKafkaBus creates a Kafka-backed message bus.
func NewKafkaBus(brokers []string, groupID string) *KafkaBus {
	log.Info().
		Strs("brokers", brokers).
		Str("group_id", groupID).
		Msg("Kafka bus initialized")

	return &KafkaBus{
		brokers: brokers,
		groupID: groupID,
		writers: make(map[string]*kafka.Writer),
	}
}

func (b *KafkaBus) writer(topic string) *kafka.Writer {
	b.mu.Lock()
	defer b.mu.Unlock()

	if w, ok := b.writers[topic]; ok {
		return w
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(b.brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
		Async:                  false,
	}
	b.writers[topic] = w
	return w
}

// Publish JSON-encodes message onto topic.
func (b *KafkaBus) Publish(ctx context.Context, topic string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := b.writer(topic).WriteMessages(ctx, kafka.Message{Value: data}); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	log.Info().Str("topic", topic).Msg("Message published to Kafka")
	return nil
}

// StartConsume starts a single-handler consume loop for topic.
func (b *KafkaBus) StartConsume(topic string, handler Handler) (func(), error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        b.brokers,
		Topic:          topic,
		GroupID:        b.groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: 0,    // manual commits
		// Start from earliest when no committed offset exists so messages
		// published before consumer startup are not lost.
		StartOffset: kafka.FirstOffset,
	})

	ctx, cancel := context.WithCancel(context.Background())

	b.mu.Lock()
	b.readers = append(b.readers, reader)
	b.cancels = append(b.cancels, cancel)
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		b.consumeLoop(ctx, reader, topic, handler)
	}()

	log.Info().Str("topic", topic).Msg("Kafka consumer started")
	return cancel, nil
}

func (b *KafkaBus) consumeLoop(ctx context.Context, reader *kafka.Reader, topic string, handler Handler) {
	const (
		maxBackoffSteps = 10
		baseDelay       = 1 * time.Second
		maxDelay        = 5 * time.Minute
		// Redelivery bound: after this many attempts the message is
		// committed and skipped so one bad message cannot block the topic.
		maxRetriesSkip = 50
	)

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("topic", topic).Msg("Consumer context cancelled, stopping")
			return
		default:
		}

		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Error().Err(err).Str("topic", topic).Msg("Failed to fetch message")
			continue
		}

		var lastErr error
		for attempt := 0; attempt < maxRetriesSkip; attempt++ {
			if err := handler(ctx, msg.Value); err != nil {
				lastErr = err

				log.Error().
					Err(err).
					Str("topic", msg.Topic).
					Int("partition", msg.Partition).
					Int64("offset", msg.Offset).
					Int("attempt", attempt+1).
					Msg("Failed to process message - will retry")

				delay := baseDelay * time.Duration(1<<uint(min(attempt, maxBackoffSteps)))
				if delay > maxDelay {
					delay = maxDelay
				}

				select {
				case <-ctx.Done():
					return
				case <-time.After(delay):
					continue
				}
			}

			lastErr = nil
			if err := reader.CommitMessages(ctx, msg); err != nil {
				// The message was processed; it may be redelivered on
				// restart, but handlers are idempotent with respect to
				// the status store.
				log.Error().Err(err).Msg("Failed to commit message")
			}
			break
		}

		if lastErr != nil {
			log.Error().
				Err(lastErr).
				Str("topic", msg.Topic).
				Int64("offset", msg.Offset).
				Msg("CRITICAL: Message processing failed after all retries - SKIPPING MESSAGE")

			if err := reader.CommitMessages(ctx, msg); err != nil {
				log.Error().Err(err).Msg("Failed to commit skipped message")
			}
		}
	}
}

// StopAll cancels every consume loop, waits for them to drain and
// closes the underlying readers and writers.
func (b *KafkaBus) StopAll() {
	b.mu.Lock()
	cancels := b.cancels
	readers := b.readers
	writers := b.writers
	b.cancels = nil
	b.readers = nil
	b.mu.Unlock()

	for _, cancel := range cancels {
		cancel()
	}
	b.wg.Wait()

	for _, r := range readers {
		if err := r.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka reader")
		}
	}
	for _, w := range writers {
		if err := w.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Kafka writer")
		}
	}

	log.Info().Msg("Kafka bus stopped")
}
