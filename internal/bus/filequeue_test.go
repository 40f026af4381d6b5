package bus

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestQueue(t *testing.T) *FileQueue {
	t.Helper()
	q, err := NewFileQueue(FileQueueOptions{
		RootPath:     t.TempDir(),
		PollInterval: 10 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}
	return q
}

type testMessage struct {
	ID string `json:"id"`
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestPublishConsumeFIFO(t *testing.T) {
	q := newTestQueue(t)
	defer q.StopAll()
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := q.Publish(ctx, "parsing-jobs", testMessage{ID: id}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
		// Distinct timestamps keep the lexicographic order stable.
		time.Sleep(2 * time.Millisecond)
	}

	var mu sync.Mutex
	var got []string
	stop, err := q.StartConsume("parsing-jobs", func(_ context.Context, payload []byte) error {
		var msg testMessage
		if err := Decode(payload, &msg); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, msg.ID)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer stop()

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 3
	})

	mu.Lock()
	defer mu.Unlock()
	for i, want := range []string{"a", "b", "c"} {
		if got[i] != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i])
		}
	}
}

func TestFailedHandlerGetsRedelivery(t *testing.T) {
	q := newTestQueue(t)
	defer q.StopAll()
	ctx := context.Background()

	if err := q.Publish(ctx, "job-requests", testMessage{ID: "retry-me"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	var mu sync.Mutex
	attempts := 0
	stop, err := q.StartConsume("job-requests", func(_ context.Context, payload []byte) error {
		mu.Lock()
		defer mu.Unlock()
		attempts++
		if attempts < 3 {
			return errors.New("transient failure")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer stop()

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts >= 3
	})
}

func TestPanickingHandlerReleasesClaim(t *testing.T) {
	q := newTestQueue(t)
	defer q.StopAll()
	ctx := context.Background()

	if err := q.Publish(ctx, "analysis-jobs", testMessage{ID: "boom"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	var mu sync.Mutex
	attempts := 0
	stop, err := q.StartConsume("analysis-jobs", func(_ context.Context, payload []byte) error {
		mu.Lock()
		attempts++
		n := attempts
		mu.Unlock()
		if n == 1 {
			panic("handler exploded")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer stop()

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return attempts >= 2
	})
}

func TestAbandonedClaimIsRedelivered(t *testing.T) {
	root := t.TempDir()
	q, err := NewFileQueue(FileQueueOptions{
		RootPath:     root,
		PollInterval: 10 * time.Millisecond,
		ClaimTimeout: 20 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("failed to create queue: %v", err)
	}
	defer q.StopAll()

	// A consumer that died mid-handler leaves its claim file behind.
	dir := filepath.Join(root, "job-requests")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create topic dir: %v", err)
	}
	payload, _ := json.Marshal(testMessage{ID: "stranded"})
	if err := os.WriteFile(filepath.Join(dir, "20260824000000000-stranded.json.claim"), payload, 0o644); err != nil {
		t.Fatalf("failed to write claim file: %v", err)
	}

	var mu sync.Mutex
	var got []string
	stop, err := q.StartConsume("job-requests", func(_ context.Context, payload []byte) error {
		var msg testMessage
		if err := Decode(payload, &msg); err != nil {
			return err
		}
		mu.Lock()
		got = append(got, msg.ID)
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer stop()

	waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "stranded"
	})
}

func TestFreshClaimIsLeftAlone(t *testing.T) {
	q := newTestQueue(t)
	defer q.StopAll()

	dir := filepath.Join(q.root, "parsing-jobs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("failed to create topic dir: %v", err)
	}
	name := "20260824000000000-active.json.claim"
	if err := os.WriteFile(filepath.Join(dir, name), []byte("{}"), 0o644); err != nil {
		t.Fatalf("failed to write claim file: %v", err)
	}

	// Default claim timeout is far beyond this scan window.
	stop, err := q.StartConsume("parsing-jobs", func(context.Context, []byte) error {
		t.Error("an in-flight claim must not be redelivered")
		return nil
	})
	if err != nil {
		t.Fatalf("failed to start consumer: %v", err)
	}
	defer stop()

	time.Sleep(100 * time.Millisecond)
	if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
		t.Errorf("expected claim file to remain, got %v", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	var msg testMessage
	if err := Decode([]byte("{not json"), &msg); err == nil {
		t.Error("expected decode error")
	}
}
