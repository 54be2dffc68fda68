package worker

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/turntable-server/turntable/internal/config"
)

type recordingStore struct {
	mu      sync.Mutex
	batches [][]int
}

func (s *recordingStore) TouchActivity(_ context.Context, userIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	batch := append([]int(nil), userIDs...)
	s.batches = append(s.batches, batch)
	return nil
}

func (s *recordingStore) all() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int
	for _, b := range s.batches {
		out = append(out, b...)
	}
	sort.Ints(out)
	return out
}

func testWriter(store ActivityStore) *ActivityWriter {
	cfg := &config.ActivityConfig{
		FlushInterval: time.Hour, // flushing is driven by Stop in tests
		BatchSize:     100,
		QueueSize:     64,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewActivityWriter(store, cfg, logger)
}

func TestActivityWriterFlushOnStop(t *testing.T) {
	store := &recordingStore{}
	w := testWriter(store)

	w.Start(context.Background())
	w.Touch(1)
	w.Touch(2)
	w.Touch(3)
	w.Stop()

	assert.Equal(t, []int{1, 2, 3}, store.all())
}

func TestActivityWriterDeduplicates(t *testing.T) {
	store := &recordingStore{}
	w := testWriter(store)

	w.Start(context.Background())
	for i := 0; i < 10; i++ {
		w.Touch(17)
	}
	w.Stop()

	assert.Equal(t, []int{17}, store.all())
}

func TestActivityWriterNoEmptyFlush(t *testing.T) {
	store := &recordingStore{}
	w := testWriter(store)

	w.Start(context.Background())
	w.Stop()

	assert.Empty(t, store.batches)
}

func TestActivityWriterDropsWhenFull(t *testing.T) {
	store := &recordingStore{}
	cfg := &config.ActivityConfig{
		FlushInterval: time.Hour,
		BatchSize:     100,
		QueueSize:     2,
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	w := NewActivityWriter(store, cfg, logger)

	// Not started: the queue fills up and further touches must return
	// immediately instead of blocking the request path.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			w.Touch(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Touch blocked on a full queue")
	}

	w.Start(context.Background())
	w.Stop()
	require.Len(t, store.all(), 2)
}

func TestActivityWriterStopIsIdempotent(t *testing.T) {
	store := &recordingStore{}
	w := testWriter(store)

	w.Start(context.Background())
	w.Stop()
	w.Stop()
}
