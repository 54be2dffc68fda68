package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/turntable-server/turntable/internal/config"
)

// ActivityStore persists latest-activity stamps in batches.
type ActivityStore interface {
	TouchActivity(ctx context.Context, userIDs []int) error
}

// ActivityWriter collects latest-activity touches from request handlers and
// flushes them to the store on an interval. Touches are deduplicated within
// a flush window; losing a stamp on hard shutdown is acceptable, it is a
// display-only field.
type ActivityWriter struct {
	store  ActivityStore
	config *config.ActivityConfig
	logger *slog.Logger

	queue  chan int
	stopCh chan struct{}
	doneCh chan struct{}

	mu      sync.Mutex
	running bool
}

// NewActivityWriter creates the batching writer.
func NewActivityWriter(store ActivityStore, cfg *config.ActivityConfig, logger *slog.Logger) *ActivityWriter {
	return &ActivityWriter{
		store:  store,
		config: cfg,
		logger: logger,
		queue:  make(chan int, cfg.QueueSize),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Touch enqueues a latest-activity stamp. Never blocks the request path: if
// the queue is full the stamp is dropped.
func (w *ActivityWriter) Touch(userID int) {
	select {
	case w.queue <- userID:
	default:
		w.logger.Warn("activity queue full, dropping touch", "user_id", userID)
	}
}

// Start begins the background flush loop.
func (w *ActivityWriter) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("activity writer started", "interval", w.config.FlushInterval)
	go w.run(ctx)
}

// Stop flushes pending touches and stops the loop.
func (w *ActivityWriter) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.logger.Info("activity writer stopped")
}

func (w *ActivityWriter) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	pending := make(map[int]struct{})

	flush := func() {
		if len(pending) == 0 {
			return
		}
		ids := make([]int, 0, len(pending))
		for id := range pending {
			ids = append(ids, id)
		}
		// Detached from the request/server context so the final flush
		// still runs during shutdown.
		fctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := w.store.TouchActivity(fctx, ids)
		cancel()
		if err != nil {
			w.logger.Error("failed to flush activity batch", "count", len(ids), "error", err)
			return
		}
		pending = make(map[int]struct{})
	}

	for {
		select {
		case id := <-w.queue:
			pending[id] = struct{}{}
			if len(pending) >= w.config.BatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			flush()
			return
		case <-w.stopCh:
			// Drain whatever made it into the queue before the
			// final flush.
			for {
				select {
				case id := <-w.queue:
					pending[id] = struct{}{}
				default:
					flush()
					return
				}
			}
		}
	}
}
