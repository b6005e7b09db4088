package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/user-service/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	sendTimeout    = 10 * time.Second
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrStopped   = errors.New("notification dispatcher is stopped")
)

// Dispatcher delivers password reset notices in the background. Notices are
// sharded by recipient so one user's messages leave in the order they were
// issued and the newest reset link is always the last one delivered.
//
// Dispatcher implements ports.Notifier; wrap the real notifier with it.
type Dispatcher struct {
	workers []chan ports.PasswordResetNotice
	next    ports.Notifier
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers in
// front of next. If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, next ports.Notifier, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan ports.PasswordResetNotice, numWorkers),
		next:    next,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.PasswordResetNotice, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit when ctx is cancelled
// or, after Stop, once their queue is drained.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// SendPasswordReset queues notice for the worker that owns its recipient.
// It never blocks: a full shard yields ErrQueueFull.
func (d *Dispatcher) SendPasswordReset(ctx context.Context, notice ports.PasswordResetNotice) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return ErrStopped
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	select {
	case d.workers[d.shardIndex(notice.Email)] <- notice:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop refuses new notices and waits for queued ones to be delivered.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

// shardIndex maps a recipient deterministically to a worker index.
func (d *Dispatcher) shardIndex(recipient string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(recipient))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.PasswordResetNotice) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case notice, ok := <-ch:
			if !ok {
				return
			}
			d.deliver(ctx, id, notice)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, id int, notice ports.PasswordResetNotice) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if err := d.next.SendPasswordReset(sendCtx, notice); err != nil {
		d.log.Error().Err(err).
			Int("worker_id", id).
			Time("expires_at", notice.ExpiresAt).
			Msg("password reset delivery failed")
	}
}
