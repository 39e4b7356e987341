// Package dispatch provides a queue-based worker that buffers items per
// category and hands each buffer to a callback at a bounded rate. It exists
// for high-frequency producers (resource sampling, event streams); the core
// client operations stay synchronous and do not pass through here.
package dispatch

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultInterval  = time.Second
	DefaultMaxBuffer = 16000
)

// Callback receives one drained buffer for one category. Item order within
// a category is submission order.
type Callback func(category string, items []any) error

type Dispatcher struct {
	callback Callback
	interval time.Duration
	maxSize  int
	log      zerolog.Logger

	mu      sync.Mutex
	buffers map[string][]any

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
}

// New builds a dispatcher for a fixed set of categories. Start must be
// called before items are queued.
func New(callback Callback, categories []string, interval time.Duration, maxSize int, log zerolog.Logger) *Dispatcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxSize <= 0 {
		maxSize = DefaultMaxBuffer
	}

	buffers := make(map[string][]any, len(categories))
	for _, category := range categories {
		buffers[category] = nil
	}

	return &Dispatcher{
		callback: callback,
		interval: interval,
		maxSize:  maxSize,
		log:      log,
		buffers:  buffers,
		kick:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Push queues one item. A full buffer triggers an immediate flush instead
// of waiting for the next tick.
func (d *Dispatcher) Push(category string, item any) error {
	d.mu.Lock()
	buffer, ok := d.buffers[category]
	if !ok {
		d.mu.Unlock()
		return fmt.Errorf("no queue %q", category)
	}
	d.buffers[category] = append(buffer, item)
	full := len(d.buffers[category]) >= d.maxSize
	d.mu.Unlock()

	if full {
		select {
		case d.kick <- struct{}{}:
		default:
		}
	}
	return nil
}

// Start launches the flush loop.
func (d *Dispatcher) Start() {
	go d.run()
}

// Stop drains whatever is buffered and waits for the loop to exit. Safe to
// call once.
func (d *Dispatcher) Stop() {
	close(d.stop)
	<-d.done
}

func (d *Dispatcher) run() {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			d.flush()
			return
		case <-d.kick:
			d.flush()
		case <-ticker.C:
			d.flush()
		}
	}
}

func (d *Dispatcher) flush() {
	d.mu.Lock()
	drained := make(map[string][]any, len(d.buffers))
	for category, buffer := range d.buffers {
		if len(buffer) == 0 {
			continue
		}
		drained[category] = buffer
		d.buffers[category] = nil
	}
	d.mu.Unlock()

	for category, items := range drained {
		if err := d.callback(category, items); err != nil {
			d.log.Error().Err(err).Str("category", category).
				Int("items", len(items)).Msg("dispatch callback failed")
		}
	}
}
