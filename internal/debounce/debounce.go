// Package debounce collapses bursts of keyed updates into one delayed flush.
package debounce

import (
	"sync"
	"time"
)

// Debouncer buffers the latest value per key and flushes them together once
// no new value has arrived for the window. A new value restarts the window,
// so superseded flushes never run.
type Debouncer[K comparable, V any] struct {
	window   time.Duration
	maxBatch int
	onFlush  func([]V)

	mu      sync.Mutex
	order   []K
	pending map[K]V
	timer   *time.Timer
	gen     uint64
	stopped bool
}

// New creates a debouncer. A maxBatch above zero flushes immediately once
// that many distinct keys are pending.
func New[K comparable, V any](window time.Duration, maxBatch int, onFlush func([]V)) *Debouncer[K, V] {
	return &Debouncer[K, V]{
		window:   window,
		maxBatch: maxBatch,
		onFlush:  onFlush,
		pending:  make(map[K]V),
	}
}

// Add records value under key, replacing any pending value for that key.
func (d *Debouncer[K, V]) Add(key K, value V) {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}

	if _, ok := d.pending[key]; !ok {
		d.order = append(d.order, key)
	}
	d.pending[key] = value

	if d.maxBatch > 0 && len(d.pending) >= d.maxBatch {
		d.flushLocked()
		return
	}

	d.resetTimerLocked()
	d.mu.Unlock()
}

func (d *Debouncer[K, V]) resetTimerLocked() {
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		// A newer Add or a Cancel superseded this timer.
		if d.stopped || gen != d.gen {
			d.mu.Unlock()
			return
		}
		d.flushLocked()
	})
}

// flushLocked drains the pending values and releases the lock before
// calling onFlush.
func (d *Debouncer[K, V]) flushLocked() {
	values := make([]V, 0, len(d.order))
	for _, k := range d.order {
		values = append(values, d.pending[k])
	}
	d.order = nil
	d.pending = make(map[K]V)
	d.stopTimerLocked()
	d.mu.Unlock()

	if len(values) > 0 && d.onFlush != nil {
		d.onFlush(values)
	}
}

func (d *Debouncer[K, V]) stopTimerLocked() {
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Flush runs any pending flush now.
func (d *Debouncer[K, V]) Flush() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.flushLocked()
}

// Cancel discards pending values without flushing them.
func (d *Debouncer[K, V]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.order = nil
	d.pending = make(map[K]V)
	d.stopTimerLocked()
}

// Pending reports whether a flush is scheduled.
func (d *Debouncer[K, V]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending) > 0
}

// Stop flushes pending values and ignores any later Add.
func (d *Debouncer[K, V]) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	d.flushLocked()
}
