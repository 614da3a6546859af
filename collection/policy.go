package collection

import (
	"context"
	"sync"
	"time"
)

// Rebuilder brings the index up to date with every durable insert. It is a
// no-op when nothing was inserted since the last successful rebuild.
type Rebuilder func(ctx context.Context) error

// RebuildPolicy decides when inserts trigger an index rebuild.
type RebuildPolicy interface {
	// Inserted is called once per durable insert.
	Inserted(ctx context.Context, rebuild Rebuilder) error
	// Flush rebuilds the index if any insert is not yet indexed.
	Flush(ctx context.Context, rebuild Rebuilder) error
	// Close stops background work. Pending inserts stay unindexed until
	// the next Flush.
	Close() error
}

type immediate struct{}

// Immediate rebuilds the whole index synchronously after every insert, so
// that each successful insert is searchable once it returns.
func Immediate() RebuildPolicy { return immediate{} }

func (immediate) Inserted(ctx context.Context, rebuild Rebuilder) error { return rebuild(ctx) }

func (immediate) Flush(ctx context.Context, rebuild Rebuilder) error { return rebuild(ctx) }

func (immediate) Close() error { return nil }

type batched struct {
	size    int
	mu      sync.Mutex
	pending int
}

// Batched rebuilds after every size-th insert. Inserts in an incomplete
// batch become searchable on Flush.
func Batched(size int) RebuildPolicy {
	if size < 1 {
		size = 1
	}
	return &batched{size: size}
}

func (b *batched) Inserted(ctx context.Context, rebuild Rebuilder) error {
	b.mu.Lock()
	b.pending++
	due := b.pending >= b.size
	if due {
		b.pending = 0
	}
	b.mu.Unlock()
	if !due {
		return nil
	}
	return rebuild(ctx)
}

func (b *batched) Flush(ctx context.Context, rebuild Rebuilder) error {
	b.mu.Lock()
	b.pending = 0
	b.mu.Unlock()
	return rebuild(ctx)
}

func (b *batched) Close() error { return nil }

type debounced struct {
	delay  time.Duration
	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// Debounced rebuilds once no insert has happened for delay. The rebuild runs
// in the background; its failure is logged by the Inserter and retried on
// the next Flush.
func Debounced(delay time.Duration) RebuildPolicy {
	return &debounced{delay: delay}
}

func (d *debounced) Inserted(_ context.Context, rebuild Rebuilder) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() {
		d.mu.Lock()
		closed := d.closed
		d.mu.Unlock()
		if closed {
			return
		}
		_ = rebuild(context.Background())
	})
	return nil
}

func (d *debounced) Flush(ctx context.Context, rebuild Rebuilder) error {
	d.stop()
	return rebuild(ctx)
}

// Close disarms the timer. Later inserts schedule nothing; Flush still
// rebuilds synchronously.
func (d *debounced) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.stop()
	return nil
}

func (d *debounced) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
