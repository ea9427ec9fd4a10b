// Package paginate reveals a collection incrementally in fixed-size batches
// and splits it into numbered pages.
package paginate

import "sync"

const DefaultBatchSize = 24

// Loader exposes a growing prefix of items. A load in flight blocks further
// loads until it is committed or aborted.
type Loader[T any] struct {
	mu      sync.Mutex
	items   []T
	batch   int
	cursor  int
	loading bool
	gen     uint64
}

// Batch is a reservation returned by Begin.
type Batch struct {
	gen  uint64
	from int
	to   int
}

// NewLoader starts with the first batch of items visible.
func NewLoader[T any](items []T, batch int) *Loader[T] {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	l := &Loader[T]{batch: batch}
	l.Reset(items)
	return l
}

// LoadNext reveals the next batch and returns it. It returns nil when
// everything is already visible or another load is in flight.
func (l *Loader[T]) LoadNext() []T {
	b, ok := l.Begin()
	if !ok {
		return nil
	}
	return l.Commit(b)
}

// Begin reserves the next batch.
func (l *Loader[T]) Begin() (Batch, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.loading || l.cursor >= len(l.items) {
		return Batch{}, false
	}
	l.loading = true
	return Batch{gen: l.gen, from: l.cursor, to: l.end(l.cursor)}, true
}

// end is where a batch starting at from stops. A tail shorter than half a
// batch is folded into the batch before it.
func (l *Loader[T]) end(from int) int {
	to := from + l.batch
	if len(l.items)-to < l.batch/2 {
		return len(l.items)
	}
	return to
}

// Commit makes b visible. A batch reserved before the last Reset is dropped
// and nil returned.
func (l *Loader[T]) Commit(b Batch) []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b.gen != l.gen {
		return nil
	}
	l.loading = false
	l.cursor = b.to
	return l.items[b.from:b.to:b.to]
}

// Abort releases b without advancing.
func (l *Loader[T]) Abort(b Batch) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if b.gen == l.gen {
		l.loading = false
	}
}

// Reset replaces the collection and shows its first batch again. The first
// batch is never folded; only later batches absorb a short tail.
func (l *Loader[T]) Reset(items []T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.items = items
	l.gen++
	l.loading = false
	l.cursor = min(l.batch, len(items))
}

// Seek sets the number of visible items, clamped to the collection.
func (l *Loader[T]) Seek(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.cursor = max(0, min(n, len(l.items)))
}

// Visible returns the revealed prefix.
func (l *Loader[T]) Visible() []T {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.items[:l.cursor:l.cursor]
}

func (l *Loader[T]) Cursor() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor
}

func (l *Loader[T]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Done reports whether every item is visible.
func (l *Loader[T]) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cursor >= len(l.items)
}
