// Package dedupe tracks submission idempotency keys so retries return the
// stored result instead of scoring twice.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records idempotency keys and the result each one produced.
type Deduper interface {
	// SeenAndRecord atomically checks if key was seen and claims it if not.
	// Returns true if key was already seen, false if it was newly claimed.
	SeenAndRecord(ctx context.Context, key string) bool

	// Resolve attaches the stored result id to a claimed key.
	Resolve(ctx context.Context, key, resultID string)

	// ResultFor returns the result id of a resolved key. A key that is
	// claimed but not yet resolved reports false.
	ResultFor(ctx context.Context, key string) (string, bool)

	// Unrecord releases a claim whose submission failed, allowing a retry.
	Unrecord(ctx context.Context, key string)

	Size() int64
}

// node is one entry of the insertion-ordered list.
type node struct {
	key      string
	resultID string
	prev     *node
	next     *node
}

// inMemoryDeduper keeps keys in a map plus a doubly linked list ordered by
// claim time. In bounded mode (maxSize > 0) the oldest key is evicted first.
// In unbounded mode (maxSize <= 0) nothing is evicted.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*node
	head    *node // newest
	tail    *node // oldest
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 50000,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*node)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		d.evictOldest()
	}

	n := &node{key: key, next: d.head}
	if d.head != nil {
		d.head.prev = n
	}
	d.head = n
	if d.tail == nil {
		d.tail = n
	}
	d.seen[key] = n
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Resolve(ctx context.Context, key, resultID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.seen[key]; ok {
		n.resultID = resultID
	}
}

func (d *inMemoryDeduper) ResultFor(ctx context.Context, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.seen[key]
	if !ok || n.resultID == "" {
		return "", false
	}
	return n.resultID, true
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if n, ok := d.seen[key]; ok {
		d.unlink(n)
	}
}

// evictOldest drops the tail. Must be called with d.mu held.
func (d *inMemoryDeduper) evictOldest() {
	if d.tail != nil {
		d.unlink(d.tail)
	}
}

// unlink removes n from the list and map. Must be called with d.mu held.
func (d *inMemoryDeduper) unlink(n *node) {
	if n.prev != nil {
		n.prev.next = n.next
	} else {
		d.head = n.next
	}
	if n.next != nil {
		n.next.prev = n.prev
	} else {
		d.tail = n.prev
	}
	n.prev, n.next = nil, nil
	delete(d.seen, n.key)
	d.size.Add(-1)
}

// Size returns the current number of keys in the deduper.
func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
