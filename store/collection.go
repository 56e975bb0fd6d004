// ABOUTME: Reactive local cache of one entity table
// ABOUTME: Keeps the latest snapshot, applies local writes, and notifies subscribers
package store

import (
	"context"
	"fmt"
	"sync"
)

// Entity is implemented by every model stored in a Collection.
type Entity interface {
	EntityID() string
}

// Collection caches one table's rows as typed values, newest first.
type Collection[T Entity] struct {
	table Table
	gw    Gateway

	mu    sync.RWMutex
	items []T

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

// NewCollection creates an empty collection over gw.
func NewCollection[T Entity](gw Gateway, table Table) *Collection[T] {
	return &Collection[T]{
		table: table,
		gw:    gw,
		subs:  make(map[int]func()),
	}
}

// Table returns the table this collection mirrors.
func (c *Collection[T]) Table() Table {
	return c.table
}

// Load fetches the whole table and replaces the snapshot.
func (c *Collection[T]) Load(ctx context.Context) error {
	rows, err := c.gw.List(ctx, c.table)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", c.table, err)
	}
	return c.replaceRows(rows)
}

// Items returns a copy of the current snapshot.
func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Find looks an item up in the snapshot without touching the gateway.
func (c *Collection[T]) Find(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if item.EntityID() == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// Create inserts a record remotely and adds it to the snapshot.
func (c *Collection[T]) Create(ctx context.Context, fields Row) (T, error) {
	var zero T
	row, err := c.create(ctx, fields)
	if err != nil {
		return zero, err
	}
	return Decode[T](row)
}

// Update patches a record remotely and replaces it in the snapshot.
func (c *Collection[T]) Update(ctx context.Context, id string, fields Row) (T, error) {
	var zero T
	row, err := c.update(ctx, id, fields)
	if err != nil {
		return zero, err
	}
	return Decode[T](row)
}

// Delete removes a record remotely and from the snapshot.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.gw.Delete(ctx, c.table, id); err != nil {
		return err
	}
	c.remove(id)
	return nil
}

// Subscribe registers fn to run after every snapshot change. The returned func unsubscribes.
func (c *Collection[T]) Subscribe(fn func()) func() {
	c.subMu.Lock()
	defer c.subMu.Unlock()

	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn

	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Collection[T]) create(ctx context.Context, fields Row) (Row, error) {
	row, err := c.gw.Create(ctx, c.table, fields)
	if err != nil {
		return nil, err
	}
	return row, c.upsertRow(row)
}

func (c *Collection[T]) update(ctx context.Context, id string, fields Row) (Row, error) {
	row, err := c.gw.Update(ctx, c.table, id, fields)
	if err != nil {
		return nil, err
	}
	return row, c.upsertRow(row)
}

func (c *Collection[T]) replaceRows(rows []Row) error {
	items, err := DecodeAll[T](rows)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.items = items
	c.mu.Unlock()

	c.notify()
	return nil
}

func (c *Collection[T]) upsertRow(row Row) error {
	item, err := Decode[T](row)
	if err != nil {
		return err
	}

	c.mu.Lock()
	replaced := false
	for i := range c.items {
		if c.items[i].EntityID() == item.EntityID() {
			c.items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		c.items = append([]T{item}, c.items...)
	}
	c.mu.Unlock()

	c.notify()
	return nil
}

func (c *Collection[T]) remove(id string) {
	c.mu.Lock()
	for i := range c.items {
		if c.items[i].EntityID() == id {
			c.items = append(c.items[:i], c.items[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	c.notify()
}

func (c *Collection[T]) notify() {
	c.subMu.Lock()
	fns := make([]func(), 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
