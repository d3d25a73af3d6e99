// Package memory is an in-process store.Table used by tests and local runs.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/dmitrijs2005/lango/internal/server/store"
)

// Table keeps items in a map guarded by a RWMutex.
type Table struct {
	mu    sync.RWMutex
	items map[store.Key]store.Item
}

// New returns an empty table.
func New() *Table {
	return &Table{items: make(map[store.Key]store.Item)}
}

var _ store.Table = (*Table)(nil)

// Len reports the number of stored items.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.items)
}

func (t *Table) Get(ctx context.Context, key store.Key) (store.Item, error) {
	if err := ctx.Err(); err != nil {
		return store.Item{}, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	it, ok := t.items[key]
	if !ok {
		return store.Item{}, common.ErrorNotFound
	}
	return it.Clone(), nil
}

func (t *Table) Put(ctx context.Context, item store.Item) error {
	return t.Transact(ctx, store.PutOp(item))
}

func (t *Table) Create(ctx context.Context, item store.Item) error {
	return t.Transact(ctx, store.CreateOp(item))
}

func (t *Table) Update(ctx context.Context, key store.Key, attrs map[string]any) (store.Item, error) {
	if err := t.Transact(ctx, store.UpdateOp(key, attrs)); err != nil {
		return store.Item{}, err
	}
	return t.Get(ctx, key)
}

func (t *Table) Delete(ctx context.Context, key store.Key) error {
	return t.Transact(ctx, store.DeleteOp(key))
}

func (t *Table) Query(ctx context.Context, pk, skPrefix string) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []store.Item
	for k, it := range t.items {
		if k.PK == pk && strings.HasPrefix(k.SK, skPrefix) {
			out = append(out, it.Clone())
		}
	}
	sortBySK(out)
	return out, nil
}

func (t *Table) QueryIndex(ctx context.Context, q store.IndexQuery) ([]store.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	var out []store.Item
	for k, it := range t.items {
		if q.SK != "" && k.SK != q.SK {
			continue
		}
		if v, ok := it.Attrs[q.Attr].(string); ok && v == q.Value {
			out = append(out, it.Clone())
		}
	}
	sortBySK(out)
	return out, nil
}

// Transact validates every op against the current state before applying any.
func (t *Table) Transact(ctx context.Context, ops ...store.Op) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, op := range ops {
		_, exists := t.items[op.Target()]
		switch op.Kind {
		case store.OpCreate:
			if exists {
				return common.ErrorAlreadyExists
			}
		case store.OpUpdate, store.OpDelete:
			if !exists {
				return common.ErrorNotFound
			}
		}
	}

	for _, op := range ops {
		switch op.Kind {
		case store.OpPut, store.OpCreate:
			t.items[op.Item.Key] = op.Item.Clone()
		case store.OpUpdate:
			it := t.items[op.Key].Clone()
			for k, v := range op.Attrs {
				it.Attrs[k] = v
			}
			t.items[op.Key] = it
		case store.OpDelete:
			delete(t.items, op.Key)
		}
	}
	return nil
}

func (t *Table) DeleteBatch(ctx context.Context, keys []store.Key) ([]store.Key, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, k := range keys {
		delete(t.items, k)
	}
	return nil, nil
}

func sortBySK(items []store.Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].PK != items[j].PK {
			return items[i].PK < items[j].PK
		}
		return items[i].SK < items[j].SK
	})
}
