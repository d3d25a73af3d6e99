// Package store defines the single-table key-value contract the server is
// written against. Backends live in the memory, dynamo and postgres
// subpackages.
//
// Items are addressed by a partition key (PK) and sort key (SK). Attribute
// values are limited to string, int64 and bool.
package store

import (
	"context"

	"github.com/dmitrijs2005/lango/internal/server/keys"
)

// Key is the primary key of an item.
type Key = keys.Key

// Key attribute names. Attrs maps never contain them.
const (
	AttrPK = "PK"
	AttrSK = "SK"
)

// MaxBatch is the largest number of keys a backend deletes in one request.
const MaxBatch = 25

// Item is one stored record.
type Item struct {
	Key
	Attrs map[string]any
}

// String returns the string attribute name, or "" when absent or of another type.
func (i Item) String(name string) string {
	s, _ := i.Attrs[name].(string)
	return s
}

// Int returns the integer attribute name, or 0.
func (i Item) Int(name string) int64 {
	switch v := i.Attrs[name].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// Clone returns a copy whose Attrs map can be modified independently.
func (i Item) Clone() Item {
	out := Item{Key: i.Key, Attrs: make(map[string]any, len(i.Attrs))}
	for k, v := range i.Attrs {
		out.Attrs[k] = v
	}
	return out
}

// OpKind selects what an Op does inside Transact.
type OpKind int

const (
	// OpPut writes an item unconditionally.
	OpPut OpKind = iota
	// OpCreate writes an item that must not exist yet.
	OpCreate
	// OpUpdate sets attributes on an item that must exist.
	OpUpdate
	// OpDelete removes an item that must exist.
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpPut:
		return "put"
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Op is a single write inside Transact.
type Op struct {
	Kind  OpKind
	Item  Item           // OpPut, OpCreate
	Key   Key            // OpUpdate, OpDelete
	Attrs map[string]any // OpUpdate
}

func PutOp(item Item) Op                        { return Op{Kind: OpPut, Item: item} }
func CreateOp(item Item) Op                     { return Op{Kind: OpCreate, Item: item} }
func UpdateOp(key Key, attrs map[string]any) Op { return Op{Kind: OpUpdate, Key: key, Attrs: attrs} }
func DeleteOp(key Key) Op                       { return Op{Kind: OpDelete, Key: key} }

// Target returns the key the op writes to.
func (o Op) Target() Key {
	if o.Kind == OpPut || o.Kind == OpCreate {
		return o.Item.Key
	}
	return o.Key
}

// IndexQuery looks items up by a secondary attribute.
type IndexQuery struct {
	// Index is the backend index name; backends without named indexes ignore it.
	Index string
	Attr  string
	Value string
	// SK, when set, restricts results to items with exactly this sort key.
	SK string
}

// Table is the single-table store.
//
// Conditional failures are reported as common.ErrorAlreadyExists (Create,
// OpCreate) and common.ErrorNotFound (Get, Update, Delete, OpUpdate, OpDelete).
type Table interface {
	Get(ctx context.Context, key Key) (Item, error)
	Put(ctx context.Context, item Item) error
	Create(ctx context.Context, item Item) error
	// Update sets attrs on an existing item and returns the updated item.
	Update(ctx context.Context, key Key, attrs map[string]any) (Item, error)
	Delete(ctx context.Context, key Key) error
	// Query returns the items of partition pk whose sort key starts with
	// skPrefix, ordered by sort key.
	Query(ctx context.Context, pk, skPrefix string) ([]Item, error)
	QueryIndex(ctx context.Context, q IndexQuery) ([]Item, error)
	// Transact applies ops atomically: all succeed or none is applied.
	Transact(ctx context.Context, ops ...Op) error
	// DeleteBatch removes keys without existence checks. Keys the backend
	// could not process are returned for resubmission.
	DeleteBatch(ctx context.Context, keys []Key) (unprocessed []Key, err error)
}
