package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/dmitrijs2005/lango/internal/dbx"
	"github.com/dmitrijs2005/lango/internal/server/store"
)

// Table is a store.Table over the items table.
type Table struct {
	db *sql.DB
}

func NewTable(db *sql.DB) *Table {
	return &Table{db: db}
}

var _ store.Table = (*Table)(nil)

func (t *Table) Get(ctx context.Context, key store.Key) (store.Item, error) {
	var raw []byte
	err := t.db.QueryRowContext(ctx,
		`SELECT attrs FROM items WHERE pk = $1 AND sk = $2`, key.PK, key.SK).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Item{}, common.ErrorNotFound
		}
		return store.Item{}, fmt.Errorf("db error: %w", err)
	}
	attrs, err := decodeAttrs(raw)
	if err != nil {
		return store.Item{}, err
	}
	return store.Item{Key: key, Attrs: attrs}, nil
}

func (t *Table) Put(ctx context.Context, item store.Item) error {
	return put(ctx, t.db, item)
}

func (t *Table) Create(ctx context.Context, item store.Item) error {
	return create(ctx, t.db, item)
}

func (t *Table) Update(ctx context.Context, key store.Key, attrs map[string]any) (store.Item, error) {
	return update(ctx, t.db, key, attrs)
}

func (t *Table) Delete(ctx context.Context, key store.Key) error {
	return remove(ctx, t.db, key)
}

func (t *Table) Query(ctx context.Context, pk, skPrefix string) ([]store.Item, error) {
	rows, err := t.db.QueryContext(ctx,
		`SELECT pk, sk, attrs FROM items WHERE pk = $1 AND starts_with(sk, $2) ORDER BY sk`, pk, skPrefix)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanItems(rows)
}

// QueryIndex ignores q.Index. The attribute name is inlined so that the
// planner can match the expression index on attrs->>'username'.
func (t *Table) QueryIndex(ctx context.Context, q store.IndexQuery) ([]store.Item, error) {
	if !validAttrName(q.Attr) {
		return nil, fmt.Errorf("invalid attribute name %q", q.Attr)
	}
	query := `SELECT pk, sk, attrs FROM items WHERE attrs->>'` + q.Attr + `' = $1`
	args := []any{q.Value}
	if q.SK != "" {
		query += ` AND sk = $2`
		args = append(args, q.SK)
	}
	query += ` ORDER BY pk, sk`

	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanItems(rows)
}

func (t *Table) Transact(ctx context.Context, ops ...store.Op) error {
	return dbx.WithTx(ctx, t.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, op := range ops {
			var err error
			switch op.Kind {
			case store.OpPut:
				err = put(ctx, tx, op.Item)
			case store.OpCreate:
				err = create(ctx, tx, op.Item)
			case store.OpUpdate:
				_, err = update(ctx, tx, op.Key, op.Attrs)
			case store.OpDelete:
				err = remove(ctx, tx, op.Key)
			default:
				err = fmt.Errorf("unsupported op %v", op.Kind)
			}
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteBatch removes up to store.MaxBatch keys per statement. Postgres
// never leaves keys unprocessed.
func (t *Table) DeleteBatch(ctx context.Context, keys []store.Key) ([]store.Key, error) {
	for start := 0; start < len(keys); start += store.MaxBatch {
		end := min(start+store.MaxBatch, len(keys))

		var sb strings.Builder
		args := make([]any, 0, 2*(end-start))
		sb.WriteString(`DELETE FROM items WHERE (pk, sk) IN (`)
		for i, k := range keys[start:end] {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "($%d, $%d)", 2*i+1, 2*i+2)
			args = append(args, k.PK, k.SK)
		}
		sb.WriteString(`)`)

		if _, err := t.db.ExecContext(ctx, sb.String(), args...); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
	}
	return nil, nil
}

func put(ctx context.Context, db dbx.DBTX, item store.Item) error {
	raw, err := encodeAttrs(item.Attrs)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx,
		`INSERT INTO items (pk, sk, attrs) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (pk, sk) DO UPDATE SET attrs = EXCLUDED.attrs`,
		item.PK, item.SK, raw)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func create(ctx context.Context, db dbx.DBTX, item store.Item) error {
	raw, err := encodeAttrs(item.Attrs)
	if err != nil {
		return err
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO items (pk, sk, attrs) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (pk, sk) DO NOTHING`,
		item.PK, item.SK, raw)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res, common.ErrorAlreadyExists)
}

func update(ctx context.Context, db dbx.DBTX, key store.Key, attrs map[string]any) (store.Item, error) {
	raw, err := encodeAttrs(attrs)
	if err != nil {
		return store.Item{}, err
	}
	var out []byte
	err = db.QueryRowContext(ctx,
		`UPDATE items SET attrs = attrs || $3::jsonb WHERE pk = $1 AND sk = $2 RETURNING attrs`,
		key.PK, key.SK, raw).Scan(&out)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return store.Item{}, common.ErrorNotFound
		}
		return store.Item{}, fmt.Errorf("db error: %w", err)
	}
	merged, err := decodeAttrs(out)
	if err != nil {
		return store.Item{}, err
	}
	return store.Item{Key: key, Attrs: merged}, nil
}

func remove(ctx context.Context, db dbx.DBTX, key store.Key) error {
	res, err := db.ExecContext(ctx, `DELETE FROM items WHERE pk = $1 AND sk = $2`, key.PK, key.SK)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return requireRow(res, common.ErrorNotFound)
}

func requireRow(res sql.Result, none error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return none
	}
	return nil
}

func scanItems(rows *sql.Rows) ([]store.Item, error) {
	defer rows.Close()

	var out []store.Item
	for rows.Next() {
		var (
			it  store.Item
			raw []byte
		)
		if err := rows.Scan(&it.PK, &it.SK, &raw); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		attrs, err := decodeAttrs(raw)
		if err != nil {
			return nil, err
		}
		it.Attrs = attrs
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func encodeAttrs(attrs map[string]any) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", fmt.Errorf("encode attributes: %w", err)
	}
	return string(b), nil
}

// decodeAttrs keeps integers as int64 instead of float64.
func decodeAttrs(raw []byte) (map[string]any, error) {
	attrs := map[string]any{}
	if len(raw) == 0 {
		return attrs, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&attrs); err != nil {
		return nil, fmt.Errorf("decode attributes: %w", err)
	}
	for k, v := range attrs {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		i, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", k, err)
		}
		attrs[k] = i
	}
	return attrs, nil
}

func validAttrName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return false
		}
	}
	return true
}
