package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/dmitrijs2005/lango/internal/server/store"
)

func newMock(t *testing.T) (*Table, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return NewTable(db), mock
}

var profileKey = store.Key{PK: "USER#1", SK: "PROFILE"}

func TestTable_Get(t *testing.T) {
	tbl, mock := newMock(t)
	q := regexp.QuoteMeta(`SELECT attrs FROM items WHERE pk = $1 AND sk = $2`)

	mock.ExpectQuery(q).WithArgs("USER#1", "PROFILE").
		WillReturnRows(sqlmock.NewRows([]string{"attrs"}).AddRow([]byte(`{"username":"alice","created_at":1700000000}`)))
	mock.ExpectQuery(q).WithArgs("USER#2", "PROFILE").WillReturnError(sql.ErrNoRows)

	it, err := tbl.Get(context.Background(), profileKey)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"username": "alice", "created_at": int64(1700000000)}, it.Attrs)

	_, err = tbl.Get(context.Background(), store.Key{PK: "USER#2", SK: "PROFILE"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTable_Put(t *testing.T) {
	tbl, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (pk, sk) DO UPDATE SET attrs = EXCLUDED.attrs`)).
		WithArgs("USER#1", "PROFILE", `{"username":"alice"}`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, tbl.Put(context.Background(), store.Item{Key: profileKey, Attrs: map[string]any{"username": "alice"}}))
}

func TestTable_CreateConflict(t *testing.T) {
	tbl, mock := newMock(t)
	q := regexp.QuoteMeta(`ON CONFLICT (pk, sk) DO NOTHING`)
	mock.ExpectExec(q).WithArgs("USER#1", "PROFILE", "{}").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("USER#1", "PROFILE", "{}").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, tbl.Create(context.Background(), store.Item{Key: profileKey}))
	assert.ErrorIs(t, tbl.Create(context.Background(), store.Item{Key: profileKey}), common.ErrorAlreadyExists)
}

func TestTable_Update(t *testing.T) {
	tbl, mock := newMock(t)
	q := regexp.QuoteMeta(`UPDATE items SET attrs = attrs || $3::jsonb WHERE pk = $1 AND sk = $2 RETURNING attrs`)
	mock.ExpectQuery(q).WithArgs("USER#1", "PROFILE", `{"email":"a@x.io"}`).
		WillReturnRows(sqlmock.NewRows([]string{"attrs"}).AddRow([]byte(`{"username":"alice","email":"a@x.io"}`)))
	mock.ExpectQuery(q).WithArgs("USER#9", "PROFILE", `{"email":"a@x.io"}`).WillReturnError(sql.ErrNoRows)

	it, err := tbl.Update(context.Background(), profileKey, map[string]any{"email": "a@x.io"})
	require.NoError(t, err)
	assert.Equal(t, "alice", it.String("username"))
	assert.Equal(t, "a@x.io", it.String("email"))

	_, err = tbl.Update(context.Background(), store.Key{PK: "USER#9", SK: "PROFILE"}, map[string]any{"email": "a@x.io"})
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestTable_Delete(t *testing.T) {
	tbl, mock := newMock(t)
	q := regexp.QuoteMeta(`DELETE FROM items WHERE pk = $1 AND sk = $2`)
	mock.ExpectExec(q).WithArgs("USER#1", "PROFILE").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q).WithArgs("USER#1", "PROFILE").WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, tbl.Delete(context.Background(), profileKey))
	assert.ErrorIs(t, tbl.Delete(context.Background(), profileKey), common.ErrorNotFound)
}

func TestTable_Query(t *testing.T) {
	tbl, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE pk = $1 AND starts_with(sk, $2) ORDER BY sk`)).
		WithArgs("USER#1", "LANGUAGE#").
		WillReturnRows(sqlmock.NewRows([]string{"pk", "sk", "attrs"}).
			AddRow("USER#1", "LANGUAGE#de", []byte(`{"created_at":1}`)).
			AddRow("USER#1", "LANGUAGE#fr", []byte(`{}`)))

	items, err := tbl.Query(context.Background(), "USER#1", "LANGUAGE#")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].Int("created_at"))
	assert.Equal(t, "LANGUAGE#fr", items[1].SK)
}

func TestTable_QueryIndex(t *testing.T) {
	tbl, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`WHERE attrs->>'username' = $1 AND sk = $2 ORDER BY pk, sk`)).
		WithArgs("alice", "PROFILE").
		WillReturnRows(sqlmock.NewRows([]string{"pk", "sk", "attrs"}).
			AddRow("USER#1", "PROFILE", []byte(`{"username":"alice"}`)))

	items, err := tbl.QueryIndex(context.Background(), store.IndexQuery{Attr: "username", Value: "alice", SK: "PROFILE"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "USER#1", items[0].PK)

	_, err = tbl.QueryIndex(context.Background(), store.IndexQuery{Attr: "x' OR '1'='1", Value: "a"})
	assert.Error(t, err)
}

func TestTable_TransactRollsBackOnConflict(t *testing.T) {
	tbl, mock := newMock(t)
	ins := regexp.QuoteMeta(`ON CONFLICT (pk, sk) DO NOTHING`)

	mock.ExpectBegin()
	mock.ExpectExec(ins).WithArgs("USER#2", "PROFILE", "{}").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(ins).WithArgs("USERNAME#alice", "USERNAME", "{}").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := tbl.Transact(context.Background(),
		store.CreateOp(store.Item{Key: store.Key{PK: "USER#2", SK: "PROFILE"}}),
		store.CreateOp(store.Item{Key: store.Key{PK: "USERNAME#alice", SK: "USERNAME"}}),
	)
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestTable_TransactCommits(t *testing.T) {
	tbl, mock := newMock(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE items SET attrs`)).
		WithArgs("USER#1", "PROFILE", `{"username":"bob"}`).
		WillReturnRows(sqlmock.NewRows([]string{"attrs"}).AddRow([]byte(`{"username":"bob"}`)))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM items WHERE pk = $1`)).
		WithArgs("USERNAME#alice", "USERNAME").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := tbl.Transact(context.Background(),
		store.UpdateOp(profileKey, map[string]any{"username": "bob"}),
		store.DeleteOp(store.Key{PK: "USERNAME#alice", SK: "USERNAME"}),
	)
	require.NoError(t, err)
}

func TestTable_DeleteBatch(t *testing.T) {
	tbl, mock := newMock(t)
	keys := make([]store.Key, 27)
	for i := range keys {
		keys[i] = store.Key{PK: "USER#1", SK: fmt.Sprintf("FLASHCARD#%02d", i)}
	}

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM items WHERE (pk, sk) IN (($1, $2), ($3, $4)`)).
		WillReturnResult(sqlmock.NewResult(0, 25))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM items WHERE (pk, sk) IN (($1, $2), ($3, $4))`)).
		WithArgs("USER#1", "FLASHCARD#25", "USER#1", "FLASHCARD#26").
		WillReturnResult(sqlmock.NewResult(0, 2))

	left, err := tbl.DeleteBatch(context.Background(), keys)
	require.NoError(t, err)
	assert.Empty(t, left)
}

func TestTable_DBErrorsAreWrapped(t *testing.T) {
	tbl, mock := newMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM items`)).WillReturnError(errors.New("conn reset"))

	err := tbl.Delete(context.Background(), profileKey)
	assert.ErrorContains(t, err, "conn reset")
	assert.NotErrorIs(t, err, common.ErrorNotFound)
}
