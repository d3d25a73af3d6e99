package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/dmitrijs2005/lango/internal/server/keys"
	"github.com/dmitrijs2005/lango/internal/server/store"
)

// Repository persists principals. Lookups report common.ErrorNotFound for
// unknown users; Create reports common.ErrorAlreadyExists for a taken username.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*User, error)
	Get(ctx context.Context, id string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateFields(ctx context.Context, id string, f Fields) (*User, error)
	Delete(ctx context.Context, id string) error
}

// StoreRepository keeps profiles and username claims in a store.Table.
type StoreRepository struct {
	table         store.Table
	usernameIndex string
}

func NewStoreRepository(table store.Table, usernameIndex string) *StoreRepository {
	return &StoreRepository{table: table, usernameIndex: usernameIndex}
}

var _ Repository = (*StoreRepository)(nil)

func (r *StoreRepository) FindByUsername(ctx context.Context, username string) (*User, error) {
	items, err := r.table.QueryIndex(ctx, store.IndexQuery{
		Index: r.usernameIndex,
		Attr:  AttrUsername,
		Value: keys.NormalizeUsername(username),
		SK:    keys.ProfileSK,
	})
	if err != nil {
		return nil, fmt.Errorf("query username index: %w", err)
	}
	if len(items) == 0 {
		return nil, common.ErrorNotFound
	}
	return fromItem(items[0]), nil
}

func (r *StoreRepository) Get(ctx context.Context, id string) (*User, error) {
	it, err := r.table.Get(ctx, keys.Profile(id))
	if err != nil {
		return nil, err
	}
	return fromItem(it), nil
}

// Create writes the profile and the username claim in one transaction, so
// concurrent signups for the same username cannot both succeed.
func (r *StoreRepository) Create(ctx context.Context, user *User) error {
	user.Username = keys.NormalizeUsername(user.Username)
	return r.table.Transact(ctx,
		store.CreateOp(user.item()),
		store.CreateOp(claimItem(user.Username, user.ID)),
	)
}

// UpdateFields applies f to the profile. A username change moves the claim
// in the same transaction as the profile update.
func (r *StoreRepository) UpdateFields(ctx context.Context, id string, f Fields) (*User, error) {
	if f.empty() {
		return r.Get(ctx, id)
	}
	if f.Username != nil {
		normalized := keys.NormalizeUsername(*f.Username)
		f.Username = &normalized
	}

	if f.Username == nil {
		it, err := r.table.Update(ctx, keys.Profile(id), f.attrs())
		if err != nil {
			return nil, err
		}
		return fromItem(it), nil
	}

	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ops := []store.Op{store.UpdateOp(keys.Profile(id), f.attrs())}
	if *f.Username != current.Username {
		ops = append(ops,
			store.DeleteOp(keys.UsernameClaim(current.Username)),
			store.CreateOp(claimItem(*f.Username, id)),
		)
	}
	if err := r.table.Transact(ctx, ops...); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Delete removes the profile and the username claim. Items under the user
// scope are not touched; see cascade.Deleter.
func (r *StoreRepository) Delete(ctx context.Context, id string) error {
	current, err := r.Get(ctx, id)
	if err != nil {
		return err
	}

	err = r.table.Transact(ctx,
		store.DeleteOp(keys.Profile(id)),
		store.DeleteOp(keys.UsernameClaim(current.Username)),
	)
	if errors.Is(err, common.ErrorNotFound) {
		// Claim already gone: drop the profile alone.
		return r.table.Delete(ctx, keys.Profile(id))
	}
	return err
}
