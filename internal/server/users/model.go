package users

import (
	"time"

	"github.com/dmitrijs2005/lango/internal/server/keys"
	"github.com/dmitrijs2005/lango/internal/server/store"
)

// Profile item attribute names.
const (
	AttrUserID            = "user_id"
	AttrUsername          = "username"
	AttrPasswordHash      = "hashed_password"
	AttrFirstName         = "first_name"
	AttrLastName          = "last_name"
	AttrPreferredLanguage = "preferred_language"
	AttrCreatedAt         = "created_at"
	AttrLastLogin         = "last_login"
)

// User is a registered principal.
type User struct {
	ID                string
	Username          string
	PasswordHash      string `json:"-"`
	FirstName         string
	LastName          string
	PreferredLanguage string
	CreatedAt         time.Time
	// LastLoginAt is zero until the first successful login.
	LastLoginAt time.Time
}

// Fields is a partial profile update; nil fields are left untouched.
type Fields struct {
	Username          *string
	PasswordHash      *string
	FirstName         *string
	LastName          *string
	PreferredLanguage *string
	LastLoginAt       *time.Time
}

func (f Fields) empty() bool {
	return f.Username == nil && f.PasswordHash == nil && f.FirstName == nil &&
		f.LastName == nil && f.PreferredLanguage == nil && f.LastLoginAt == nil
}

func (f Fields) attrs() map[string]any {
	out := map[string]any{}
	set := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	set(AttrUsername, f.Username)
	set(AttrPasswordHash, f.PasswordHash)
	set(AttrFirstName, f.FirstName)
	set(AttrLastName, f.LastName)
	set(AttrPreferredLanguage, f.PreferredLanguage)
	if f.LastLoginAt != nil {
		out[AttrLastLogin] = f.LastLoginAt.Unix()
	}
	return out
}

func (u *User) item() store.Item {
	attrs := map[string]any{
		AttrUserID:            u.ID,
		AttrUsername:          u.Username,
		AttrPasswordHash:      u.PasswordHash,
		AttrFirstName:         u.FirstName,
		AttrLastName:          u.LastName,
		AttrPreferredLanguage: u.PreferredLanguage,
		AttrCreatedAt:         u.CreatedAt.Unix(),
	}
	if !u.LastLoginAt.IsZero() {
		attrs[AttrLastLogin] = u.LastLoginAt.Unix()
	}
	return store.Item{Key: keys.Profile(u.ID), Attrs: attrs}
}

func fromItem(it store.Item) *User {
	u := &User{
		ID:                it.String(AttrUserID),
		Username:          it.String(AttrUsername),
		PasswordHash:      it.String(AttrPasswordHash),
		FirstName:         it.String(AttrFirstName),
		LastName:          it.String(AttrLastName),
		PreferredLanguage: it.String(AttrPreferredLanguage),
		CreatedAt:         time.Unix(it.Int(AttrCreatedAt), 0).UTC(),
	}
	if ts := it.Int(AttrLastLogin); ts != 0 {
		u.LastLoginAt = time.Unix(ts, 0).UTC()
	}
	if u.ID == "" {
		if id, ok := keys.TrimTag(it.PK, keys.UserTag+keys.Separator); ok {
			u.ID = id
		}
	}
	return u
}

func claimItem(username, userID string) store.Item {
	return store.Item{Key: keys.UsernameClaim(username), Attrs: map[string]any{AttrUserID: userID}}
}
