// Package users implements the principal lifecycle: signup, login, profile
// read, edit and delete.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/dmitrijs2005/lango/internal/logging"
	"github.com/dmitrijs2005/lango/internal/server/keys"
	"github.com/dmitrijs2005/lango/internal/server/password"
)

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(userID, username string) (string, error)
}

// Purger removes everything a user owns except the profile itself.
type Purger interface {
	PurgeUser(ctx context.Context, userID string) (int, error)
}

// Session is the result of a successful signup or login.
type Session struct {
	UserID string
	Token  string
}

type SignupRequest struct {
	Username          string
	Password          string
	FirstName         string
	LastName          string
	PreferredLanguage string
}

type LoginRequest struct {
	Username string
	Password string
}

// EditRequest holds the profile fields to change; nil means unchanged.
type EditRequest struct {
	Username          *string
	Password          *string
	FirstName         *string
	LastName          *string
	PreferredLanguage *string
}

var errMissingFields = common.NewValidationError("Missing Required Fields")

type Service struct {
	repo   Repository
	tokens TokenIssuer
	purger Purger
	log    logging.Logger
	now    func() time.Time
	newID  func() string
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func NewService(repo Repository, tokens TokenIssuer, purger Purger, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		tokens: tokens,
		purger: purger,
		log:    log.With("module", "users"),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Signup registers a principal and returns its first session.
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Session, error) {
	if blank(req.Username, req.Password, req.FirstName, req.LastName, req.PreferredLanguage) {
		return nil, errMissingFields
	}
	username := keys.NormalizeUsername(req.Username)

	_, err := s.repo.FindByUsername(ctx, username)
	switch {
	case err == nil:
		return nil, common.NewError(common.ErrorAlreadyExists, "Username already exists")
	case !errors.Is(err, common.ErrorNotFound):
		return nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &User{
		ID:                s.newID(),
		Username:          username,
		PasswordHash:      hash,
		FirstName:         strings.TrimSpace(req.FirstName),
		LastName:          strings.TrimSpace(req.LastName),
		PreferredLanguage: strings.TrimSpace(req.PreferredLanguage),
		CreatedAt:         s.now().UTC().Truncate(time.Second),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewError(common.ErrorAlreadyExists, "Username already exists")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.log.Info(ctx, "user signed up", "user_id", user.ID)
	return &Session{UserID: user.ID, Token: token}, nil
}

// Login verifies credentials, records the login time and returns a session.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if blank(req.Username, req.Password) {
		return nil, errMissingFields
	}
	username := keys.NormalizeUsername(req.Username)

	user, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.NewError(common.ErrorNotFound, "Invalid Username")
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !password.Matches(req.Password, user.PasswordHash) {
		return nil, common.NewError(common.ErrorUnauthorized, "Invalid Password")
	}

	token, err := s.tokens.Issue(user.ID, user.Username)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	now := s.now().UTC().Truncate(time.Second)
	if _, err := s.repo.UpdateFields(ctx, user.ID, Fields{LastLoginAt: &now}); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return &Session{UserID: user.ID, Token: token}, nil
}

// Get returns a principal by identifier.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	user, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, userError(err, "get user")
	}
	return user, nil
}

// Edit applies a partial profile update. A new password is checked against
// the password policy and stored hashed; a new username must be free.
func (s *Service) Edit(ctx context.Context, id string, req EditRequest) (*User, error) {
	var f Fields
	trimmed := func(v *string) *string {
		if v == nil {
			return nil
		}
		t := strings.TrimSpace(*v)
		return &t
	}
	f.FirstName = trimmed(req.FirstName)
	f.LastName = trimmed(req.LastName)
	f.PreferredLanguage = trimmed(req.PreferredLanguage)

	if req.Username != nil {
		u := keys.NormalizeUsername(*req.Username)
		if u == "" {
			return nil, common.NewValidationError("Username must not be empty")
		}
		f.Username = &u
	}
	if req.Password != nil {
		hash, err := password.Hash(*req.Password)
		if err != nil {
			return nil, err
		}
		f.PasswordHash = &hash
	}
	if f.empty() {
		return nil, common.NewValidationError("No fields to update")
	}
	for _, v := range []*string{f.FirstName, f.LastName, f.PreferredLanguage} {
		if v != nil && *v == "" {
			return nil, common.NewValidationError("Fields must not be empty")
		}
	}

	user, err := s.repo.UpdateFields(ctx, id, f)
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewError(common.ErrorAlreadyExists, "Username already exists")
		}
		return nil, userError(err, "update user")
	}
	s.log.Info(ctx, "user updated", "user_id", id)
	return user, nil
}

// Delete removes everything the user owns, then the profile. A failure part
// way leaves the profile in place, so calling Delete again resumes.
func (s *Service) Delete(ctx context.Context, id string) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return userError(err, "get user")
	}

	n, err := s.purger.PurgeUser(ctx, id)
	if err != nil {
		return fmt.Errorf("purge user data: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return userError(err, "delete user")
	}

	s.log.Info(ctx, "user deleted", "user_id", id, "items", n+1)
	return nil
}

func userError(err error, op string) error {
	if errors.Is(err, common.ErrorNotFound) {
		return common.NewError(common.ErrorNotFound, "User not found")
	}
	return fmt.Errorf("%s: %w", op, err)
}

func blank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			return true
		}
	}
	return false
}
