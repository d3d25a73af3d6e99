// Package vocab manages the vocabulary owned by a user: languages, the sets
// of a language and the flashcards of a set.
package vocab

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/dmitrijs2005/lango/internal/logging"
	"github.com/dmitrijs2005/lango/internal/server/keys"
	"github.com/dmitrijs2005/lango/internal/server/store"
)

// Cascader deletes a scope with everything under it.
type Cascader interface {
	DeleteLanguage(ctx context.Context, userID, language string) (int, error)
	DeleteSet(ctx context.Context, userID, language, setID string) (int, error)
}

var (
	errUserNotFound      = common.NewError(common.ErrorNotFound, "User not found")
	errLanguageNotFound  = common.NewError(common.ErrorNotFound, "Language not found")
	errSetNotFound       = common.NewError(common.ErrorNotFound, "Set not found")
	errFlashcardNotFound = common.NewError(common.ErrorNotFound, "Flashcard not found")
)

type Service struct {
	table   store.Table
	cascade Cascader
	log     logging.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

func NewService(table store.Table, cascade Cascader, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		table:   table,
		cascade: cascade,
		log:     log.With("module", "vocab"),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) timestamp() int64 {
	return s.now().Unix()
}

// AddLanguage stores a language marker for the user. Names are trimmed and
// lower-cased.
func (s *Service) AddLanguage(ctx context.Context, userID, name string) (*Language, error) {
	lang := keys.NormalizeLanguage(name)
	if lang == "" {
		return nil, common.NewValidationError("Language is required")
	}
	if !keys.ValidComponent(lang) {
		return nil, common.NewValidationError("Language must not contain " + keys.Separator)
	}
	if err := s.requireItem(ctx, keys.Profile(userID), errUserNotFound); err != nil {
		return nil, err
	}

	ts := s.timestamp()
	err := s.table.Create(ctx, store.Item{
		Key:   keys.Language(userID, lang),
		Attrs: map[string]any{attrLanguage: lang, attrCreatedAt: ts},
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.NewError(common.ErrorAlreadyExists, "Language already exists")
		}
		return nil, fmt.Errorf("create language: %w", err)
	}
	return &Language{Name: lang, CreatedAt: time.Unix(ts, 0).UTC()}, nil
}

// ListLanguages returns the user's languages ordered by name.
func (s *Service) ListLanguages(ctx context.Context, userID string) ([]Language, error) {
	q := keys.LanguagesOf(userID)
	items, err := s.table.Query(ctx, q.PK, q.SKPrefix)
	if err != nil {
		return nil, fmt.Errorf("list languages: %w", err)
	}
	out := make([]Language, 0, len(items))
	for _, it := range items {
		out = append(out, languageFromItem(it))
	}
	return out, nil
}

// DeleteLanguage removes the language with all its sets and flashcards.
func (s *Service) DeleteLanguage(ctx context.Context, userID, name string) (int, error) {
	if err := s.requireItem(ctx, keys.Language(userID, name), errLanguageNotFound); err != nil {
		return 0, err
	}
	n, err := s.cascade.DeleteLanguage(ctx, userID, name)
	if err != nil {
		return n, fmt.Errorf("delete language: %w", err)
	}
	s.log.Info(ctx, "language deleted", "user_id", userID, "language", keys.NormalizeLanguage(name), "items", n)
	return n, nil
}

// requireItem returns notFound when key is absent.
func (s *Service) requireItem(ctx context.Context, key store.Key, notFound error) error {
	_, err := s.table.Get(ctx, key)
	if err == nil {
		return nil
	}
	if errors.Is(err, common.ErrorNotFound) {
		return notFound
	}
	return fmt.Errorf("get %s/%s: %w", key.PK, key.SK, err)
}
