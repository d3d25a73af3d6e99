package vocab

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/dmitrijs2005/lango/internal/server/keys"
	"github.com/dmitrijs2005/lango/internal/server/store"
)

func (in SetInput) normalize() (SetInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	if in.Name == "" {
		return in, common.NewValidationError("Set name is required")
	}
	return in, nil
}

// AddSet creates a set in an existing language.
func (s *Service) AddSet(ctx context.Context, userID, language string, in SetInput) (*Set, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if err := s.requireItem(ctx, keys.Language(userID, language), errLanguageNotFound); err != nil {
		return nil, err
	}

	id := s.newID()
	ts := s.timestamp()
	attrs := in.attrs()
	attrs[attrSetID] = id
	attrs[attrCreatedAt] = ts
	attrs[attrUpdatedAt] = ts

	item := store.Item{Key: keys.Set(userID, language, id), Attrs: attrs}
	if err := s.table.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create set: %w", err)
	}
	return setFromItem(keys.NormalizeLanguage(language), item), nil
}

// ListSets returns the sets of a language. An unknown language has no sets.
func (s *Service) ListSets(ctx context.Context, userID, language string) ([]*Set, error) {
	q := keys.SetsOf(userID, language)
	items, err := s.table.Query(ctx, q.PK, q.SKPrefix)
	if err != nil {
		return nil, fmt.Errorf("list sets: %w", err)
	}
	lang := keys.NormalizeLanguage(language)
	out := make([]*Set, 0, len(items))
	for _, it := range items {
		out = append(out, setFromItem(lang, it))
	}
	return out, nil
}

func (s *Service) GetSet(ctx context.Context, userID, language, setID string) (*Set, error) {
	if !keys.ValidComponent(setID) {
		return nil, errSetNotFound
	}
	it, err := s.table.Get(ctx, keys.Set(userID, language, setID))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errSetNotFound
		}
		return nil, fmt.Errorf("get set: %w", err)
	}
	return setFromItem(keys.NormalizeLanguage(language), it), nil
}

// EditSet replaces the name and description of a set.
func (s *Service) EditSet(ctx context.Context, userID, language, setID string, in SetInput) (*Set, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if !keys.ValidComponent(setID) {
		return nil, errSetNotFound
	}

	attrs := in.attrs()
	attrs[attrUpdatedAt] = s.timestamp()
	it, err := s.table.Update(ctx, keys.Set(userID, language, setID), attrs)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errSetNotFound
		}
		return nil, fmt.Errorf("update set: %w", err)
	}
	return setFromItem(keys.NormalizeLanguage(language), it), nil
}

// DeleteSet removes the set and its flashcards.
func (s *Service) DeleteSet(ctx context.Context, userID, language, setID string) (int, error) {
	if _, err := s.GetSet(ctx, userID, language, setID); err != nil {
		return 0, err
	}
	n, err := s.cascade.DeleteSet(ctx, userID, language, setID)
	if err != nil {
		return n, fmt.Errorf("delete set: %w", err)
	}
	s.log.Info(ctx, "set deleted", "user_id", userID, "set_id", setID, "items", n)
	return n, nil
}
