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

func (in FlashcardInput) normalize() (FlashcardInput, error) {
	in.Word = strings.TrimSpace(in.Word)
	in.TranslatedWord = strings.TrimSpace(in.TranslatedWord)
	in.Usage = strings.TrimSpace(in.Usage)
	in.TranslatedUsage = strings.TrimSpace(in.TranslatedUsage)
	if in.Word == "" || in.TranslatedWord == "" {
		return in, common.NewValidationError("Word and translated word are required")
	}
	return in, nil
}

// AddFlashcard creates a flashcard in an existing set.
func (s *Service) AddFlashcard(ctx context.Context, userID, language, setID string, in FlashcardInput) (*Flashcard, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	if _, err := s.GetSet(ctx, userID, language, setID); err != nil {
		return nil, err
	}

	id := s.newID()
	ts := s.timestamp()
	attrs := in.attrs()
	attrs[attrFlashcardID] = id
	attrs[attrCreatedAt] = ts
	attrs[attrUpdatedAt] = ts

	item := store.Item{Key: keys.Flashcard(userID, language, setID, id), Attrs: attrs}
	if err := s.table.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("create flashcard: %w", err)
	}
	return flashcardFromItem(setID, item), nil
}

// ListFlashcards returns the flashcards of a set. An unknown set has none.
func (s *Service) ListFlashcards(ctx context.Context, userID, language, setID string) ([]*Flashcard, error) {
	if !keys.ValidComponent(setID) {
		return nil, errSetNotFound
	}
	q := keys.FlashcardsOf(userID, language, setID)
	items, err := s.table.Query(ctx, q.PK, q.SKPrefix)
	if err != nil {
		return nil, fmt.Errorf("list flashcards: %w", err)
	}
	out := make([]*Flashcard, 0, len(items))
	for _, it := range items {
		out = append(out, flashcardFromItem(setID, it))
	}
	return out, nil
}

func (s *Service) GetFlashcard(ctx context.Context, userID, language, setID, flashcardID string) (*Flashcard, error) {
	key, err := flashcardKey(userID, language, setID, flashcardID)
	if err != nil {
		return nil, err
	}
	it, err := s.table.Get(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errFlashcardNotFound
		}
		return nil, fmt.Errorf("get flashcard: %w", err)
	}
	return flashcardFromItem(setID, it), nil
}

// EditFlashcard replaces the client-editable fields of a flashcard.
func (s *Service) EditFlashcard(ctx context.Context, userID, language, setID, flashcardID string, in FlashcardInput) (*Flashcard, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}
	key, err := flashcardKey(userID, language, setID, flashcardID)
	if err != nil {
		return nil, err
	}

	attrs := in.attrs()
	attrs[attrUpdatedAt] = s.timestamp()
	it, err := s.table.Update(ctx, key, attrs)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, errFlashcardNotFound
		}
		return nil, fmt.Errorf("update flashcard: %w", err)
	}
	return flashcardFromItem(setID, it), nil
}

func (s *Service) DeleteFlashcard(ctx context.Context, userID, language, setID, flashcardID string) error {
	key, err := flashcardKey(userID, language, setID, flashcardID)
	if err != nil {
		return err
	}
	if err := s.table.Delete(ctx, key); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return errFlashcardNotFound
		}
		return fmt.Errorf("delete flashcard: %w", err)
	}
	return nil
}

func flashcardKey(userID, language, setID, flashcardID string) (store.Key, error) {
	if !keys.ValidComponent(setID) || !keys.ValidComponent(flashcardID) {
		return store.Key{}, errFlashcardNotFound
	}
	return keys.Flashcard(userID, language, setID, flashcardID), nil
}
