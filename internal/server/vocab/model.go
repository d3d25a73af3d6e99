package vocab

import (
	"time"

	"github.com/dmitrijs2005/lango/internal/server/keys"
	"github.com/dmitrijs2005/lango/internal/server/store"
)

const (
	attrLanguage        = "language"
	attrSetID           = "set_id"
	attrSetName         = "set_name"
	attrSetDescription  = "set_description"
	attrFlashcardID     = "flashcard_id"
	attrWord            = "word"
	attrTranslatedWord  = "translated_word"
	attrUsage           = "usage"
	attrTranslatedUsage = "translated_usage"
	attrCreatedAt       = "created_at"
	attrUpdatedAt       = "updated_at"
)

type Language struct {
	Name      string
	CreatedAt time.Time
}

type Set struct {
	ID          string
	Language    string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SetInput is the client-editable part of a set.
type SetInput struct {
	Name        string
	Description string
}

type Flashcard struct {
	ID              string
	SetID           string
	Word            string
	TranslatedWord  string
	Usage           string
	TranslatedUsage string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FlashcardInput is the client-editable part of a flashcard.
type FlashcardInput struct {
	Word            string
	TranslatedWord  string
	Usage           string
	TranslatedUsage string
}

func unix(it store.Item, attr string) time.Time {
	return time.Unix(it.Int(attr), 0).UTC()
}

func languageFromItem(it store.Item) Language {
	name := it.String(attrLanguage)
	if name == "" {
		name, _ = keys.TrimTag(it.SK, keys.LanguagePrefix)
	}
	return Language{Name: name, CreatedAt: unix(it, attrCreatedAt)}
}

func setFromItem(language string, it store.Item) *Set {
	id := it.String(attrSetID)
	if id == "" {
		id, _ = keys.TrimTag(it.SK, keys.SetPrefix)
	}
	return &Set{
		ID:          id,
		Language:    language,
		Name:        it.String(attrSetName),
		Description: it.String(attrSetDescription),
		CreatedAt:   unix(it, attrCreatedAt),
		UpdatedAt:   unix(it, attrUpdatedAt),
	}
}

func (in SetInput) attrs() map[string]any {
	return map[string]any{
		attrSetName:        in.Name,
		attrSetDescription: in.Description,
	}
}

func flashcardFromItem(setID string, it store.Item) *Flashcard {
	id := it.String(attrFlashcardID)
	if id == "" {
		id, _ = keys.TrimTag(it.SK, keys.FlashcardPrefix)
	}
	return &Flashcard{
		ID:              id,
		SetID:           setID,
		Word:            it.String(attrWord),
		TranslatedWord:  it.String(attrTranslatedWord),
		Usage:           it.String(attrUsage),
		TranslatedUsage: it.String(attrTranslatedUsage),
		CreatedAt:       unix(it, attrCreatedAt),
		UpdatedAt:       unix(it, attrUpdatedAt),
	}
}

func (in FlashcardInput) attrs() map[string]any {
	return map[string]any{
		attrWord:            in.Word,
		attrTranslatedWord:  in.TranslatedWord,
		attrUsage:           in.Usage,
		attrTranslatedUsage: in.TranslatedUsage,
	}
}
