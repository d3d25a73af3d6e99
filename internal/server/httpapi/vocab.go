package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/lango/internal/server/vocab"
)

// VocabService manages languages, sets and flashcards.
type VocabService interface {
	AddLanguage(ctx context.Context, userID, name string) (*vocab.Language, error)
	ListLanguages(ctx context.Context, userID string) ([]vocab.Language, error)
	DeleteLanguage(ctx context.Context, userID, name string) (int, error)

	AddSet(ctx context.Context, userID, language string, in vocab.SetInput) (*vocab.Set, error)
	ListSets(ctx context.Context, userID, language string) ([]*vocab.Set, error)
	GetSet(ctx context.Context, userID, language, setID string) (*vocab.Set, error)
	EditSet(ctx context.Context, userID, language, setID string, in vocab.SetInput) (*vocab.Set, error)
	DeleteSet(ctx context.Context, userID, language, setID string) (int, error)

	AddFlashcard(ctx context.Context, userID, language, setID string, in vocab.FlashcardInput) (*vocab.Flashcard, error)
	ListFlashcards(ctx context.Context, userID, language, setID string) ([]*vocab.Flashcard, error)
	GetFlashcard(ctx context.Context, userID, language, setID, flashcardID string) (*vocab.Flashcard, error)
	EditFlashcard(ctx context.Context, userID, language, setID, flashcardID string, in vocab.FlashcardInput) (*vocab.Flashcard, error)
	DeleteFlashcard(ctx context.Context, userID, language, setID, flashcardID string) error
}

type languageRequest struct {
	Language string `json:"language"`
}

type languageAddedResponse struct {
	Message  string `json:"message"`
	Language string `json:"language"`
}

type languagesResponse struct {
	Languages []string `json:"languages"`
}

type deletedResponse struct {
	Message string `json:"message"`
	Deleted int    `json:"deleted"`
}

type setRequest struct {
	Name        string `json:"set_name"`
	Description string `json:"set_description"`
}

type setResponse struct {
	SetID       string `json:"set_id"`
	Name        string `json:"set_name"`
	Description string `json:"set_description"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

type setAddedResponse struct {
	Message string `json:"message"`
	SetID   string `json:"set_id"`
}

type setsResponse struct {
	Sets []setResponse `json:"sets"`
}

type setUpdatedResponse struct {
	Message string      `json:"message"`
	Set     setResponse `json:"set"`
}

type flashcardRequest struct {
	Word            string `json:"word"`
	TranslatedWord  string `json:"translated_word"`
	Usage           string `json:"usage"`
	TranslatedUsage string `json:"translated_usage"`
}

type flashcardResponse struct {
	FlashcardID     string `json:"flashcard_id"`
	Word            string `json:"word"`
	TranslatedWord  string `json:"translated_word"`
	Usage           string `json:"usage"`
	TranslatedUsage string `json:"translated_usage"`
	CreatedAt       int64  `json:"created_at"`
	UpdatedAt       int64  `json:"updated_at"`
}

type flashcardAddedResponse struct {
	Message     string `json:"message"`
	FlashcardID string `json:"flashcard_id"`
}

type flashcardsResponse struct {
	Flashcards []flashcardResponse `json:"flashcards"`
}

type flashcardEnvelope struct {
	Flashcard flashcardResponse `json:"flashcard"`
}

type flashcardUpdatedResponse struct {
	Message   string            `json:"message"`
	Flashcard flashcardResponse `json:"flashcard"`
}

func setOf(s *vocab.Set) setResponse {
	return setResponse{
		SetID:       s.ID,
		Name:        s.Name,
		Description: s.Description,
		CreatedAt:   s.CreatedAt.Unix(),
		UpdatedAt:   s.UpdatedAt.Unix(),
	}
}

func flashcardOf(f *vocab.Flashcard) flashcardResponse {
	return flashcardResponse{
		FlashcardID:     f.ID,
		Word:            f.Word,
		TranslatedWord:  f.TranslatedWord,
		Usage:           f.Usage,
		TranslatedUsage: f.TranslatedUsage,
		CreatedAt:       f.CreatedAt.Unix(),
		UpdatedAt:       f.UpdatedAt.Unix(),
	}
}

// path holds the resource identifiers of a vocabulary route.
type path struct {
	user, language, set, flashcard string
}

func pathOf(req Request) path {
	return path{
		user:      req.Param("user_id"),
		language:  req.Param("language"),
		set:       req.Param("set_id"),
		flashcard: req.Param("flashcard_id"),
	}
}

func (h *handlers) addLanguage(ctx context.Context, req Request) Response {
	var in languageRequest
	if err := decode(req, &in); err != nil {
		return h.fail(ctx, err)
	}
	lang, err := h.vocab.AddLanguage(ctx, req.Param("user_id"), in.Language)
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusCreated, languageAddedResponse{Message: "Language added successfully", Language: lang.Name})
}

func (h *handlers) listLanguages(ctx context.Context, req Request) Response {
	langs, err := h.vocab.ListLanguages(ctx, req.Param("user_id"))
	if err != nil {
		return h.fail(ctx, err)
	}
	names := make([]string, 0, len(langs))
	for _, l := range langs {
		names = append(names, l.Name)
	}
	return reply(http.StatusOK, languagesResponse{Languages: names})
}

func (h *handlers) deleteLanguage(ctx context.Context, req Request) Response {
	p := pathOf(req)
	n, err := h.vocab.DeleteLanguage(ctx, p.user, p.language)
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusOK, deletedResponse{Message: "Language deleted successfully", Deleted: n})
}

func (h *handlers) addSet(ctx context.Context, req Request) Response {
	var in setRequest
	if err := decode(req, &in); err != nil {
		return h.fail(ctx, err)
	}
	p := pathOf(req)
	s, err := h.vocab.AddSet(ctx, p.user, p.language, vocab.SetInput(in))
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusCreated, setAddedResponse{Message: "Set added successfully", SetID: s.ID})
}

func (h *handlers) listSets(ctx context.Context, req Request) Response {
	p := pathOf(req)
	sets, err := h.vocab.ListSets(ctx, p.user, p.language)
	if err != nil {
		return h.fail(ctx, err)
	}
	out := setsResponse{Sets: make([]setResponse, 0, len(sets))}
	for _, s := range sets {
		out.Sets = append(out.Sets, setOf(s))
	}
	return reply(http.StatusOK, out)
}

func (h *handlers) getSet(ctx context.Context, req Request) Response {
	p := pathOf(req)
	s, err := h.vocab.GetSet(ctx, p.user, p.language, p.set)
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusOK, setOf(s))
}

func (h *handlers) editSet(ctx context.Context, req Request) Response {
	var in setRequest
	if err := decode(req, &in); err != nil {
		return h.fail(ctx, err)
	}
	p := pathOf(req)
	s, err := h.vocab.EditSet(ctx, p.user, p.language, p.set, vocab.SetInput(in))
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusOK, setUpdatedResponse{Message: "Set updated successfully", Set: setOf(s)})
}

func (h *handlers) deleteSet(ctx context.Context, req Request) Response {
	p := pathOf(req)
	n, err := h.vocab.DeleteSet(ctx, p.user, p.language, p.set)
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusOK, deletedResponse{Message: "Set deleted successfully", Deleted: n})
}

func (h *handlers) addFlashcard(ctx context.Context, req Request) Response {
	var in flashcardRequest
	if err := decode(req, &in); err != nil {
		return h.fail(ctx, err)
	}
	p := pathOf(req)
	f, err := h.vocab.AddFlashcard(ctx, p.user, p.language, p.set, vocab.FlashcardInput(in))
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusCreated, flashcardAddedResponse{Message: "Flashcard added successfully", FlashcardID: f.ID})
}

func (h *handlers) listFlashcards(ctx context.Context, req Request) Response {
	p := pathOf(req)
	cards, err := h.vocab.ListFlashcards(ctx, p.user, p.language, p.set)
	if err != nil {
		return h.fail(ctx, err)
	}
	out := flashcardsResponse{Flashcards: make([]flashcardResponse, 0, len(cards))}
	for _, f := range cards {
		out.Flashcards = append(out.Flashcards, flashcardOf(f))
	}
	return reply(http.StatusOK, out)
}

func (h *handlers) getFlashcard(ctx context.Context, req Request) Response {
	p := pathOf(req)
	f, err := h.vocab.GetFlashcard(ctx, p.user, p.language, p.set, p.flashcard)
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusOK, flashcardEnvelope{Flashcard: flashcardOf(f)})
}

func (h *handlers) editFlashcard(ctx context.Context, req Request) Response {
	var in flashcardRequest
	if err := decode(req, &in); err != nil {
		return h.fail(ctx, err)
	}
	p := pathOf(req)
	f, err := h.vocab.EditFlashcard(ctx, p.user, p.language, p.set, p.flashcard, vocab.FlashcardInput(in))
	if err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusOK, flashcardUpdatedResponse{Message: "Flashcard updated successfully", Flashcard: flashcardOf(f)})
}

func (h *handlers) deleteFlashcard(ctx context.Context, req Request) Response {
	p := pathOf(req)
	if err := h.vocab.DeleteFlashcard(ctx, p.user, p.language, p.set, p.flashcard); err != nil {
		return h.fail(ctx, err)
	}
	return reply(http.StatusOK, message{Message: "Flashcard deleted successfully"})
}
