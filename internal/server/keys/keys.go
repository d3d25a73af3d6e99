// Package keys maps logical entity identities onto the partition/sort key
// pairs of the single-table store.
//
// Layout:
//
//	entity          PK                                        SK
//	profile         USER#<id>                                 PROFILE
//	username claim  USERNAME#<username>                       USERNAME
//	language        USER#<id>                                 LANGUAGE#<language>
//	set             USER#<id>#LANGUAGE#<language>             SET#<set_id>
//	flashcard       USER#<id>#LANGUAGE#<language>#SET#<set>   FLASHCARD#<flashcard_id>
//
// Every child scope is its parent's PK extended with the parent's SK, so the
// items of any scope are listed with an exact-partition query plus a
// sort-key prefix. All functions are pure.
package keys

import (
	"strings"
)

const (
	Separator = "#"

	UserTag      = "USER"
	UsernameTag  = "USERNAME"
	LanguageTag  = "LANGUAGE"
	SetTag       = "SET"
	FlashcardTag = "FLASHCARD"

	// ProfileSK is the sort key of the principal's profile item.
	ProfileSK = "PROFILE"

	// UsernameClaimSK is the sort key of the item reserving a username.
	UsernameClaimSK = "USERNAME"

	LanguagePrefix  = LanguageTag + Separator
	SetPrefix       = SetTag + Separator
	FlashcardPrefix = FlashcardTag + Separator
)

// Key addresses one item.
type Key struct {
	PK string
	SK string
}

// NormalizeUsername trims and lower-cases a username.
func NormalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// NormalizeLanguage trims and lower-cases a language name.
func NormalizeLanguage(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func join(parts ...string) string {
	return strings.Join(parts, Separator)
}

// UserScope is the partition owned by a principal.
func UserScope(userID string) string {
	return join(UserTag, userID)
}

// LanguageScope is the partition holding the sets of one language.
func LanguageScope(userID, language string) string {
	return join(UserScope(userID), LanguageTag, NormalizeLanguage(language))
}

// SetScope is the partition holding the flashcards of one set.
func SetScope(userID, language, setID string) string {
	return join(LanguageScope(userID, language), SetTag, setID)
}

// Profile addresses a principal's profile item.
func Profile(userID string) Key {
	return Key{PK: UserScope(userID), SK: ProfileSK}
}

// UsernameClaim addresses the item that reserves a normalized username.
func UsernameClaim(username string) Key {
	return Key{PK: join(UsernameTag, NormalizeUsername(username)), SK: UsernameClaimSK}
}

// Language addresses the language marker, which lives in the user scope.
func Language(userID, language string) Key {
	return Key{PK: UserScope(userID), SK: LanguagePrefix + NormalizeLanguage(language)}
}

// Set addresses a set item in its language scope.
func Set(userID, language, setID string) Key {
	return Key{PK: LanguageScope(userID, language), SK: SetPrefix + setID}
}

// Flashcard addresses a flashcard item in its set scope.
func Flashcard(userID, language, setID, flashcardID string) Key {
	return Key{PK: SetScope(userID, language, setID), SK: FlashcardPrefix + flashcardID}
}

// Query lists items of one partition whose sort key starts with SKPrefix.
type Query struct {
	PK       string
	SKPrefix string
}

// LanguagesOf lists a user's language markers.
func LanguagesOf(userID string) Query {
	return Query{PK: UserScope(userID), SKPrefix: LanguagePrefix}
}

// SetsOf lists the sets of a language.
func SetsOf(userID, language string) Query {
	return Query{PK: LanguageScope(userID, language), SKPrefix: SetPrefix}
}

// FlashcardsOf lists the flashcards of a set.
func FlashcardsOf(userID, language, setID string) Query {
	return Query{PK: SetScope(userID, language, setID), SKPrefix: FlashcardPrefix}
}

// TrimTag returns the identifier part of a type-tagged sort key, e.g.
// "SET#abc" with prefix SetPrefix yields "abc". ok is false when sk does not
// carry the prefix.
func TrimTag(sk, prefix string) (id string, ok bool) {
	if !strings.HasPrefix(sk, prefix) {
		return "", false
	}
	return sk[len(prefix):], true
}

// ValidComponent reports whether s can be embedded in a key: non-empty and
// free of the separator.
func ValidComponent(s string) bool {
	return s != "" && !strings.Contains(s, Separator)
}
