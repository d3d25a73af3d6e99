// Package password enforces the credential policy and produces/verifies
// salted bcrypt hashes.
//
// The policy is a single rule set behind Validate; callers never inspect
// individual rules. Hashes embed their own salt and cost, so verification
// needs only the stored hash string.
package password

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/lango/internal/common"
	"golang.org/x/crypto/bcrypt"
)

const (
	// MinLength is the minimum number of characters in a password.
	MinLength = 8

	// Symbols is the punctuation set that satisfies the symbol rule.
	Symbols = `!@#$%^&*(),.?":{}|<>`

	// bcrypt silently ignores input past this many bytes.
	maxBytes = 72
)

// DefaultCost is the bcrypt work factor used by Hash.
var DefaultCost = bcrypt.DefaultCost

// PolicyError lists the rules a rejected password did not meet.
// It matches common.ErrWeakPassword under errors.Is.
type PolicyError struct {
	Unmet []string
}

func (e *PolicyError) Error() string {
	return "password must " + strings.Join(e.Unmet, ", ")
}

func (e *PolicyError) Unwrap() error { return common.ErrWeakPassword }

// Validate checks plaintext against the current policy: at least MinLength
// characters, one uppercase letter, one digit and one character from Symbols.
func Validate(plaintext string) error {
	var unmet []string

	if utf8.RuneCountInString(plaintext) < MinLength {
		unmet = append(unmet, fmt.Sprintf("be at least %d characters long", MinLength))
	}
	if len(plaintext) > maxBytes {
		unmet = append(unmet, fmt.Sprintf("be at most %d bytes long", maxBytes))
	}

	var upper, digit, symbol bool
	for _, r := range plaintext {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case strings.ContainsRune(Symbols, r):
			symbol = true
		}
	}
	if !upper {
		unmet = append(unmet, "contain an uppercase letter")
	}
	if !digit {
		unmet = append(unmet, "contain a digit")
	}
	if !symbol {
		unmet = append(unmet, "contain one of "+Symbols)
	}

	if len(unmet) > 0 {
		return &PolicyError{Unmet: unmet}
	}
	return nil
}

// Hash validates plaintext and returns its bcrypt hash with a fresh random
// salt. A policy violation returns a *PolicyError and no hash.
func Hash(plaintext string) (string, error) {
	if err := Validate(plaintext); err != nil {
		return "", err
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plaintext), DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(b), nil
}

// Matches reports whether plaintext corresponds to storedHash. Malformed or
// empty hashes never match.
func Matches(plaintext, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	// CompareHashAndPassword compares digests in constant time and reports
	// malformed hashes as errors, which count as a mismatch here.
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}
