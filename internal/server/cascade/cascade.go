// Package cascade removes a scope together with everything addressed under
// it. Children are always deleted before their parent item, so an
// interrupted delete leaves the parent in place and can simply be re-run.
package cascade

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/lango/internal/logging"
	"github.com/dmitrijs2005/lango/internal/server/keys"
	"github.com/dmitrijs2005/lango/internal/server/store"
)

// DefaultBackoff retries unprocessed batch keys up to 5 attempts in total.
func DefaultBackoff() retry.Backoff {
	return retry.WithMaxRetries(4, retry.NewExponential(50*time.Millisecond))
}

type Deleter struct {
	table   store.Table
	log     logging.Logger
	backoff func() retry.Backoff
}

type Option func(*Deleter)

// WithBackoff sets the backoff used when a batch leaves keys unprocessed.
func WithBackoff(b func() retry.Backoff) Option {
	return func(d *Deleter) { d.backoff = b }
}

func New(table store.Table, log logging.Logger, opts ...Option) *Deleter {
	d := &Deleter{table: table, log: log.With("module", "cascade"), backoff: DefaultBackoff}
	for _, o := range opts {
		o(d)
	}
	return d
}

// PurgeUser deletes every language subtree of the user and any other item in
// the user scope except the profile. It returns the number of items removed.
func (d *Deleter) PurgeUser(ctx context.Context, userID string) (int, error) {
	items, err := d.table.Query(ctx, keys.UserScope(userID), "")
	if err != nil {
		return 0, fmt.Errorf("list user scope: %w", err)
	}

	total := 0
	var rest []store.Key
	for _, it := range items {
		if lang, ok := keys.TrimTag(it.SK, keys.LanguagePrefix); ok {
			n, err := d.DeleteLanguage(ctx, userID, lang)
			total += n
			if err != nil {
				return total, err
			}
			continue
		}
		if it.SK != keys.ProfileSK {
			rest = append(rest, it.Key)
		}
	}

	if err := d.deleteKeys(ctx, rest); err != nil {
		return total, err
	}
	total += len(rest)

	d.log.Debug(ctx, "user purged", "user_id", userID, "items", total)
	return total, nil
}

// DeleteLanguage deletes all sets of the language with their flashcards and
// then the language marker in the user scope.
func (d *Deleter) DeleteLanguage(ctx context.Context, userID, language string) (int, error) {
	items, err := d.table.Query(ctx, keys.LanguageScope(userID, language), "")
	if err != nil {
		return 0, fmt.Errorf("list language scope: %w", err)
	}

	total := 0
	var rest []store.Key
	for _, it := range items {
		if setID, ok := keys.TrimTag(it.SK, keys.SetPrefix); ok {
			n, err := d.DeleteSet(ctx, userID, language, setID)
			total += n
			if err != nil {
				return total, err
			}
			continue
		}
		rest = append(rest, it.Key)
	}

	rest = append(rest, keys.Language(userID, language))
	if err := d.deleteKeys(ctx, rest); err != nil {
		return total, err
	}
	return total + len(rest), nil
}

// DeleteSet deletes the flashcards of the set and then the set item.
func (d *Deleter) DeleteSet(ctx context.Context, userID, language, setID string) (int, error) {
	items, err := d.table.Query(ctx, keys.SetScope(userID, language, setID), "")
	if err != nil {
		return 0, fmt.Errorf("list set scope: %w", err)
	}

	children := make([]store.Key, 0, len(items))
	for _, it := range items {
		children = append(children, it.Key)
	}
	if err := d.deleteKeys(ctx, children); err != nil {
		return 0, err
	}

	if err := d.deleteKeys(ctx, []store.Key{keys.Set(userID, language, setID)}); err != nil {
		return len(children), err
	}
	return len(children) + 1, nil
}

// deleteKeys resubmits whatever the backend leaves unprocessed until the
// backoff gives up.
func (d *Deleter) deleteKeys(ctx context.Context, pending []store.Key) error {
	if len(pending) == 0 {
		return nil
	}
	err := retry.Do(ctx, d.backoff(), func(ctx context.Context) error {
		left, err := d.table.DeleteBatch(ctx, pending)
		if err != nil {
			return err
		}
		if len(left) > 0 {
			pending = left
			return retry.RetryableError(fmt.Errorf("%d keys unprocessed", len(left)))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("batch delete: %w", err)
	}
	return nil
}
