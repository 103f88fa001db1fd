// Package persistence provides database adapters implementing outbound ports.
package persistence

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"spam_filter/core/domain"
	"spam_filter/core/port/out"
)

// WordCounterAdapter implements out.WordCounterStore using PostgreSQL.
type WordCounterAdapter struct {
	db *sqlx.DB

	mu   sync.RWMutex
	hook out.InvalidationHook
}

var _ out.WordCounterStore = (*WordCounterAdapter)(nil)

// NewWordCounterAdapter creates a new WordCounterAdapter.
func NewWordCounterAdapter(db *sqlx.DB) *WordCounterAdapter {
	return &WordCounterAdapter{db: db}
}

// wordCounterRow represents the database row for bayes_dictionary.
type wordCounterRow struct {
	Word      string `db:"word"`
	SpamCount int64  `db:"spam_count"`
	HamCount  int64  `db:"ham_count"`
}

func (r *wordCounterRow) toEntity() domain.WordCounter {
	return domain.WordCounter{Word: r.Word, SpamCount: r.SpamCount, HamCount: r.HamCount}
}

// SetInvalidationHook registers the hook fired after every commit.
func (a *WordCounterAdapter) SetInvalidationHook(hook out.InvalidationHook) {
	a.mu.Lock()
	a.hook = hook
	a.mu.Unlock()
}

func (a *WordCounterAdapter) fire(ctx context.Context, inv out.Invalidation) {
	a.mu.RLock()
	hook := a.hook
	a.mu.RUnlock()
	if hook != nil {
		hook(ctx, inv)
	}
}

// Merge adds counters to existing rows and inserts missing words in one
// transaction. Touched rows are locked in word order first so concurrent
// merges serialize instead of deadlocking. With reset the table is emptied
// inside the same transaction. When ctx carries a transaction the merge
// joins it and the invalidation waits for its commit.
func (a *WordCounterAdapter) Merge(ctx context.Context, counters []domain.WordCounter, reset bool) error {
	if len(counters) == 0 && !reset {
		return nil
	}
	for i, c := range counters {
		if c.Word == "" {
			return fmt.Errorf("%w: empty word at %d", ErrInvalidInput, i)
		}
	}
	inv := out.Invalidation{Words: domain.Words(counters), All: reset}

	if utx, scope, ok := joinedTx(ctx); ok {
		scope.mu.Lock()
		err := a.merge(ctx, scope.tx, counters, reset)
		scope.mu.Unlock()
		if err != nil {
			return err
		}
		utx.AfterCommit(func(ctx context.Context) { a.fire(ctx, inv) })
		return nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := a.merge(ctx, tx, counters, reset); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit words: %w", err)
	}

	a.fire(ctx, inv)
	return nil
}

func (a *WordCounterAdapter) merge(ctx context.Context, tx *sqlx.Tx, counters []domain.WordCounter, reset bool) error {
	words := make([]string, len(counters))
	spam := make([]int64, len(counters))
	ham := make([]int64, len(counters))
	for i, c := range counters {
		words[i] = c.Word
		spam[i] = c.SpamCount
		ham[i] = c.HamCount
	}

	if reset {
		if _, err := tx.ExecContext(ctx, `DELETE FROM bayes_dictionary`); err != nil {
			return fmt.Errorf("failed to reset dictionary: %w", err)
		}
	} else {
		lock := `SELECT id FROM bayes_dictionary WHERE word = ANY($1) ORDER BY word FOR UPDATE`
		if _, err := tx.ExecContext(ctx, lock, pq.Array(words)); err != nil {
			return fmt.Errorf("failed to lock words: %w", err)
		}
	}

	if len(counters) == 0 {
		return nil
	}
	query := `
		INSERT INTO bayes_dictionary (word, spam_count, ham_count)
		SELECT * FROM UNNEST($1::varchar[], $2::bigint[], $3::bigint[])
		ON CONFLICT (word) DO UPDATE SET
			spam_count = bayes_dictionary.spam_count + EXCLUDED.spam_count,
			ham_count = bayes_dictionary.ham_count + EXCLUDED.ham_count`
	if _, err := tx.ExecContext(ctx, query, pq.Array(words), pq.Array(spam), pq.Array(ham)); err != nil {
		return fmt.Errorf("failed to upsert words: %w", err)
	}
	return nil
}

// Sums aggregates spam and ham counts over the whole table.
func (a *WordCounterAdapter) Sums(ctx context.Context) (domain.CounterSums, error) {
	var sums domain.CounterSums
	q, release := queryer(ctx, a.db)
	defer release()
	query := `SELECT COALESCE(SUM(spam_count), 0) AS sum_spam, COALESCE(SUM(ham_count), 0) AS sum_ham FROM bayes_dictionary`
	if err := sqlx.GetContext(ctx, q, &sums, query); err != nil {
		return domain.CounterSums{}, fmt.Errorf("failed to sum counters: %w", err)
	}
	return sums, nil
}

// Lookup returns the stored counters of the given words. Unknown words are absent.
func (a *WordCounterAdapter) Lookup(ctx context.Context, words []string) (map[string]domain.WordCounter, error) {
	found := make(map[string]domain.WordCounter, len(words))
	if len(words) == 0 {
		return found, nil
	}
	var rows []wordCounterRow
	q, release := queryer(ctx, a.db)
	defer release()
	query := `SELECT word, spam_count, ham_count FROM bayes_dictionary WHERE word = ANY($1)`
	if err := sqlx.SelectContext(ctx, q, &rows, query, pq.Array(words)); err != nil {
		return nil, fmt.Errorf("failed to look up words: %w", err)
	}
	for _, row := range rows {
		found[row.Word] = row.toEntity()
	}
	return found, nil
}

// DeleteAll empties the table.
func (a *WordCounterAdapter) DeleteAll(ctx context.Context) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM bayes_dictionary`); err != nil {
		return fmt.Errorf("failed to delete words: %w", err)
	}
	a.fire(ctx, out.Invalidation{All: true})
	return nil
}
