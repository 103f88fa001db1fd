package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"spam_filter/core/domain"
	"spam_filter/core/port/out"
)

// LearningMessageAdapter implements out.LearningMessageRepository using PostgreSQL.
type LearningMessageAdapter struct {
	db *sqlx.DB
}

var _ out.LearningMessageRepository = (*LearningMessageAdapter)(nil)

// NewLearningMessageAdapter creates a new LearningMessageAdapter.
func NewLearningMessageAdapter(db *sqlx.DB) *LearningMessageAdapter {
	return &LearningMessageAdapter{db: db}
}

// learningMessageRow represents the database row for learning_message.
type learningMessageRow struct {
	ID        int64        `db:"id"`
	Message   string       `db:"message"`
	Spam      bool         `db:"spam"`
	Processed sql.NullTime `db:"processed"`
}

func (r *learningMessageRow) toEntity() domain.LearningMessage {
	msg := domain.LearningMessage{ID: r.ID, Message: r.Message, Spam: r.Spam}
	if r.Processed.Valid {
		processed := r.Processed.Time
		msg.Processed = &processed
	}
	return msg
}

// Create inserts one message and sets its ID.
func (a *LearningMessageAdapter) Create(ctx context.Context, msg *domain.LearningMessage) error {
	query := `INSERT INTO learning_message (message, spam) VALUES ($1, $2) RETURNING id`
	if err := a.db.QueryRowxContext(ctx, query, msg.Message, msg.Spam).Scan(&msg.ID); err != nil {
		return fmt.Errorf("failed to create learning message: %w", err)
	}
	return nil
}

// BulkCreate inserts all messages with one statement.
func (a *LearningMessageAdapter) BulkCreate(ctx context.Context, msgs []domain.LearningMessage) error {
	if len(msgs) == 0 {
		return nil
	}
	texts := make([]string, len(msgs))
	labels := make([]bool, len(msgs))
	for i, m := range msgs {
		texts[i] = m.Message
		labels[i] = m.Spam
	}
	query := `INSERT INTO learning_message (message, spam) SELECT * FROM UNNEST($1::text[], $2::boolean[])`
	if _, err := a.db.ExecContext(ctx, query, pq.Array(texts), pq.Array(labels)); err != nil {
		return fmt.Errorf("failed to create learning messages: %w", err)
	}
	return nil
}

// ListByLabel returns messages of one label in insertion order.
func (a *LearningMessageAdapter) ListByLabel(ctx context.Context, spam bool, limit int) ([]domain.LearningMessage, error) {
	var rows []learningMessageRow
	query := `SELECT id, message, spam, processed FROM learning_message WHERE spam = $1 ORDER BY id`
	args := []any{spam}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list learning messages: %w", err)
	}
	msgs := make([]domain.LearningMessage, len(rows))
	for i, row := range rows {
		msgs[i] = row.toEntity()
	}
	return msgs, nil
}

// ProcessUnprocessed locks every unprocessed row, runs fn and stamps the
// rows processed in the same transaction. fn receives the transaction in its
// context so the word counter merges of the pass commit or roll back with the
// stamps. A failing fn rolls back.
func (a *LearningMessageAdapter) ProcessUnprocessed(ctx context.Context,
	fn func(ctx context.Context, msgs []domain.LearningMessage) error) (int, error) {
	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var rows []learningMessageRow
	query := `SELECT id, message, spam, processed FROM learning_message WHERE processed IS NULL ORDER BY id FOR UPDATE`
	if err := tx.SelectContext(ctx, &rows, query); err != nil {
		return 0, fmt.Errorf("failed to lock learning messages: %w", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	msgs := make([]domain.LearningMessage, len(rows))
	ids := make([]int64, len(rows))
	for i, row := range rows {
		msgs[i] = row.toEntity()
		ids[i] = row.ID
	}
	utx := newTxScope(tx)
	if err := fn(out.WithTx(ctx, utx), msgs); err != nil {
		utx.RolledBack()
		return 0, err
	}

	update := `UPDATE learning_message SET processed = $1 WHERE id = ANY($2)`
	if _, err := tx.ExecContext(ctx, update, time.Now().UTC(), pq.Array(ids)); err != nil {
		utx.RolledBack()
		return 0, fmt.Errorf("failed to mark learning messages processed: %w", err)
	}
	if err := tx.Commit(); err != nil {
		utx.RolledBack()
		return 0, fmt.Errorf("failed to commit learning messages: %w", err)
	}
	utx.Committed(ctx)
	return len(msgs), nil
}
