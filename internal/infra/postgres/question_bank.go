// Package postgres persists the question bank (spec.md's supplemented
// SavedQuestion feature) the same way the teacher's quiz_loader.go persists
// quiz content: a JSONB column read and written through a pgxpool.Pool.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"golang.org/x/sync/singleflight"

	"quizroom/internal/domain"
)

// QuestionBank stores an owner's reusable questions.
type QuestionBank struct {
	pool *pgxpool.Pool
	sf   singleflight.Group
}

// NewQuestionBank builds a QuestionBank around pool.
func NewQuestionBank(pool *pgxpool.Pool) *QuestionBank {
	return &QuestionBank{pool: pool}
}

// Save inserts or updates a saved question, keyed by its id.
func (b *QuestionBank) Save(ctx context.Context, q domain.SavedQuestion) error {
	body, err := json.Marshal(q.Body)
	if err != nil {
		return fmt.Errorf("marshal saved question body: %w", err)
	}
	_, err = b.pool.Exec(ctx, `
		INSERT INTO saved_questions (id, owner_name, text, time_limit, body)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			owner_name = EXCLUDED.owner_name,
			text = EXCLUDED.text,
			time_limit = EXCLUDED.time_limit,
			body = EXCLUDED.body
	`, q.ID, q.OwnerName, q.Text, q.TimeLimit, body)
	if err != nil {
		return fmt.Errorf("save question: %w", err)
	}
	return nil
}

// ListByOwner returns every question saved by ownerName, ordered by id in
// descending order; no save time is stored, so the order does not reflect
// when a question was saved. Concurrent calls for the same owner (a presenter's client
// refreshing while a teammate's tab does the same) are collapsed into one
// query via singleflight, the way the teacher's Redis-backed QuizRepository
// collapses concurrent cache-miss loads.
func (b *QuestionBank) ListByOwner(ctx context.Context, ownerName string) ([]domain.SavedQuestion, error) {
	result, err, _ := b.sf.Do(ownerName, func() (interface{}, error) {
		rows, err := b.pool.Query(ctx, `
			SELECT id, owner_name, text, time_limit, body
			FROM saved_questions
			WHERE owner_name = $1
			ORDER BY id DESC
		`, ownerName)
		if err != nil {
			return nil, fmt.Errorf("list saved questions: %w", err)
		}
		defer rows.Close()

		var out []domain.SavedQuestion
		for rows.Next() {
			var q domain.SavedQuestion
			var body []byte
			if err := rows.Scan(&q.ID, &q.OwnerName, &q.Text, &q.TimeLimit, &body); err != nil {
				return nil, fmt.Errorf("scan saved question: %w", err)
			}
			if err := json.Unmarshal(body, &q.Body); err != nil {
				return nil, fmt.Errorf("unmarshal saved question body: %w", err)
			}
			out = append(out, q)
		}
		return out, rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.SavedQuestion), nil
}

// Delete removes a saved question by id, scoped to its owner so one
// presenter cannot delete another's saved questions.
func (b *QuestionBank) Delete(ctx context.Context, ownerName, id string) error {
	_, err := b.pool.Exec(ctx, `DELETE FROM saved_questions WHERE id = $1 AND owner_name = $2`, id, ownerName)
	if err != nil {
		return fmt.Errorf("delete saved question: %w", err)
	}
	return nil
}
