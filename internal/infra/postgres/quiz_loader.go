package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
	"quiz-session-engine/internal/domain"
)

// QuizLoader loads quiz feed JSONB from Postgres.
type QuizLoader struct {
	pool *pgxpool.Pool
}

func NewQuizLoader(pool *pgxpool.Pool) *QuizLoader {
	return &QuizLoader{pool: pool}
}

func (l *QuizLoader) LoadQuiz(ctx context.Context, quizID string) (domain.QuizFeed, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizFeed{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizFeed{}, fmt.Errorf("load quiz: %w", err)
	}
	var feed domain.QuizFeed
	if err := json.Unmarshal(raw, &feed); err != nil {
		return domain.QuizFeed{}, fmt.Errorf("unmarshal quiz: %w: %v", domain.ErrMalformedData, err)
	}
	feed.ID = quizID
	return feed, nil
}
