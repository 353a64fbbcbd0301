package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-session-service/internal/domain"
)

// ContentLoader fetches quiz content, possibly through a cache.
type ContentLoader interface {
	LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// AttemptStore persists scheduled-quiz attempts in Postgres. Quiz content
// comes through a ContentLoader so a Redis cache can sit in front of it.
type AttemptStore struct {
	pool   *pgxpool.Pool
	loader ContentLoader
	userID string
	clock  func() time.Time
}

func NewAttemptStore(pool *pgxpool.Pool, loader ContentLoader) *AttemptStore {
	return &AttemptStore{pool: pool, loader: loader, clock: time.Now}
}

// ForUser binds the store to the learner who owns new attempts.
func (s *AttemptStore) ForUser(userID string) *AttemptStore {
	bound := *s
	bound.userID = userID
	return &bound
}

func (s *AttemptStore) FetchScheduledAttempt(ctx context.Context, quizID, attemptID string, resume bool) (domain.Attempt, error) {
	quiz, err := s.loader.LoadQuiz(ctx, quizID)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("%w: %v", domain.ErrQuizNotFound, err)
	}

	if resume && attemptID != "" {
		return s.resumeAttempt(ctx, quiz, attemptID)
	}
	return s.startAttempt(ctx, quiz)
}

func (s *AttemptStore) resumeAttempt(ctx context.Context, quiz domain.Quiz, attemptID string) (domain.Attempt, error) {
	var (
		userID    string
		startedAt time.Time
		timeLimit int
		rawStored []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, started_at, time_limit_seconds, answers FROM attempts WHERE id=$1 AND quiz_id=$2`,
		attemptID, quiz.ID,
	).Scan(&userID, &startedAt, &timeLimit, &rawStored)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("%w: %v", domain.ErrAttemptUnavailable, err)
	}

	att := domain.Attempt{
		ID:               attemptID,
		QuizID:           quiz.ID,
		Subject:          quiz.Subject,
		UserID:           userID,
		Questions:        quiz.Questions,
		StartedAt:        startedAt,
		TimeLimitSeconds: timeLimit,
		DurationMinutes:  quiz.DurationMinutes,
	}

	// Stored answers live as a {questionID: rawAnswer} object; entries the
	// session cannot decode are dropped downstream, not here.
	var stored map[string]string
	if len(rawStored) > 0 {
		if err := json.Unmarshal(rawStored, &stored); err == nil {
			for questionID, answer := range stored {
				att.StoredAnswers = append(att.StoredAnswers, domain.StoredAnswer{
					QuestionID: questionID,
					Answer:     answer,
				})
			}
		}
	}
	return att, nil
}

func (s *AttemptStore) startAttempt(ctx context.Context, quiz domain.Quiz) (domain.Attempt, error) {
	att := domain.Attempt{
		ID:               uuid.NewString(),
		QuizID:           quiz.ID,
		Subject:          quiz.Subject,
		UserID:           s.userID,
		Questions:        quiz.Questions,
		StartedAt:        s.clock(),
		TimeLimitSeconds: quiz.TimeLimitSeconds,
		DurationMinutes:  quiz.DurationMinutes,
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO attempts (id, quiz_id, user_id, started_at, time_limit_seconds, answers) VALUES ($1, $2, $3, $4, $5, '{}'::jsonb)`,
		att.ID, att.QuizID, att.UserID, att.StartedAt, att.TimeLimitSeconds,
	)
	if err != nil {
		return domain.Attempt{}, fmt.Errorf("start attempt: %w", err)
	}
	return att, nil
}
