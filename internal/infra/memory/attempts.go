package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"quiz-session-service/internal/domain"
)

// AttemptStore keeps scheduled quizzes and their attempts in memory.
type AttemptStore struct {
	clock func() time.Time

	mu       sync.Mutex
	quizzes  map[string]domain.Quiz
	attempts map[string]domain.Attempt
}

func NewAttemptStore(quizzes map[string]domain.Quiz) *AttemptStore {
	if quizzes == nil {
		quizzes = make(map[string]domain.Quiz)
	}
	return &AttemptStore{
		clock:    time.Now,
		quizzes:  quizzes,
		attempts: make(map[string]domain.Attempt),
	}
}

// NewAttemptStoreWithClock is test-only for deterministic start timestamps.
func NewAttemptStoreWithClock(quizzes map[string]domain.Quiz, clock func() time.Time) *AttemptStore {
	s := NewAttemptStore(quizzes)
	s.clock = clock
	return s
}

// FetchScheduledAttempt resumes attemptID when resume is set, otherwise
// starts a brand-new attempt on the quiz.
func (s *AttemptStore) FetchScheduledAttempt(_ context.Context, quizID, attemptID string, resume bool) (domain.Attempt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Attempt{}, domain.ErrQuizNotFound
	}

	if resume && attemptID != "" {
		att, ok := s.attempts[attemptID]
		if !ok || att.QuizID != quizID {
			return domain.Attempt{}, domain.ErrAttemptUnavailable
		}
		att.Questions = quiz.Questions
		att.Subject = quiz.Subject
		return att, nil
	}

	att := domain.Attempt{
		ID:               uuid.NewString(),
		QuizID:           quizID,
		Subject:          quiz.Subject,
		Questions:        quiz.Questions,
		StartedAt:        s.clock(),
		TimeLimitSeconds: quiz.TimeLimitSeconds,
		DurationMinutes:  quiz.DurationMinutes,
	}
	s.attempts[att.ID] = att
	return att, nil
}

// SeedAttempt installs a pre-existing attempt, e.g. one started elsewhere.
func (s *AttemptStore) SeedAttempt(att domain.Attempt) {
	s.mu.Lock()
	s.attempts[att.ID] = att
	s.mu.Unlock()
}
