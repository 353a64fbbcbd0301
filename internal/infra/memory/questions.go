package memory

import (
	"context"
	"fmt"

	"quiz-session-service/internal/domain"
)

// StaticQuestionSource serves fresh question sets from per-subject banks
// (useful for tests/demos). Swap in a remote generator in production.
type StaticQuestionSource struct {
	banks map[string][]domain.Question
}

func NewStaticQuestionSource(banks map[string][]domain.Question) *StaticQuestionSource {
	return &StaticQuestionSource{banks: banks}
}

func (s *StaticQuestionSource) GenerateQuestions(_ context.Context, cfg domain.SessionConfig) ([]domain.Question, error) {
	bank, ok := s.banks[cfg.Subject]
	if !ok {
		return nil, fmt.Errorf("%w: no bank for subject %q", domain.ErrGenerationFailed, cfg.Subject)
	}
	count := cfg.QuestionCount
	if count <= 0 || count > len(bank) {
		count = len(bank)
	}
	out := make([]domain.Question, count)
	copy(out, bank[:count])
	return out, nil
}
