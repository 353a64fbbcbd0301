package memory

import (
	"context"
	"sync"
)

// QuotaStore tracks how many fresh quizzes each learner has left. Learners
// without an explicit grant get the default allowance.
type QuotaStore struct {
	defaultRemaining int

	mu        sync.Mutex
	remaining map[string]int
}

func NewQuotaStore(defaultRemaining int) *QuotaStore {
	return &QuotaStore{
		defaultRemaining: defaultRemaining,
		remaining:        make(map[string]int),
	}
}

func (s *QuotaStore) CheckQuizQuota(_ context.Context, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.remaining[userID]; ok {
		return n, nil
	}
	return s.defaultRemaining, nil
}

// Grant sets a learner's remaining allowance.
func (s *QuotaStore) Grant(userID string, remaining int) {
	s.mu.Lock()
	s.remaining[userID] = remaining
	s.mu.Unlock()
}

// Consume burns one quiz from the allowance, flooring at zero.
func (s *QuotaStore) Consume(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.remaining[userID]
	if !ok {
		n = s.defaultRemaining
	}
	if n > 0 {
		n--
	}
	s.remaining[userID] = n
	return nil
}
