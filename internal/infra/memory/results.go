package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

// ResultStore keeps completed session results in memory, newest first.
type ResultStore struct {
	mu     sync.RWMutex
	byUser map[string][]domain.ResultRecord
}

func NewResultStore() *ResultStore {
	return &ResultStore{byUser: make(map[string][]domain.ResultRecord)}
}

func (s *ResultStore) PersistResult(_ context.Context, record domain.ResultRecord) error {
	s.mu.Lock()
	s.byUser[record.UserID] = append([]domain.ResultRecord{record}, s.byUser[record.UserID]...)
	s.mu.Unlock()
	return nil
}

// ResultsFor lists a learner's persisted results.
func (s *ResultStore) ResultsFor(_ context.Context, userID string) ([]domain.ResultRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.byUser[userID]
	out := make([]domain.ResultRecord, len(records))
	copy(out, records)
	return out, nil
}
