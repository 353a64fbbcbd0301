package memory

import (
	"context"
	"sync"

	"quiz-session-service/internal/domain"
)

// ProfileDirectory is an in-memory registry of learner profiles.
type ProfileDirectory struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

func NewProfileDirectory() *ProfileDirectory {
	return &ProfileDirectory{profiles: make(map[string]domain.Profile)}
}

// Put stores or replaces a learner profile.
func (d *ProfileDirectory) Put(userID string, profile domain.Profile) {
	d.mu.Lock()
	d.profiles[userID] = profile
	d.mu.Unlock()
}

// For returns a ProfileProvider bound to one learner.
func (d *ProfileDirectory) For(userID string) *BoundProfile {
	return &BoundProfile{directory: d, userID: userID}
}

// BoundProfile serves a single learner's profile.
type BoundProfile struct {
	directory *ProfileDirectory
	userID    string
}

func (b *BoundProfile) FetchProfile(_ context.Context) (domain.Profile, error) {
	b.directory.mu.RLock()
	defer b.directory.mu.RUnlock()
	profile, ok := b.directory.profiles[b.userID]
	if !ok {
		return domain.Profile{}, domain.ErrProfileUnavailable
	}
	return profile, nil
}
