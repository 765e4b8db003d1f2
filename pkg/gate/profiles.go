package gate

import (
	"sync"

	"github.com/mapleaiorg/kernel/pkg/contracts"
	"github.com/mapleaiorg/kernel/pkg/profile"
)

// ProfileStore resolves a worldline's authority profile. The Gate consults
// it once per Submit call, before running the profile enforcer.
type ProfileStore interface {
	ProfileFor(worldline contracts.WorldlineID) contracts.Profile
}

// StaticProfileStore is a fixed worldline-to-profile map with a default
// fallback for worldlines it has never seen. It is the store used by
// cmd/kernel and by tests; a deployment that classifies worldlines
// dynamically implements ProfileStore itself.
type StaticProfileStore struct {
	mu       sync.RWMutex
	profiles map[contracts.WorldlineID]contracts.Profile
	fallback contracts.Profile
}

// NewStaticProfileStore builds a store whose default profile is the Agent
// canonical profile, the most conservative non-human default (spec §4.4).
func NewStaticProfileStore() *StaticProfileStore {
	return &StaticProfileStore{
		profiles: make(map[contracts.WorldlineID]contracts.Profile),
		fallback: profile.Agent(),
	}
}

// WithFallback overrides the profile returned for worldlines with no
// explicit assignment.
func (s *StaticProfileStore) WithFallback(p contracts.Profile) *StaticProfileStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = p
	return s
}

// Assign binds a worldline to a profile.
func (s *StaticProfileStore) Assign(worldline contracts.WorldlineID, p contracts.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profiles[worldline] = p
}

// ProfileFor implements ProfileStore.
func (s *StaticProfileStore) ProfileFor(worldline contracts.WorldlineID) contracts.Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if p, ok := s.profiles[worldline]; ok {
		return p
	}
	return s.fallback
}
