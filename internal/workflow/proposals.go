package workflow

import (
	"sync"
	"time"

	"github.com/p-blackswan/pm-agent/internal/models"
)

// DefaultProposalTTL bounds how long an unapproved proposal set stays valid.
const DefaultProposalTTL = 24 * time.Hour

type proposalSet struct {
	proposals []models.EpicProposal
	channelID string
	createdAt time.Time
}

// ProposalStore holds pending epic proposals per user. Sets past their TTL
// are treated as absent on read and removed by the cleanup sweeper.
type ProposalStore struct {
	mu   sync.Mutex
	ttl  time.Duration
	sets map[string]proposalSet
	now  func() time.Time
}

// NewProposalStore returns a store with the given TTL; ttl <= 0 selects
// DefaultProposalTTL.
func NewProposalStore(ttl time.Duration) *ProposalStore {
	if ttl <= 0 {
		ttl = DefaultProposalTTL
	}
	return &ProposalStore{
		ttl:  ttl,
		sets: make(map[string]proposalSet),
		now:  time.Now,
	}
}

// Put replaces the user's pending set and restarts its TTL.
func (s *ProposalStore) Put(userID, channelID string, proposals []models.EpicProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[userID] = proposalSet{
		proposals: proposals,
		channelID: channelID,
		createdAt: s.now().UTC(),
	}
}

// Get returns the user's pending proposals, or false when none exist or the
// set has expired. Expired sets are dropped on read.
func (s *ProposalStore) Get(userID string) ([]models.EpicProposal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[userID]
	if !ok {
		return nil, false
	}
	if s.now().Sub(set.createdAt) > s.ttl {
		delete(s.sets, userID)
		return nil, false
	}
	return set.proposals, true
}

// Delete removes the user's pending set.
func (s *ProposalStore) Delete(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, userID)
}

// Len reports how many users have a pending set, expired ones included.
func (s *ProposalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sets)
}

// ExpiredOwner identifies a swept proposal set so its owner can be told.
type ExpiredOwner struct {
	UserID    string
	ChannelID string
}

// SweepExpired removes every set past its TTL and returns their owners.
func (s *ProposalStore) SweepExpired() []ExpiredOwner {
	s.mu.Lock()
	defer s.mu.Unlock()
	var owners []ExpiredOwner
	cutoff := s.now()
	for userID, set := range s.sets {
		if cutoff.Sub(set.createdAt) > s.ttl {
			owners = append(owners, ExpiredOwner{UserID: userID, ChannelID: set.channelID})
			delete(s.sets, userID)
		}
	}
	return owners
}
