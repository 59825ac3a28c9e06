package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Kirtibisht11/crisisnet-sub000/internal/models"
)

// MemoryStore is the in-memory implementation of Store, used by tests
// and when no database URL is configured. A single RWMutex guards the
// maps; per-submitter write serialization is handled one level up by
// the engine's keyed locks, so read-modify-write sequences never lose
// updates even though individual operations only hold the map lock.
type MemoryStore struct {
	mu sync.RWMutex

	alerts   map[uuid.UUID]*models.Alert
	reps     map[string]*models.SubmitterReputation
	events   map[string][]*models.ReputationEvent
	sources  map[string]*models.SourceReputation
	activity map[string][]time.Time
	blocks   map[string][]*models.BlockRecord
	verLogs  []*models.VerificationLogEntry
	audits   map[uuid.UUID][]*models.DecisionAuditEntry

	nextID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		alerts:   make(map[uuid.UUID]*models.Alert),
		reps:     make(map[string]*models.SubmitterReputation),
		events:   make(map[string][]*models.ReputationEvent),
		sources:  make(map[string]*models.SourceReputation),
		activity: make(map[string][]time.Time),
		blocks:   make(map[string][]*models.BlockRecord),
		audits:   make(map[uuid.UUID][]*models.DecisionAuditEntry),
	}
}

func (s *MemoryStore) nextSeq() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) SaveAlert(_ context.Context, alert *models.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *alert
	s.alerts[alert.ID] = &copied
	return nil
}

func (s *MemoryStore) GetAlertByID(_ context.Context, id uuid.UUID) (*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	alert, ok := s.alerts[id]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *alert
	return &copied, nil
}

func (s *MemoryStore) UpdateAlertDecision(_ context.Context, id uuid.UUID, trustScore float64, verified bool, decision string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	alert, ok := s.alerts[id]
	if !ok {
		return ErrNotFound
	}
	alert.TrustScore = &trustScore
	alert.Verified = verified
	alert.Decision = decision
	return nil
}

func (s *MemoryStore) FindMatching(_ context.Context, crisisType string, since time.Time, excludeSubmitter string) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []*models.Alert
	for _, alert := range s.alerts {
		if alert.CrisisType != crisisType || alert.SubmitterID == excludeSubmitter {
			continue
		}
		if alert.CreatedAt.Before(since) {
			continue
		}
		copied := *alert
		matches = append(matches, &copied)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (s *MemoryStore) FindNearby(_ context.Context, location string, since time.Time, excludeSubmitter string) ([]*models.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []*models.Alert
	for _, alert := range s.alerts {
		if alert.Location != location || alert.SubmitterID == excludeSubmitter {
			continue
		}
		if alert.CreatedAt.Before(since) {
			continue
		}
		copied := *alert
		matches = append(matches, &copied)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.After(matches[j].CreatedAt)
	})
	return matches, nil
}

func (s *MemoryStore) GetSubmitter(_ context.Context, submitterID string) (*models.SubmitterReputation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rep, ok := s.reps[submitterID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *rep
	return &copied, nil
}

func (s *MemoryStore) CreateSubmitter(_ context.Context, rep *models.SubmitterReputation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reps[rep.SubmitterID]; ok {
		return nil // ON CONFLICT DO NOTHING semantics
	}
	copied := *rep
	s.reps[rep.SubmitterID] = &copied
	return nil
}

func (s *MemoryStore) UpdateSubmitter(_ context.Context, rep *models.SubmitterReputation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reps[rep.SubmitterID]; !ok {
		return ErrNotFound
	}
	copied := *rep
	s.reps[rep.SubmitterID] = &copied
	return nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, event *models.ReputationEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	event.ID = s.nextSeq()
	copied := *event
	s.events[event.SubmitterID] = append(s.events[event.SubmitterID], &copied)
	return nil
}

func (s *MemoryStore) RecentEvents(_ context.Context, submitterID string, limit int) ([]*models.ReputationEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := s.events[submitterID]
	out := make([]*models.ReputationEvent, 0, limit)
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		copied := *all[i]
		out = append(out, &copied)
	}
	return out, nil
}

func (s *MemoryStore) GetSource(_ context.Context, sourceID string) (*models.SourceReputation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[sourceID]
	if !ok {
		return nil, ErrNotFound
	}
	copied := *src
	return &copied, nil
}

func (s *MemoryStore) UpsertSource(_ context.Context, src *models.SourceReputation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *src
	s.sources[src.SourceID] = &copied
	return nil
}

func (s *MemoryStore) RecordActivity(_ context.Context, submitterID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activity[submitterID] = append(s.activity[submitterID], at)
	return nil
}

func (s *MemoryStore) CountActivity(_ context.Context, submitterID string, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, t := range s.activity[submitterID] {
		if !t.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) RecentActivity(_ context.Context, submitterID string, limit int) ([]time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := append([]time.Time(nil), s.activity[submitterID]...)
	sort.Slice(all, func(i, j int) bool { return all[i].After(all[j]) })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *MemoryStore) ActiveBlock(_ context.Context, submitterID string, now time.Time) (*models.BlockRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, block := range s.blocks[submitterID] {
		if block.Active(now) {
			copied := *block
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) CreateBlock(_ context.Context, block *models.BlockRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	block.ID = s.nextSeq()
	copied := *block
	s.blocks[block.SubmitterID] = append(s.blocks[block.SubmitterID], &copied)
	return nil
}

func (s *MemoryStore) DeleteExpiredBlocks(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, blocks := range s.blocks {
		kept := blocks[:0]
		for _, block := range blocks {
			if block.Active(now) {
				kept = append(kept, block)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(s.blocks, id)
		} else {
			s.blocks[id] = kept
		}
	}
	return removed, nil
}

func (s *MemoryStore) SaveVerificationLog(_ context.Context, entry *models.VerificationLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextSeq()
	copied := *entry
	s.verLogs = append(s.verLogs, &copied)
	return nil
}

func (s *MemoryStore) SaveDecisionAudit(_ context.Context, entry *models.DecisionAuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = s.nextSeq()
	copied := *entry
	s.audits[entry.AlertID] = append(s.audits[entry.AlertID], &copied)
	return nil
}

func (s *MemoryStore) GetDecisionAudit(_ context.Context, alertID uuid.UUID) (*models.DecisionAuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.audits[alertID]
	if len(entries) == 0 {
		return nil, ErrNotFound
	}
	copied := *entries[len(entries)-1]
	return &copied, nil
}
