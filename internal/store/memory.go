// Package store provides the in-memory assessment store used when no
// database is configured and in tests.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/health-risk-server/internal/domain"
)

// MemoryStore keeps assessments in process memory. It is owned by whoever
// constructs it and is passed explicitly to the services that use it.
type MemoryStore struct {
	mu          sync.RWMutex
	assessments []domain.Assessment
	byID        map[string]int
	logger      *logrus.Logger
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(logger *logrus.Logger) *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]int),
		logger: logger,
	}
}

// Add stores a copy of a. Region presence is checked again here so that the
// store never holds a record the write contract would reject.
func (s *MemoryStore) Add(ctx context.Context, a *domain.Assessment) error {
	if a.ID == "" {
		return domain.NewValidationError("id", "assessment id is required", a.ID)
	}
	if a.Region == "" {
		return domain.NewValidationError("region", "Location data is missing", a.Region)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[a.ID]; exists {
		return fmt.Errorf("assessment %s already exists", a.ID)
	}
	s.byID[a.ID] = len(s.assessments)
	stored := *a
	stored.Answers = a.Answers.Clone()
	s.assessments = append(s.assessments, stored)

	s.logger.WithFields(logrus.Fields{
		"assessment_id": a.ID,
		"count":         len(s.assessments),
	}).Debug("Assessment added to memory store")
	return nil
}

// Get returns a copy of the assessment with the given id.
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("assessment not found: %w", domain.ErrNotFound)
	}
	a := s.assessments[i]
	a.Answers = a.Answers.Clone()
	return &a, nil
}

// ListByUser returns the user's assessments, newest first.
func (s *MemoryStore) ListByUser(ctx context.Context, userID string) ([]domain.Assessment, error) {
	s.mu.RLock()
	out := make([]domain.Assessment, 0)
	for _, a := range s.assessments {
		if a.UserID == userID {
			a.Answers = a.Answers.Clone()
			out = append(out, a)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

// Snapshot returns a copy of every stored assessment in insertion order.
func (s *MemoryStore) Snapshot(ctx context.Context) ([]domain.Assessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Assessment, len(s.assessments))
	for i, a := range s.assessments {
		a.Answers = a.Answers.Clone()
		out[i] = a
	}
	return out, nil
}

// Count returns the number of stored assessments.
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	return s.Len(), nil
}

// Len returns the number of stored assessments.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.assessments)
}

var _ domain.AssessmentRepository = (*MemoryStore)(nil)
