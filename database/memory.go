package database

import (
	"context"
	"fmt"
	"sync"
	"time"

	"issuetracker/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore keeps issues in process memory in insertion order. It backs
// the handler tests and the memory backend.
type MemoryStore struct {
	mu     sync.RWMutex
	issues []models.Issue
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{issues: []models.Issue{}}
}

func (s *MemoryStore) FindIssues(ctx context.Context, filter Filter) ([]models.Issue, error) {
	for _, cond := range filter.Conditions {
		if _, ok := columnByField[cond.Name]; !ok {
			return nil, fmt.Errorf("unknown filter field %q", cond.Name)
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	issues := []models.Issue{}
	for i := range s.issues {
		if matches(&s.issues[i], filter) {
			issues = append(issues, s.issues[i])
		}
	}
	return issues, nil
}

func (s *MemoryStore) InsertIssue(ctx context.Context, issue *models.Issue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.issues {
		if s.issues[i].ID == issue.ID {
			return fmt.Errorf("failed to insert issue: duplicate id %s", issue.ID.Hex())
		}
	}
	s.issues = append(s.issues, *issue)
	return nil
}

func (s *MemoryStore) UpdateIssue(ctx context.Context, project string, id primitive.ObjectID, update Update) error {
	if err := validateUpdate(update); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(project, id)
	if idx < 0 {
		return ErrIssueNotFound
	}

	// Apply to a copy so a bad value leaves the stored issue untouched.
	updated := s.issues[idx]
	for _, f := range update.Fields {
		if err := updated.Set(f.Name, f.Value); err != nil {
			return fmt.Errorf("failed to update issue: %w", err)
		}
	}
	updated.UpdatedOn = update.UpdatedOn
	s.issues[idx] = updated
	return nil
}

func (s *MemoryStore) DeleteIssue(ctx context.Context, project string, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(project, id)
	if idx < 0 {
		return ErrIssueNotFound
	}
	s.issues = append(s.issues[:idx], s.issues[idx+1:]...)
	return nil
}

func (s *MemoryStore) Migrate(ctx context.Context) error { return nil }

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() {}

// Count returns the number of stored issues for a project.
func (s *MemoryStore) Count(project string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for i := range s.issues {
		if s.issues[i].Project == project {
			n++
		}
	}
	return n
}

func (s *MemoryStore) indexOf(project string, id primitive.ObjectID) int {
	for i := range s.issues {
		if s.issues[i].ID == id && s.issues[i].Project == project {
			return i
		}
	}
	return -1
}

func matches(issue *models.Issue, filter Filter) bool {
	if issue.Project != filter.Project {
		return false
	}
	for _, cond := range filter.Conditions {
		got, ok := issue.Get(cond.Name)
		if !ok || !equalValues(got, cond.Value) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	return a == b
}
