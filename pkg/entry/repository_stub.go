package entry

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// RepositoryStub is an in-memory Repository for tests. It enforces the same
// version check as the real repository so conflict handling can be exercised.
type RepositoryStub struct {
	groups map[uuid.UUID]EntryGroup
	// FailSavesWith, when set, is returned by the next Save calls until the
	// counter runs out. Used to simulate lost write races.
	FailSavesWith error
	FailSaveCount int
	// FailDeletesWith does the same for DeleteVersioned calls.
	FailDeletesWith error
	FailDeleteCount int
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{groups: map[uuid.UUID]EntryGroup{}}
}

func (s *RepositoryStub) Create(ctx context.Context, group EntryGroup) (EntryGroup, error) {
	group.Version = 1
	s.groups[group.ID] = cloneGroup(group)
	return group, nil
}

func (s *RepositoryStub) FindByID(ctx context.Context, id uuid.UUID) (EntryGroup, error) {
	group, exists := s.groups[id]
	if !exists {
		return EntryGroup{}, ErrGroupNotFound
	}
	return cloneGroup(group), nil
}

func (s *RepositoryStub) FindForProject(ctx context.Context, projectID uuid.UUID) ([]EntryGroup, error) {
	var groups []EntryGroup
	for _, group := range s.groups {
		if group.ProjectID == projectID {
			groups = append(groups, cloneGroup(group))
		}
	}
	sortGroups(groups)
	return groups, nil
}

func (s *RepositoryStub) FindAll(ctx context.Context, filter Filter) ([]EntryGroup, error) {
	var groups []EntryGroup
	for _, group := range s.groups {
		if filter.ProjectID != uuid.Nil && group.ProjectID != filter.ProjectID {
			continue
		}
		if matchesFilter(group, filter) {
			groups = append(groups, cloneGroup(group))
		}
	}
	sortGroups(groups)
	return groups, nil
}

func (s *RepositoryStub) Save(ctx context.Context, group EntryGroup) (EntryGroup, error) {
	if s.FailSaveCount > 0 && s.FailSavesWith != nil {
		s.FailSaveCount--
		return EntryGroup{}, s.FailSavesWith
	}
	stored, exists := s.groups[group.ID]
	if !exists {
		return EntryGroup{}, ErrGroupNotFound
	}
	if stored.Version != group.Version {
		return EntryGroup{}, ErrConflict
	}
	group.Version++
	s.groups[group.ID] = cloneGroup(group)
	return group, nil
}

func (s *RepositoryStub) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, exists := s.groups[id]; !exists {
		return false, nil
	}
	delete(s.groups, id)
	return true, nil
}

func (s *RepositoryStub) DeleteVersioned(ctx context.Context, id uuid.UUID, version int64) error {
	if s.FailDeleteCount > 0 && s.FailDeletesWith != nil {
		s.FailDeleteCount--
		return s.FailDeletesWith
	}
	stored, exists := s.groups[id]
	if !exists {
		return ErrGroupNotFound
	}
	if stored.Version != version {
		return ErrConflict
	}
	delete(s.groups, id)
	return nil
}

func (s *RepositoryStub) DeleteForProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	var deleted int64
	for id, group := range s.groups {
		if group.ProjectID == projectID {
			delete(s.groups, id)
			deleted++
		}
	}
	return deleted, nil
}

func cloneGroup(group EntryGroup) EntryGroup {
	transactions := make([]Transaction, len(group.Transactions))
	copy(transactions, group.Transactions)
	group.Transactions = transactions
	return group
}

func sortGroups(groups []EntryGroup) {
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].CreatedAt.After(groups[j].CreatedAt)
	})
}
