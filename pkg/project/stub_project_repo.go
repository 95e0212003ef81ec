package project

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// StubProjectRepo is an in-memory ProjectRepo for tests.
type StubProjectRepo struct {
	projects map[uuid.UUID]Project
}

func NewStubProjectRepo() *StubProjectRepo {
	return &StubProjectRepo{projects: map[uuid.UUID]Project{}}
}

func (s *StubProjectRepo) Store(ctx context.Context, project Project) error {
	s.projects[project.ID] = project
	return nil
}

func (s *StubProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (Project, error) {
	project, exists := s.projects[id]
	if !exists {
		return Project{}, ErrProjectNotFound
	}
	return project, nil
}

func (s *StubProjectRepo) FindAll(ctx context.Context) ([]Project, error) {
	projects := make([]Project, 0, len(s.projects))
	for _, project := range s.projects {
		projects = append(projects, project)
	}
	sort.Slice(projects, func(i, j int) bool {
		return projects[i].CreatedAt.After(projects[j].CreatedAt)
	})
	return projects, nil
}

func (s *StubProjectRepo) NameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	for _, project := range s.projects {
		if project.Name == name && project.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (s *StubProjectRepo) Update(ctx context.Context, project Project) (bool, error) {
	if _, exists := s.projects[project.ID]; !exists {
		return false, nil
	}
	s.projects[project.ID] = project
	return true, nil
}

func (s *StubProjectRepo) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, exists := s.projects[id]; !exists {
		return false, nil
	}
	delete(s.projects, id)
	return true, nil
}
