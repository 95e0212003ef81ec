package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/ledgerlark/ledgerlark/internal/utils"
	"github.com/ledgerlark/ledgerlark/pkg/entry"
	log "github.com/sirupsen/logrus"
)

type ProjectService interface {
	Create(ctx context.Context, project Project) (Project, error)
	Get(ctx context.Context, id uuid.UUID) (Project, error)
	GetAll(ctx context.Context) ([]Project, error)
	Update(ctx context.Context, project Project) (Project, error)
	// Delete removes the project together with all of its entry groups.
	Delete(ctx context.Context, id uuid.UUID) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type ProjectServiceImpl struct {
	repo      ProjectRepo
	entryRepo entry.Repository
	clock     utils.Clock
}

func NewProjectServiceImpl(repo ProjectRepo, entryRepo entry.Repository, clock utils.Clock) *ProjectServiceImpl {
	return &ProjectServiceImpl{repo: repo, entryRepo: entryRepo, clock: clock}
}

func (s *ProjectServiceImpl) Create(ctx context.Context, project Project) (Project, error) {
	if err := s.validate(&project); err != nil {
		return Project{}, err
	}

	taken, err := s.repo.NameExists(ctx, project.Name, uuid.Nil)
	if err != nil {
		return Project{}, err
	}
	if taken {
		return Project{}, ErrNameTaken
	}

	project.ID = uuid.New()
	project.CreatedAt = s.clock.Now()
	if err := s.repo.Store(ctx, project); err != nil {
		return Project{}, err
	}
	return project, nil
}

func (s *ProjectServiceImpl) Get(ctx context.Context, id uuid.UUID) (Project, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ProjectServiceImpl) GetAll(ctx context.Context) ([]Project, error) {
	return s.repo.FindAll(ctx)
}

func (s *ProjectServiceImpl) Update(ctx context.Context, project Project) (Project, error) {
	if err := s.validate(&project); err != nil {
		return Project{}, err
	}

	existing, err := s.repo.FindByID(ctx, project.ID)
	if err != nil {
		return Project{}, err
	}

	taken, err := s.repo.NameExists(ctx, project.Name, project.ID)
	if err != nil {
		return Project{}, err
	}
	if taken {
		return Project{}, ErrNameTaken
	}

	project.CreatedAt = existing.CreatedAt
	updated, err := s.repo.Update(ctx, project)
	if err != nil {
		return Project{}, err
	}
	if !updated {
		log.Warnf("project not updated, probably because it does not exist (%s)", project.ID)
		return Project{}, ErrProjectNotFound
	}
	return project, nil
}

func (s *ProjectServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return err
	}

	// Entry groups go first so a failure cannot leave orphaned groups behind
	// a deleted project.
	deletedGroups, err := s.entryRepo.DeleteForProject(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to delete entry groups of project %s: %w", id, err)
	}
	log.Debugf("deleted %d entry groups of project %s", deletedGroups, id)

	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrProjectNotFound
	}
	return nil
}

func (s *ProjectServiceImpl) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, ErrProjectNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *ProjectServiceImpl) validate(project *Project) error {
	if project.Name == "" {
		return ErrNameRequired
	}
	status, ok := ParseStatus(string(project.Status))
	if !ok {
		return ErrInvalidStatus
	}
	project.Status = status
	return nil
}
