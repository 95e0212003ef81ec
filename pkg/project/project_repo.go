package project

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

type ProjectRepo interface {
	Store(ctx context.Context, project Project) error
	FindByID(ctx context.Context, id uuid.UUID) (Project, error)
	FindAll(ctx context.Context) ([]Project, error)
	// NameExists reports whether a project other than excludeID uses the name.
	NameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error)
	Update(ctx context.Context, project Project) (bool, error)
	Delete(ctx context.Context, id uuid.UUID) (bool, error)
}

type ProjectRepoImpl struct {
	db *sql.DB
}

func NewProjectRepo(db *sql.DB) *ProjectRepoImpl {
	return &ProjectRepoImpl{db: db}
}

func (r *ProjectRepoImpl) Store(ctx context.Context, project Project) error {
	query := `INSERT INTO project (
                    id,
                    name,
                    description,
                    client,
                    status,
                    created_at
				) VALUES (?, ?, ?, ?, ?, ?)`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return err
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx,
		project.ID.String(),
		project.Name,
		project.Description,
		project.Client,
		string(project.Status),
		project.CreatedAt.UnixMilli(),
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return err
	}

	return nil
}

func (r *ProjectRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (Project, error) {
	query := `SELECT id, name, description, client, status, created_at FROM project WHERE id = ?`
	row := r.db.QueryRowContext(ctx, query, id.String())

	project, err := scanProject(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return Project{}, ErrProjectNotFound
		}
		err := fmt.Errorf("could not scan project: %w", err)
		log.Error(err)
		return Project{}, err
	}
	return project, nil
}

func (r *ProjectRepoImpl) FindAll(ctx context.Context) ([]Project, error) {
	query := `SELECT id, name, description, client, status, created_at FROM project ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not query projects: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	var projects []Project
	for rows.Next() {
		project, err := scanProject(rows.Scan)
		if err != nil {
			err := fmt.Errorf("could not scan project: %w", err)
			log.Error(err)
			return nil, err
		}
		projects = append(projects, project)
	}

	if err := rows.Err(); err != nil {
		err := fmt.Errorf("error iterating over rows: %w", err)
		log.Error(err)
		return nil, err
	}

	return projects, nil
}

func (r *ProjectRepoImpl) NameExists(ctx context.Context, name string, excludeID uuid.UUID) (bool, error) {
	query := "SELECT COUNT(*) FROM project WHERE name = ? AND id != ?"
	row := r.db.QueryRowContext(ctx, query, name, excludeID.String())
	var count int
	if err := row.Scan(&count); err != nil {
		err := fmt.Errorf("could not check project name: %w", err)
		log.Error(err)
		return false, err
	}
	return count > 0, nil
}

func (r *ProjectRepoImpl) Update(ctx context.Context, project Project) (bool, error) {
	query := `UPDATE project SET
                  name = ?,
                  description = ?,
                  client = ?,
                  status = ?
              WHERE id = ?`
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return false, err
	}
	defer stmt.Close()

	result, err := stmt.ExecContext(ctx,
		project.Name,
		project.Description,
		project.Client,
		string(project.Status),
		project.ID.String(),
	)
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}

	return rowsAffected == 1, nil
}

func (r *ProjectRepoImpl) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	query := "DELETE FROM project WHERE id = ?"
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		err := fmt.Errorf("could not prepare query: %v", err)
		log.Error(err)
		return false, err
	}
	defer stmt.Close()
	result, err := stmt.ExecContext(ctx, id.String())
	if err != nil {
		err := fmt.Errorf("could not execute query: %v", err)
		log.Error(err)
		return false, err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		err := fmt.Errorf("could not get rows affected: %w", err)
		log.Error(err)
		return false, err
	}
	return rowsAffected == 1, nil
}

func scanProject(scan func(dest ...interface{}) error) (Project, error) {
	var project Project
	var idString, status string
	var createdAt int64
	if err := scan(
		&idString,
		&project.Name,
		&project.Description,
		&project.Client,
		&status,
		&createdAt,
	); err != nil {
		return Project{}, err
	}

	id, err := uuid.Parse(idString)
	if err != nil {
		return Project{}, fmt.Errorf("invalid project id %q: %w", idString, err)
	}
	project.ID = id
	project.Status = ProjectStatus(status)
	project.CreatedAt = time.UnixMilli(createdAt)
	return project, nil
}
