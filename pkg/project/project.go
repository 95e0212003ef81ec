package project

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	StatusPlanning   ProjectStatus = "Planning"
	StatusInProgress ProjectStatus = "In Progress"
	StatusCompleted  ProjectStatus = "Completed"
)

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrNameTaken       = errors.New("project with this name already exists")
	ErrNameRequired    = errors.New("project name is required")
	ErrInvalidStatus   = errors.New("invalid project status")
)

// ParseStatus resolves a raw status value. An empty value falls back to the
// default Planning status.
func ParseStatus(raw string) (ProjectStatus, bool) {
	switch ProjectStatus(raw) {
	case StatusPlanning, StatusInProgress, StatusCompleted:
		return ProjectStatus(raw), true
	case "":
		return StatusPlanning, true
	}
	return "", false
}

type Project struct {
	ID          uuid.UUID
	Name        string
	Description string
	Client      string
	Status      ProjectStatus
	CreatedAt   time.Time
}
