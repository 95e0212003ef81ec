package app

import (
	"database/sql"

	"github.com/ledgerlark/ledgerlark/internal/config"
	"github.com/ledgerlark/ledgerlark/internal/utils"
	"github.com/ledgerlark/ledgerlark/pkg/entry"
	"github.com/ledgerlark/ledgerlark/pkg/project"
	"github.com/ledgerlark/ledgerlark/pkg/report"
)

// Dependencies holds all services and handlers for the application.
type Dependencies struct {
	ProjectRepo    project.ProjectRepo
	ProjectService *project.ProjectServiceImpl
	ProjectHandler *project.ProjectHandler

	EntryRepo    entry.Repository
	EntryService *entry.Service
	EntryHandler *entry.Handler

	ReportService *report.ServiceImpl
	CsvRenderer   *report.CsvTransactionsRendererImpl
	ReportHandler *report.Handler

	Clock utils.Clock
}

// BuildDependencies initializes and wires all application services and handlers.
func BuildDependencies(db *sql.DB, cfg config.Application) *Dependencies {
	deps := &Dependencies{}

	deps.Clock = &utils.SystemClock{}

	deps.EntryRepo = entry.NewRepository(db)
	deps.ProjectRepo = project.NewProjectRepo(db)

	deps.ReportService = report.NewServiceImpl(deps.EntryRepo)
	deps.CsvRenderer = report.NewCsvTransactionsRenderer()
	deps.ReportHandler = report.NewHandler(deps.ReportService, deps.CsvRenderer)

	deps.ProjectService = project.NewProjectServiceImpl(deps.ProjectRepo, deps.EntryRepo, deps.Clock)
	deps.ProjectHandler = project.NewProjectHandler(deps.ProjectService, deps.ReportService)

	deps.EntryService = entry.NewService(deps.EntryRepo, deps.Clock, deps.ProjectService.Exists)
	deps.EntryHandler = entry.NewHandler(deps.EntryService)

	return deps
}
