package project

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ledgerlark/ledgerlark/internal/rest"
	"github.com/ledgerlark/ledgerlark/pkg/report"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type ProjectDTO struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Client      string          `json:"client"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"createdAt"`
	Inbound     decimal.Decimal `json:"inbound"`
	Outbound    decimal.Decimal `json:"outbound"`
	Profit      decimal.Decimal `json:"profit"`
}

type projectListResponse struct {
	Count int          `json:"count"`
	Data  []ProjectDTO `json:"data"`
}

type projectDetailResponse struct {
	Project      ProjectDTO                       `json:"project"`
	Transactions []report.FlattenedTransactionDTO `json:"transactions"`
	Summary      report.TotalsDTO                 `json:"summary"`
}

type ProjectHandler struct {
	projectService ProjectService
	reportService  report.Service
}

func NewProjectHandler(projectService ProjectService, reportService report.Service) *ProjectHandler {
	return &ProjectHandler{projectService: projectService, reportService: reportService}
}

func (handler *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new project")
	w.Header().Set("Content-Type", "application/json")

	var projectDTO ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&projectDTO); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	created, err := handler.projectService.Create(r.Context(), DTOToProject(projectDTO))
	if err != nil {
		handler.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(ProjectToDTO(created, report.Totals{})); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *ProjectHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	projects, err := handler.projectService.GetAll(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	projectDTOs := make([]ProjectDTO, 0, len(projects))
	for _, project := range projects {
		totals, err := handler.reportService.ProjectTotals(r.Context(), project.ID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		projectDTOs = append(projectDTOs, ProjectToDTO(project, totals))
	}

	w.WriteHeader(http.StatusOK)
	response := projectListResponse{Count: len(projectDTOs), Data: projectDTOs}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	projectID, err := uuid.Parse(mux.Vars(r)["projectId"])
	if err != nil {
		http.Error(w, "Invalid project id", http.StatusBadRequest)
		return
	}

	project, err := handler.projectService.Get(r.Context(), projectID)
	if err != nil {
		handler.respondError(w, err)
		return
	}

	totals, err := handler.reportService.ProjectTotals(r.Context(), project.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	// The detail view renders the whole transaction list client-side.
	page, err := handler.reportService.ListTransactions(r.Context(), project.ID, report.TransactionQuery{Limit: -1})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	transactions := make([]report.FlattenedTransactionDTO, 0, len(page.Items))
	for _, item := range page.Items {
		transactions = append(transactions, report.FlattenedToDTO(item))
	}

	w.WriteHeader(http.StatusOK)
	response := projectDetailResponse{
		Project:      ProjectToDTO(project, totals),
		Transactions: transactions,
		Summary:      report.TotalsToDTO(totals),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	projectID, err := uuid.Parse(mux.Vars(r)["projectId"])
	if err != nil {
		http.Error(w, "Invalid project id", http.StatusBadRequest)
		return
	}

	var projectDTO ProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&projectDTO); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	project := DTOToProject(projectDTO)
	project.ID = projectID

	updated, err := handler.projectService.Update(r.Context(), project)
	if err != nil {
		handler.respondError(w, err)
		return
	}

	totals, err := handler.reportService.ProjectTotals(r.Context(), updated.ID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ProjectToDTO(updated, totals)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (handler *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(mux.Vars(r)["projectId"])
	if err != nil {
		http.Error(w, "Invalid project id", http.StatusBadRequest)
		return
	}

	if err := handler.projectService.Delete(r.Context(), projectID); err != nil {
		handler.respondError(w, err)
		return
	}

	// Return 204 No Content for successful deletion with no response body
	w.WriteHeader(http.StatusNoContent)
}

func (handler *ProjectHandler) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrProjectNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrNameTaken), errors.Is(err, ErrNameRequired), errors.Is(err, ErrInvalidStatus):
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
		Error: err.Error(),
	})
	if encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}

func ProjectToDTO(project Project, totals report.Totals) ProjectDTO {
	return ProjectDTO{
		ID:          project.ID.String(),
		Name:        project.Name,
		Description: project.Description,
		Client:      project.Client,
		Status:      string(project.Status),
		CreatedAt:   project.CreatedAt,
		Inbound:     totals.Income,
		Outbound:    totals.Expense,
		Profit:      totals.Net,
	}
}

func DTOToProject(projectDTO ProjectDTO) Project {
	return Project{
		Name:        projectDTO.Name,
		Description: projectDTO.Description,
		Client:      projectDTO.Client,
		Status:      ProjectStatus(projectDTO.Status),
	}
}
