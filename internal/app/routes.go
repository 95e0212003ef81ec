package app

import (
	"github.com/gorilla/mux"
	"github.com/ledgerlark/ledgerlark/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Projects
	r.HandleFunc("/api/project", deps.ProjectHandler.GetAll).Methods("GET")
	r.HandleFunc("/api/project", deps.ProjectHandler.Create).Methods("POST")
	r.HandleFunc("/api/project/{projectId}", deps.ProjectHandler.Get).Methods("GET")
	r.HandleFunc("/api/project/{projectId}", deps.ProjectHandler.Update).Methods("PUT")
	r.HandleFunc("/api/project/{projectId}", deps.ProjectHandler.Delete).Methods("DELETE")
	r.HandleFunc("/api/project/{projectId}/transactions", deps.ReportHandler.ListProjectTransactions).Methods("GET")
	r.HandleFunc("/api/project/{projectId}/entry", deps.EntryHandler.AppendTransactions).Methods("POST")

	// Entries
	r.HandleFunc("/api/entry", deps.EntryHandler.ListGroups).Methods("GET")
	r.HandleFunc("/api/entry", deps.EntryHandler.CreateGroup).Methods("POST")
	r.HandleFunc("/api/entry/{entryId}", deps.EntryHandler.GetGroup).Methods("GET")
	r.HandleFunc("/api/entry/{entryId}", deps.EntryHandler.ReplaceTransactions).Methods("PUT")
	r.HandleFunc("/api/entry/{entryId}", deps.EntryHandler.DeleteGroup).Methods("DELETE")
	r.HandleFunc("/api/entry/{entryId}/transaction/{index}", deps.EntryHandler.UpdateTransactionAt).Methods("PUT")
	r.HandleFunc("/api/entry/{entryId}/transaction/{index}", deps.EntryHandler.DeleteTransactionAt).Methods("DELETE")

	// Reports
	r.HandleFunc("/api/report/summary", deps.ReportHandler.GetSummary).Methods("GET")
	r.HandleFunc("/api/report/trend", deps.ReportHandler.GetTrend).Methods("GET")
}
