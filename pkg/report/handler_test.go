package report

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ledgerlark/ledgerlark/pkg/entry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupHandlerTest(t *testing.T) (*Handler, *entry.RepositoryStub, uuid.UUID) {
	repo := entry.NewRepositoryStub()
	service := NewServiceImpl(repo)
	handler := NewHandler(service, NewCsvTransactionsRenderer())
	return handler, repo, uuid.New()
}

func TestHandler_GetSummary(t *testing.T) {
	handler, repo, projectID := setupHandlerTest(t)
	date := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	storeGroup(t, repo, entry.EntryGroup{
		ID:        uuid.New(),
		ProjectID: projectID,
		Transactions: []entry.Transaction{
			namedTx("invoice", entry.TypeIncome, "130", date),
			namedTx("supplies", entry.TypeExpense, "40", date),
		},
		Date: date, CreatedAt: date, UpdatedAt: date,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/report/summary", nil)
	w := httptest.NewRecorder()

	handler.GetSummary(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var dto TotalsDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
	assert.Equal(t, "130", dto.Income.String())
	assert.Equal(t, "40", dto.Expense.String())
	assert.Equal(t, "90", dto.Net.String())
}

func TestHandler_GetTrend(t *testing.T) {
	handler, repo, projectID := setupHandlerTest(t)
	january := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	storeGroup(t, repo, entry.EntryGroup{
		ID:           uuid.New(),
		ProjectID:    projectID,
		Transactions: []entry.Transaction{namedTx("invoice", entry.TypeIncome, "100", january)},
		Date:         january, CreatedAt: january, UpdatedAt: january,
	})

	req := httptest.NewRequest(http.MethodGet, "/api/report/trend?projectId="+projectID.String(), nil)
	w := httptest.NewRecorder()

	handler.GetTrend(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var dtos []MonthBucketDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, "2025-01", dtos[0].Month)
}

func TestHandler_GetTrend_InvalidProjectID(t *testing.T) {
	handler, _, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/report/trend?projectId=not-a-uuid", nil)
	w := httptest.NewRecorder()

	handler.GetTrend(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ListProjectTransactions(t *testing.T) {
	handler, repo, projectID := setupHandlerTest(t)
	seedListing(t, repo, projectID)

	req := httptest.NewRequest(
		http.MethodGet,
		fmt.Sprintf("/api/project/%s/transactions?limit=2&sortOrder=asc", projectID),
		nil,
	)
	req = mux.SetURLVars(req, map[string]string{"projectId": projectID.String()})
	w := httptest.NewRecorder()

	handler.ListProjectTransactions(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var page transactionPageDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&page))
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, "Website redesign", page.Items[0].Description)
	assert.Equal(t, 0, page.Items[0].EntryIndex)
}

func TestHandler_ListProjectTransactions_CsvExportIgnoresPagination(t *testing.T) {
	handler, repo, projectID := setupHandlerTest(t)
	seedListing(t, repo, projectID)

	req := httptest.NewRequest(
		http.MethodGet,
		fmt.Sprintf("/api/project/%s/transactions?limit=2", projectID),
		nil,
	)
	req.Header.Set("Accept", "text/csv")
	req = mux.SetURLVars(req, map[string]string{"projectId": projectID.String()})
	w := httptest.NewRecorder()

	handler.ListProjectTransactions(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Date,Description,Type,Amount")
	assert.Contains(t, w.Body.String(), "Website redesign")
	assert.Contains(t, w.Body.String(), "Stock photos")
}
