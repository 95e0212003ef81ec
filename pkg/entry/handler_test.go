package entry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ledgerlark/ledgerlark/internal/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test setup helper
func setupHandlerTest(t *testing.T) (*Handler, *Service) {
	repo := NewRepositoryStub()
	clock := &utils.MockClock{FixedNow: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	projectExists := func(ctx context.Context, id uuid.UUID) (bool, error) {
		return true, nil
	}
	service := NewService(repo, clock, projectExists)
	return NewHandler(service), service
}

func entryBody(t *testing.T, payload interface{}) *bytes.Buffer {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return bytes.NewBuffer(body)
}

func TestHandler_CreateGroup(t *testing.T) {
	handler, _ := setupHandlerTest(t)
	projectID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/entry", entryBody(t, createGroupRequest{
		ProjectID: projectID.String(),
		Date:      "2025-06-10",
		Entries: []TransactionDTO{
			{Description: "Logo design", Type: "income", Cost: decimal.NewFromInt(800)},
			{Description: "Font license", Type: "expenses", Cost: decimal.RequireFromString("49.99")},
		},
	}))
	w := httptest.NewRecorder()

	handler.CreateGroup(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
	var dto EntryGroupDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
	assert.Equal(t, projectID.String(), dto.ProjectID)
	require.Len(t, dto.Entries, 2)
	assert.Equal(t, "income", dto.Entries[0].Type)
	assert.Equal(t, "expenses", dto.Entries[1].Type)
	assert.NotEmpty(t, dto.Entries[0].UID)
}

func TestHandler_CreateGroup_ValidationError(t *testing.T) {
	handler, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/entry", entryBody(t, createGroupRequest{
		ProjectID: uuid.New().String(),
		Entries: []TransactionDTO{
			{Description: "", Type: "income", Cost: decimal.NewFromInt(10)},
		},
	}))
	w := httptest.NewRecorder()

	handler.CreateGroup(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_CreateGroup_MissingProjectID(t *testing.T) {
	handler, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodPost, "/api/entry", entryBody(t, createGroupRequest{
		Entries: []TransactionDTO{
			{Description: "orphan", Type: "income", Cost: decimal.NewFromInt(10)},
		},
	}))
	w := httptest.NewRecorder()

	handler.CreateGroup(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_AppendTransactions_CreatesThenAppends(t *testing.T) {
	handler, _ := setupHandlerTest(t)
	projectID := uuid.New()
	url := fmt.Sprintf("/api/project/%s/entry", projectID)

	send := func(description string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, url, entryBody(t, appendRequest{
			Entries: []TransactionDTO{
				{Description: description, Type: "income", Cost: decimal.NewFromInt(100)},
			},
		}))
		req = mux.SetURLVars(req, map[string]string{"projectId": projectID.String()})
		w := httptest.NewRecorder()
		handler.AppendTransactions(w, req)
		return w
	}

	first := send("first")
	assert.Equal(t, http.StatusCreated, first.Code)
	var firstResponse appendResponse
	require.NoError(t, json.NewDecoder(first.Body).Decode(&firstResponse))
	assert.Equal(t, "Entry added successfully", firstResponse.Message)
	assert.Equal(t, []int{0}, firstResponse.AssignedIndices)

	second := send("second")
	assert.Equal(t, http.StatusOK, second.Code)
	var secondResponse appendResponse
	require.NoError(t, json.NewDecoder(second.Body).Decode(&secondResponse))
	assert.Equal(t, "Entry updated successfully", secondResponse.Message)
	assert.Equal(t, []int{1}, secondResponse.AssignedIndices)
	assert.Len(t, secondResponse.Data.Entries, 2)
}

func TestHandler_UpdateTransactionAt(t *testing.T) {
	handler, service := setupHandlerTest(t)
	projectID := uuid.New()
	group, err := service.CreateGroup(context.Background(), projectID, []TransactionFields{
		{Description: "first", Type: "income", Amount: decimal.NewFromInt(100)},
		{Description: "second", Type: "expenses", Amount: decimal.NewFromInt(50)},
	}, time.Time{})
	require.NoError(t, err)

	req := httptest.NewRequest(
		http.MethodPut,
		fmt.Sprintf("/api/entry/%s/transaction/1", group.ID),
		entryBody(t, TransactionDTO{Description: "second corrected", Type: "expenses", Cost: decimal.NewFromInt(55)}),
	)
	req = mux.SetURLVars(req, map[string]string{"entryId": group.ID.String(), "index": "1"})
	w := httptest.NewRecorder()

	handler.UpdateTransactionAt(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var dto EntryGroupDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dto))
	require.Len(t, dto.Entries, 2)
	assert.Equal(t, "second corrected", dto.Entries[1].Description)
}

func TestHandler_UpdateTransactionAt_OutOfRange(t *testing.T) {
	handler, service := setupHandlerTest(t)
	group, err := service.CreateGroup(context.Background(), uuid.New(), []TransactionFields{
		{Description: "only", Type: "income", Amount: decimal.NewFromInt(100)},
	}, time.Time{})
	require.NoError(t, err)

	req := httptest.NewRequest(
		http.MethodPut,
		fmt.Sprintf("/api/entry/%s/transaction/5", group.ID),
		entryBody(t, TransactionDTO{Description: "nope", Type: "income", Cost: decimal.NewFromInt(1)}),
	)
	req = mux.SetURLVars(req, map[string]string{"entryId": group.ID.String(), "index": "5"})
	w := httptest.NewRecorder()

	handler.UpdateTransactionAt(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_DeleteTransactionAt_LastOneReportsGroupDeleted(t *testing.T) {
	handler, service := setupHandlerTest(t)
	group, err := service.CreateGroup(context.Background(), uuid.New(), []TransactionFields{
		{Description: "only", Type: "income", Amount: decimal.NewFromInt(100)},
	}, time.Time{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, fmt.Sprintf("/api/entry/%s/transaction/0", group.ID), nil)
	req = mux.SetURLVars(req, map[string]string{"entryId": group.ID.String(), "index": "0"})
	w := httptest.NewRecorder()

	handler.DeleteTransactionAt(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var response deleteTransactionResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.True(t, response.GroupDeleted)
}

func TestHandler_GetGroup_NotFound(t *testing.T) {
	handler, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/entry/%s", uuid.New()), nil)
	req = mux.SetURLVars(req, map[string]string{"entryId": uuid.New().String()})
	w := httptest.NewRecorder()

	handler.GetGroup(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListGroups_FiltersByProject(t *testing.T) {
	handler, service := setupHandlerTest(t)
	projectID := uuid.New()
	otherID := uuid.New()
	_, err := service.CreateGroup(context.Background(), projectID, []TransactionFields{
		{Description: "mine", Type: "income", Amount: decimal.NewFromInt(100)},
	}, time.Time{})
	require.NoError(t, err)
	_, err = service.CreateGroup(context.Background(), otherID, []TransactionFields{
		{Description: "theirs", Type: "income", Amount: decimal.NewFromInt(100)},
	}, time.Time{})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/entry?projectId="+projectID.String(), nil)
	w := httptest.NewRecorder()

	handler.ListGroups(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var dtos []EntryGroupDTO
	require.NoError(t, json.NewDecoder(w.Body).Decode(&dtos))
	require.Len(t, dtos, 1)
	assert.Equal(t, projectID.String(), dtos[0].ProjectID)
	assert.Equal(t, "mine", dtos[0].Entries[0].Description)
}

func TestHandler_ListGroups_InvalidDate(t *testing.T) {
	handler, _ := setupHandlerTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/entry?startDate=not-a-date", nil)
	w := httptest.NewRecorder()

	handler.ListGroups(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
