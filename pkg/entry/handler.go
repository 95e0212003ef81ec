package entry

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ledgerlark/ledgerlark/internal/rest"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type TransactionDTO struct {
	UID         string          `json:"uid,omitempty"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Cost        decimal.Decimal `json:"cost"`
	RawCost     string          `json:"rawCost,omitempty"`
	AmountValid bool            `json:"amountValid"`
	Date        *time.Time      `json:"date,omitempty"`
	UpdatedAt   *time.Time      `json:"updateat,omitempty"`
}

type EntryGroupDTO struct {
	ID        string           `json:"id"`
	ProjectID string           `json:"projectId"`
	Entries   []TransactionDTO `json:"entries"`
	Date      time.Time        `json:"date"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

type createGroupRequest struct {
	ProjectID string           `json:"projectId"`
	Date      string           `json:"date,omitempty"`
	Entries   []TransactionDTO `json:"entries"`
}

type appendRequest struct {
	Date    string           `json:"date,omitempty"`
	Entries []TransactionDTO `json:"entries"`
}

type replaceRequest struct {
	Entries []TransactionDTO `json:"entries"`
}

type appendResponse struct {
	Message         string        `json:"message"`
	Data            EntryGroupDTO `json:"data"`
	AssignedIndices []int         `json:"assignedIndices"`
}

type deleteTransactionResponse struct {
	Message      string `json:"message"`
	GroupDeleted bool   `json:"groupDeleted"`
}

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	log.Debug("Creating new entry group")
	w.Header().Set("Content-Type", "application/json")

	var req createGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	projectID, err := uuid.Parse(req.ProjectID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Project ID is required when creating a new entry", "")
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format", "")
		return
	}

	group, err := h.service.CreateGroup(r.Context(), projectID, toFields(req.Entries), date)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(GroupToDTO(group)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) ListGroups(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	filter := Filter{
		Type: r.URL.Query().Get("type"),
	}
	if projectIdParam := r.URL.Query().Get("projectId"); projectIdParam != "" {
		projectID, err := uuid.Parse(projectIdParam)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid projectId", "")
			return
		}
		filter.ProjectID = projectID
	}
	var err error
	if filter.From, err = parseOptionalDate(r.URL.Query().Get("startDate")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid startDate format", "")
		return
	}
	if filter.To, err = parseOptionalDate(r.URL.Query().Get("endDate")); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid endDate format", "")
		return
	}
	if !filter.To.IsZero() {
		// The endDate parameter is inclusive of the whole day.
		filter.To = filter.To.Add(24*time.Hour - time.Nanosecond)
	}

	groups, err := h.service.ListGroups(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}

	dtos := make([]EntryGroupDTO, 0, len(groups))
	for _, group := range groups {
		dtos = append(dtos, GroupToDTO(group))
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) AppendTransactions(w http.ResponseWriter, r *http.Request) {
	log.Debug("Appending transactions to project entry group")
	w.Header().Set("Content-Type", "application/json")

	projectID, err := uuid.Parse(mux.Vars(r)["projectId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid project id", "")
		return
	}

	var req appendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format", "")
		return
	}

	result, err := h.service.AppendTransactions(r.Context(), projectID, toFields(req.Entries), date)
	if err != nil {
		h.respondError(w, err)
		return
	}

	status := http.StatusOK
	message := "Entry updated successfully"
	if result.Created {
		status = http.StatusCreated
		message = "Entry added successfully"
	}
	w.WriteHeader(status)
	response := appendResponse{
		Message:         message,
		Data:            GroupToDTO(result.Group),
		AssignedIndices: result.AssignedIndices,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) GetGroup(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	groupID, err := uuid.Parse(mux.Vars(r)["entryId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID format", "")
		return
	}

	group, err := h.service.GetGroup(r.Context(), groupID)
	if err != nil {
		h.respondError(w, err)
		return
	}

	if err := json.NewEncoder(w).Encode(GroupToDTO(group)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) ReplaceTransactions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	groupID, err := uuid.Parse(mux.Vars(r)["entryId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID format", "")
		return
	}

	var req replaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	group, err := h.service.ReplaceTransactions(r.Context(), groupID, toFields(req.Entries))
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(GroupToDTO(group)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) UpdateTransactionAt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	groupID, err := uuid.Parse(mux.Vars(r)["entryId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID format", "")
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry index: not a number", "")
		return
	}

	var dto TransactionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}

	group, err := h.service.UpdateTransactionAt(r.Context(), groupID, index, dtoToFields(dto))
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(GroupToDTO(group)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) DeleteTransactionAt(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	groupID, err := uuid.Parse(mux.Vars(r)["entryId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID format", "")
		return
	}
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid entry index: not a number", "")
		return
	}

	result, err := h.service.DeleteTransactionAt(r.Context(), groupID, index)
	if err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusOK)
	response := deleteTransactionResponse{
		Message:      "Transaction deleted successfully",
		GroupDeleted: result.GroupDeleted,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (h *Handler) DeleteGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := uuid.Parse(mux.Vars(r)["entryId"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid ID format", "")
		return
	}

	if _, err := h.service.DeleteGroup(r.Context(), groupID); err != nil {
		h.respondError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error(), "")
	case errors.Is(err, ErrGroupNotFound):
		writeError(w, http.StatusNotFound, "Entry not found", "")
	case errors.Is(err, ErrProjectNotFound):
		writeError(w, http.StatusNotFound, "Project not found", "")
	case errors.Is(err, ErrIndexOutOfRange):
		writeError(w, http.StatusBadRequest, "Invalid entry index", err.Error())
	case errors.Is(err, ErrConflict):
		writeError(w, http.StatusConflict, "Entry was modified concurrently, retry the request", "")
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, message string, details string) {
	w.WriteHeader(status)
	encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
		Error:   message,
		Details: details,
	})
	if encodeErr != nil {
		http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
	}
}

func GroupToDTO(group EntryGroup) EntryGroupDTO {
	entries := make([]TransactionDTO, 0, len(group.Transactions))
	for i, tx := range group.Transactions {
		dto := TransactionDTO{
			Description: tx.Description,
			Type:        string(tx.Type),
			Cost:        tx.Amount,
			RawCost:     tx.RawAmount,
			AmountValid: tx.AmountValid,
		}
		if tx.UID != uuid.Nil {
			dto.UID = tx.UID.String()
		}
		// Transactions without their own date inherit the group date.
		date := group.TransactionDate(i)
		dto.Date = &date
		if !tx.UpdatedAt.IsZero() {
			updatedAt := tx.UpdatedAt
			dto.UpdatedAt = &updatedAt
		}
		entries = append(entries, dto)
	}
	return EntryGroupDTO{
		ID:        group.ID.String(),
		ProjectID: group.ProjectID.String(),
		Entries:   entries,
		Date:      group.Date,
		CreatedAt: group.CreatedAt,
		UpdatedAt: group.UpdatedAt,
	}
}

func toFields(dtos []TransactionDTO) []TransactionFields {
	fields := make([]TransactionFields, 0, len(dtos))
	for _, dto := range dtos {
		fields = append(fields, dtoToFields(dto))
	}
	return fields
}

func dtoToFields(dto TransactionDTO) TransactionFields {
	fields := TransactionFields{
		Description: dto.Description,
		Type:        dto.Type,
		Amount:      dto.Cost,
	}
	if dto.Date != nil {
		fields.Date = *dto.Date
	}
	return fields
}

// parseOptionalDate accepts RFC3339 timestamps and plain dates. An empty
// string parses to the zero time.
func parseOptionalDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}
