package report

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/ledgerlark/ledgerlark/internal/rest"
	"github.com/shopspring/decimal"
)

type TotalsDTO struct {
	Income         decimal.Decimal `json:"income"`
	Expense        decimal.Decimal `json:"expense"`
	Net            decimal.Decimal `json:"net"`
	InvalidAmounts int             `json:"invalidAmounts,omitempty"`
}

type MonthBucketDTO struct {
	Month   string          `json:"month"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Profit  decimal.Decimal `json:"profit"`
}

type FlattenedTransactionDTO struct {
	EntryID     string          `json:"entryId"`
	EntryIndex  int             `json:"entryIndex"`
	UID         string          `json:"uid,omitempty"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Amount      decimal.Decimal `json:"amount"`
	RawAmount   string          `json:"rawAmount,omitempty"`
	AmountValid bool            `json:"amountValid"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updateat"`
}

type transactionPageDTO struct {
	Count int                       `json:"count"`
	Total int                       `json:"totalCount"`
	Items []FlattenedTransactionDTO `json:"items"`
}

type Handler struct {
	service  Service
	renderer TransactionsRenderer
}

func NewHandler(service Service, renderer TransactionsRenderer) *Handler {
	return &Handler{service: service, renderer: renderer}
}

// GetSummary returns income/expense/net totals across all projects.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	totals, err := h.service.GlobalTotals(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(TotalsToDTO(totals)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetTrend returns the monthly income/expense/profit rollup, optionally scoped
// to a single project via the projectId query parameter.
func (h *Handler) GetTrend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	projectID := uuid.Nil
	if projectIdParam := r.URL.Query().Get("projectId"); projectIdParam != "" {
		parsed, err := uuid.Parse(projectIdParam)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
				Error: "Invalid projectId",
			})
			if encodeErr != nil {
				http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
			}
			return
		}
		projectID = parsed
	}

	trend, err := h.service.Trend(r.Context(), projectID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	dtos := make([]MonthBucketDTO, 0, len(trend))
	for _, bucket := range trend {
		dtos = append(dtos, MonthBucketDTO{
			Month:   bucket.Label(),
			Income:  bucket.Income,
			Expense: bucket.Expense,
			Profit:  bucket.Profit,
		})
	}
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dtos); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// ListProjectTransactions returns the flattened, filtered, paginated listing
// for one project. With "Accept: text/csv" the full filtered listing is
// rendered as CSV instead.
func (h *Handler) ListProjectTransactions(w http.ResponseWriter, r *http.Request) {
	projectID, err := uuid.Parse(mux.Vars(r)["projectId"])
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		encodeErr := json.NewEncoder(w).Encode(rest.ErrorResponse{
			Error: "Invalid project id",
		})
		if encodeErr != nil {
			http.Error(w, encodeErr.Error(), http.StatusInternalServerError)
		}
		return
	}

	query := TransactionQuery{
		Search:    r.URL.Query().Get("search"),
		Type:      r.URL.Query().Get("type"),
		SortBy:    r.URL.Query().Get("sortBy"),
		SortOrder: r.URL.Query().Get("sortOrder"),
	}
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		query.Page, _ = strconv.Atoi(pageParam)
	}
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		query.Limit, _ = strconv.Atoi(limitParam)
	}

	if r.Header.Get("Accept") == "text/csv" {
		query.Page = 0
		query.Limit = -1
		page, err := h.service.ListTransactions(r.Context(), projectID, query)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		csv, err := h.renderer.RenderTransactions(page.Items)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		if _, err := w.Write([]byte(csv)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	page, err := h.service.ListTransactions(r.Context(), projectID, query)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	items := make([]FlattenedTransactionDTO, 0, len(page.Items))
	for _, item := range page.Items {
		items = append(items, FlattenedToDTO(item))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	response := transactionPageDTO{
		Count: len(items),
		Total: page.TotalCount,
		Items: items,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func TotalsToDTO(totals Totals) TotalsDTO {
	return TotalsDTO{
		Income:         totals.Income,
		Expense:        totals.Expense,
		Net:            totals.Net,
		InvalidAmounts: totals.InvalidAmounts,
	}
}

func FlattenedToDTO(item FlattenedTransaction) FlattenedTransactionDTO {
	dto := FlattenedTransactionDTO{
		EntryID:     item.GroupID.String(),
		EntryIndex:  item.Index,
		Description: item.Description,
		Type:        string(item.Type),
		Amount:      item.Amount,
		RawAmount:   item.RawAmount,
		AmountValid: item.AmountValid,
		Date:        item.Date,
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
	if item.UID != uuid.Nil {
		dto.UID = item.UID.String()
	}
	return dto
}
