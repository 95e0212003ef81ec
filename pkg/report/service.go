package report

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/ledgerlark/ledgerlark/pkg/entry"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// TransactionQuery narrows, orders, and pages the flattened listing.
type TransactionQuery struct {
	// Search matches case-insensitively against descriptions.
	Search string
	// Type filters by transaction class; legacy label spellings are accepted,
	// empty or "all" keeps everything.
	Type string
	// SortBy is one of date, amount, description. Defaults to date.
	SortBy string
	// SortOrder is asc or desc. Defaults to desc.
	SortOrder string
	Page int
	// Limit is the page size. Zero means the default page size; a negative
	// value disables pagination entirely (used by the CSV export).
	Limit int
}

// TransactionPage is one page of the flattened listing. TotalCount counts all
// transactions matching the query, not just the page.
type TransactionPage struct {
	Items      []FlattenedTransaction
	TotalCount int
}

type Service interface {
	ProjectTotals(ctx context.Context, projectID uuid.UUID) (Totals, error)
	GlobalTotals(ctx context.Context) (Totals, error)
	// Trend returns the monthly rollup, scoped to one project when projectID
	// is non-nil uuid, across all projects when it is uuid.Nil.
	Trend(ctx context.Context, projectID uuid.UUID) ([]MonthBucket, error)
	ListTransactions(ctx context.Context, projectID uuid.UUID, query TransactionQuery) (TransactionPage, error)
}

type ServiceImpl struct {
	entryRepo entry.Repository
}

func NewServiceImpl(entryRepo entry.Repository) *ServiceImpl {
	return &ServiceImpl{entryRepo: entryRepo}
}

func (s *ServiceImpl) ProjectTotals(ctx context.Context, projectID uuid.UUID) (Totals, error) {
	groups, err := s.entryRepo.FindForProject(ctx, projectID)
	if err != nil {
		return Totals{}, fmt.Errorf("failed to load entry groups: %w", err)
	}
	return ComputeTotals(groups), nil
}

func (s *ServiceImpl) GlobalTotals(ctx context.Context) (Totals, error) {
	groups, err := s.entryRepo.FindAll(ctx, entry.Filter{})
	if err != nil {
		return Totals{}, fmt.Errorf("failed to load entry groups: %w", err)
	}
	return ComputeTotals(groups), nil
}

func (s *ServiceImpl) Trend(ctx context.Context, projectID uuid.UUID) ([]MonthBucket, error) {
	groups, err := s.entryRepo.FindAll(ctx, entry.Filter{ProjectID: projectID})
	if err != nil {
		return nil, fmt.Errorf("failed to load entry groups: %w", err)
	}
	return MonthlyTrend(groups), nil
}

func (s *ServiceImpl) ListTransactions(ctx context.Context, projectID uuid.UUID, query TransactionQuery) (TransactionPage, error) {
	groups, err := s.entryRepo.FindForProject(ctx, projectID)
	if err != nil {
		return TransactionPage{}, fmt.Errorf("failed to load entry groups: %w", err)
	}

	items := filterTransactions(Flatten(groups), query)
	sortTransactions(items, query)
	totalCount := len(items)

	return TransactionPage{
		Items:      paginate(items, query),
		TotalCount: totalCount,
	}, nil
}

func filterTransactions(items []FlattenedTransaction, query TransactionQuery) []FlattenedTransaction {
	typeFilter := ""
	if query.Type != "" && query.Type != "all" {
		normalized, _ := entry.NormalizeType(query.Type)
		typeFilter = string(normalized)
	}
	search := strings.ToLower(strings.TrimSpace(query.Search))

	filtered := make([]FlattenedTransaction, 0, len(items))
	for _, item := range items {
		if typeFilter != "" && string(item.Type) != typeFilter {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Description), search) {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered
}

func sortTransactions(items []FlattenedTransaction, query TransactionQuery) {
	ascending := query.SortOrder == "asc"

	var less func(a, b FlattenedTransaction) bool
	switch query.SortBy {
	case "amount":
		less = func(a, b FlattenedTransaction) bool {
			return a.Amount.LessThan(b.Amount)
		}
	case "description":
		less = func(a, b FlattenedTransaction) bool {
			return strings.ToLower(a.Description) < strings.ToLower(b.Description)
		}
	default:
		less = func(a, b FlattenedTransaction) bool {
			return a.Date.Before(b.Date)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		if ascending {
			return less(items[i], items[j])
		}
		return less(items[j], items[i])
	})
}

func paginate(items []FlattenedTransaction, query TransactionQuery) []FlattenedTransaction {
	limit := query.Limit
	if limit < 0 {
		return items
	}
	if limit == 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	page := query.Page
	if page <= 0 {
		page = 1
	}

	start := (page - 1) * limit
	if start >= len(items) {
		return []FlattenedTransaction{}
	}
	end := start + limit
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
