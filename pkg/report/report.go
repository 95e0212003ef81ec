// Package report computes financial aggregates over a project's entry groups:
// income/expense/net totals, monthly trend buckets, and the flattened
// transaction listing the dashboard renders. All monetary math is done in
// fixed-precision decimals so repeated aggregations of the same data always
// produce identical results.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerlark/ledgerlark/pkg/entry"
	"github.com/shopspring/decimal"
)

// Totals is the income/expense/net summary of a set of entry groups.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
	Net     decimal.Decimal
	// InvalidAmounts counts transactions whose stored amount could not be
	// parsed. They contribute zero to the totals but are reported here
	// instead of silently passing as valid zeros.
	InvalidAmounts int
}

// MonthBucket is one month of the trend rollup.
type MonthBucket struct {
	Year    int
	Month   time.Month
	Income  decimal.Decimal
	Expense decimal.Decimal
	Profit  decimal.Decimal
}

// Label renders the bucket key in the YYYY-MM form the chart expects.
func (b MonthBucket) Label() string {
	return fmt.Sprintf("%04d-%02d", b.Year, int(b.Month))
}

// FlattenedTransaction is one transaction annotated with its (group, index)
// address, the view the dashboard's transaction table is built from.
type FlattenedTransaction struct {
	GroupID     uuid.UUID
	Index       int
	UID         uuid.UUID
	Description string
	Type        entry.TransactionType
	Amount      decimal.Decimal
	AmountValid bool
	RawAmount   string
	Date        time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ComputeTotals partitions every transaction in the given groups by its
// canonical type. Transactions with unrecognized types contribute to neither
// side. The input is never mutated.
func ComputeTotals(groups []entry.EntryGroup) Totals {
	totals := Totals{
		Income:  decimal.Zero,
		Expense: decimal.Zero,
	}
	for _, group := range groups {
		for _, tx := range group.Transactions {
			if !tx.AmountValid {
				totals.InvalidAmounts++
				continue
			}
			switch tx.Type {
			case entry.TypeIncome:
				totals.Income = totals.Income.Add(tx.Amount)
			case entry.TypeExpense:
				totals.Expense = totals.Expense.Add(tx.Amount)
			}
		}
	}
	totals.Net = totals.Income.Sub(totals.Expense)
	return totals
}

// Flatten turns the nested group documents into the per-transaction listing,
// preserving each transaction's positional address within its group. Every
// transaction appears, including ones with unrecognized types or unparseable
// amounts.
func Flatten(groups []entry.EntryGroup) []FlattenedTransaction {
	var flattened []FlattenedTransaction
	for _, group := range groups {
		for i, tx := range group.Transactions {
			updatedAt := tx.UpdatedAt
			if updatedAt.IsZero() {
				updatedAt = group.UpdatedAt
			}
			flattened = append(flattened, FlattenedTransaction{
				GroupID:     group.ID,
				Index:       i,
				UID:         tx.UID,
				Description: tx.Description,
				Type:        tx.Type,
				Amount:      tx.Amount,
				AmountValid: tx.AmountValid,
				RawAmount:   tx.RawAmount,
				Date:        group.TransactionDate(i),
				CreatedAt:   group.CreatedAt,
				UpdatedAt:   updatedAt,
			})
		}
	}
	return flattened
}

// MonthlyTrend buckets transactions by the calendar month of their effective
// date and emits the buckets in ascending chronological order. Months without
// transactions are omitted. The result is independent of the input order.
func MonthlyTrend(groups []entry.EntryGroup) []MonthBucket {
	type monthKey struct {
		year  int
		month time.Month
	}
	buckets := map[monthKey]*MonthBucket{}

	for _, group := range groups {
		for i, tx := range group.Transactions {
			if !tx.AmountValid {
				continue
			}
			date := group.TransactionDate(i)
			key := monthKey{year: date.Year(), month: date.Month()}
			bucket, exists := buckets[key]
			if !exists {
				bucket = &MonthBucket{
					Year:    key.year,
					Month:   key.month,
					Income:  decimal.Zero,
					Expense: decimal.Zero,
				}
				buckets[key] = bucket
			}
			switch tx.Type {
			case entry.TypeIncome:
				bucket.Income = bucket.Income.Add(tx.Amount)
			case entry.TypeExpense:
				bucket.Expense = bucket.Expense.Add(tx.Amount)
			}
		}
	}

	trend := make([]MonthBucket, 0, len(buckets))
	for _, bucket := range buckets {
		bucket.Profit = bucket.Income.Sub(bucket.Expense)
		trend = append(trend, *bucket)
	}
	sort.Slice(trend, func(i, j int) bool {
		if trend[i].Year != trend[j].Year {
			return trend[i].Year < trend[j].Year
		}
		return trend[i].Month < trend[j].Month
	})
	return trend
}
