package entry

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType is the canonical two-valued transaction classification.
// Historical data contains several label spellings for the same two classes;
// NormalizeType folds all of them into the canonical form at the store boundary
// so nothing downstream ever branches on a raw label.
type TransactionType string

const (
	TypeIncome  TransactionType = "income"
	TypeExpense TransactionType = "expenses"
)

// legacyTypeLabels maps every label spelling observed in stored data to its
// canonical form. The map is applied on every read and every write.
var legacyTypeLabels = map[string]TransactionType{
	"income":   TypeIncome,
	"Income":   TypeIncome,
	"inbound":  TypeIncome,
	"expenses": TypeExpense,
	"expense":  TypeExpense,
	"Expense":  TypeExpense,
	"outbound": TypeExpense,
}

// NormalizeType resolves a raw type label to its canonical form. The second
// return value reports whether the label was recognized; unrecognized labels
// are returned unchanged so they stay visible in listings.
func NormalizeType(raw string) (TransactionType, bool) {
	if canonical, ok := legacyTypeLabels[raw]; ok {
		return canonical, true
	}
	return TransactionType(raw), false
}

// Recognized reports whether t is one of the two canonical classes.
func (t TransactionType) Recognized() bool {
	return t == TypeIncome || t == TypeExpense
}

// Transaction is one income or expense record inside an EntryGroup's ordered
// sequence. Its positional index within the sequence is the external mutation
// address; the UID is the stable identity assigned at append time.
type Transaction struct {
	UID         uuid.UUID
	Description string
	Type        TransactionType
	Amount      decimal.Decimal
	// AmountValid is false when the stored amount could not be parsed as a
	// decimal. Such transactions contribute zero to totals and are counted
	// separately instead of silently passing as a valid zero.
	AmountValid bool
	RawAmount   string
	// Date is zero when the transaction has no date of its own; the owning
	// group's date applies then.
	Date      time.Time
	UpdatedAt time.Time
}

// EntryGroup is the unit of storage: an ordered sequence of transactions owned
// by one project, plus a fallback date for transactions lacking their own.
type EntryGroup struct {
	ID           uuid.UUID
	ProjectID    uuid.UUID
	Transactions []Transaction
	Date         time.Time
	// Version is incremented on every write; Save refuses to overwrite a
	// group whose stored version differs from the one that was read.
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TransactionDate returns the effective date of the transaction at the given
// index: its own date when set, otherwise the group date.
func (g EntryGroup) TransactionDate(i int) time.Time {
	if i < 0 || i >= len(g.Transactions) {
		return g.Date
	}
	if g.Transactions[i].Date.IsZero() {
		return g.Date
	}
	return g.Transactions[i].Date
}

const maxDescriptionLength = 200

// TransactionFields is the validated input for creating or replacing a single
// transaction.
type TransactionFields struct {
	Description string
	Type        string
	Amount      decimal.Decimal
	Date        time.Time
}

// Validate checks the field constraints shared by every write path: non-empty
// bounded description, a recognized type label, and a positive amount.
func (f TransactionFields) Validate() error {
	if f.Description == "" {
		return &ValidationError{Field: "description", Reason: "description is required"}
	}
	if len(f.Description) > maxDescriptionLength {
		return &ValidationError{Field: "description", Reason: "description must be at most 200 characters"}
	}
	if _, ok := NormalizeType(f.Type); !ok {
		return &ValidationError{Field: "type", Reason: "type must be either income or expenses"}
	}
	if !f.Amount.IsPositive() {
		return &ValidationError{Field: "cost", Reason: "cost must be greater than 0"}
	}
	return nil
}

// toTransaction builds a Transaction from validated fields. The caller is
// responsible for calling Validate first.
func (f TransactionFields) toTransaction(uid uuid.UUID, now time.Time) Transaction {
	canonical, _ := NormalizeType(f.Type)
	return Transaction{
		UID:         uid,
		Description: f.Description,
		Type:        canonical,
		Amount:      f.Amount,
		AmountValid: true,
		Date:        f.Date,
		UpdatedAt:   now,
	}
}
