package report

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ledgerlark/ledgerlark/pkg/entry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTransactions(t *testing.T) {
	renderer := NewCsvTransactionsRenderer()
	items := []FlattenedTransaction{
		{
			UID:         uuid.New(),
			Description: "Website redesign",
			Type:        entry.TypeIncome,
			Amount:      decimal.NewFromInt(1000),
			AmountValid: true,
			Date:        time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			UID:         uuid.New(),
			Description: "Stock photos",
			Type:        entry.TypeExpense,
			Amount:      decimal.RequireFromString("45.5"),
			AmountValid: true,
			Date:        time.Date(2025, 4, 3, 0, 0, 0, 0, time.UTC),
		},
	}

	csvOutput, err := renderer.RenderTransactions(items)

	require.NoError(t, err)
	expected := "Date,Description,Type,Amount\n" +
		"01/04/2025,Website redesign,income,1000.00\n" +
		"03/04/2025,Stock photos,expenses,45.50\n"
	assert.Equal(t, expected, csvOutput)
}

func TestRenderTransactions_InvalidAmountExportedRaw(t *testing.T) {
	renderer := NewCsvTransactionsRenderer()
	items := []FlattenedTransaction{
		{
			UID:         uuid.New(),
			Description: "broken",
			Type:        entry.TypeExpense,
			RawAmount:   "12abc",
			Date:        time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
	}

	csvOutput, err := renderer.RenderTransactions(items)

	require.NoError(t, err)
	assert.Contains(t, csvOutput, "01/04/2025,broken,expenses,12abc")
}

func TestRenderTransactions_EmptyListing(t *testing.T) {
	renderer := NewCsvTransactionsRenderer()

	csvOutput, err := renderer.RenderTransactions(nil)

	require.NoError(t, err)
	assert.Equal(t, "Date,Description,Type,Amount\n", csvOutput)
}
