package report

import (
	"bytes"
	"encoding/csv"

	log "github.com/sirupsen/logrus"
)

// TransactionsRenderer renders a flattened listing into an export format.
type TransactionsRenderer interface {
	RenderTransactions(items []FlattenedTransaction) (string, error)
}

type CsvTransactionsRendererImpl struct {
}

func NewCsvTransactionsRenderer() *CsvTransactionsRendererImpl {
	return &CsvTransactionsRendererImpl{}
}

func (t *CsvTransactionsRendererImpl) RenderTransactions(items []FlattenedTransaction) (string, error) {
	data := make([][]string, 0, len(items)+1)
	data = append(data, []string{"Date", "Description", "Type", "Amount"})

	for _, item := range items {
		amount := item.Amount.StringFixed(2)
		if !item.AmountValid {
			// Export the broken original rather than a fabricated zero.
			amount = item.RawAmount
		}
		data = append(data, []string{
			item.Date.Format("02/01/2006"),
			item.Description,
			string(item.Type),
			amount,
		})
	}

	var b bytes.Buffer
	writer := csv.NewWriter(&b)
	for _, row := range data {
		err := writer.Write(row)
		if err != nil {
			log.Errorf("Error writing to csv: %v", err)
			return "", err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		log.Errorf("Error writing to csv: %v", err)
		return "", err
	}

	return b.String(), nil
}
