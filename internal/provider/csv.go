package provider

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baely/txnsync/internal/ledger"
)

var csvColumns = []string{"date", "description", "amount"}

// CSVWebhook is a bank statement export posted as CSV. Every row belongs
// to the configured CSV account.
type CSVWebhook struct {
	Rows []CSVRow
}

// CSVRow is one statement line. Dates are written day first.
type CSVRow struct {
	Raw         json.RawMessage
	Date        string
	Description string
	Amount      decimal.Decimal
}

func (*CSVWebhook) Provider() Provider { return CSV }
func (*CSVWebhook) isWebhook() {}

// DecodeCSV reads a statement with a header row naming at least the date,
// description and amount columns.
func DecodeCSV(body []byte) (*CSVWebhook, error) {
	if err := checkPayload(body); err != nil {
		return nil, err
	}

	reader := csv.NewReader(bytes.NewReader(body))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, invalid("Malformed CSV payload: %v", err)
	}
	if len(records) == 0 {
		return nil, invalid("CSV payload has no header row")
	}

	index := make(map[string]int)
	for i, h := range records[0] {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, col := range csvColumns {
		if _, ok := index[col]; !ok {
			return nil, invalid("CSV payload is missing the %s column", col)
		}
	}

	wh := &CSVWebhook{}
	for i, record := range records[1:] {
		rowNum := i + 2
		fields := make(map[string]string, len(csvColumns))
		for _, col := range csvColumns {
			if index[col] >= len(record) {
				return nil, invalid("row %d: not enough fields", rowNum)
			}
			fields[col] = strings.TrimSpace(record[index[col]])
		}

		amount, err := decimal.NewFromString(fields["amount"])
		if err != nil {
			return nil, invalid("row %d: invalid amount %q", rowNum, fields["amount"])
		}
		raw, err := json.Marshal(fields)
		if err != nil {
			return nil, invalid("row %d: %v", rowNum, err)
		}

		wh.Rows = append(wh.Rows, CSVRow{
			Raw:         raw,
			Date:        fields["date"],
			Description: fields["description"],
			Amount:      amount,
		})
	}
	return wh, nil
}

func (n *Normalizer) normalizeCSV(w *CSVWebhook) (Batch, error) {
	if n.settings.CSVAccount == "" {
		return Batch{}, invalid("No CSV account configured")
	}

	batch := Batch{Provider: CSV}
	for i, row := range w.Rows {
		if row.Amount.IsZero() {
			continue
		}

		occurred, err := parseDayFirst(row.Date)
		if err != nil {
			return Batch{}, invalid("row %d: %v", i+2, err)
		}

		batch.Drafts = append(batch.Drafts, Draft{
			Raw:           row.Raw,
			AccountName:   n.settings.CSVAccount,
			Amount:        row.Amount,
			OccurredAt:    occurred,
			PayeeName:     payeeName(row.Description),
			InferCategory: true,
			Cleared:       ledger.Cleared,
			Source:        ledger.SourceImported,
		})
	}
	return batch, nil
}
