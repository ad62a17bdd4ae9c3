package provider

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baely/txnsync/internal/ledger"
)

// GenericWebhook is the generic push format: {"transactions": [...]}
type GenericWebhook struct {
	Transactions []GenericTransaction
}

// GenericTransaction is one entry of a generic push
type GenericTransaction struct {
	Raw     json.RawMessage  `json:"-"`
	Account string           `json:"account"`
	Amount  *decimal.Decimal `json:"amount"`
	Created string           `json:"created"`
	Payee   string           `json:"payee"`
	Memo    *string          `json:"memo"`
}

func (*GenericWebhook) Provider() Provider { return Generic }
func (*GenericWebhook) isWebhook() {}

// DecodeGeneric validates the discriminator and shape of a generic push
func DecodeGeneric(body []byte) (*GenericWebhook, error) {
	items, err := decodeTransactionList(body)
	if err != nil {
		return nil, err
	}

	wh := &GenericWebhook{Transactions: make([]GenericTransaction, 0, len(items))}
	for i, raw := range items {
		var t GenericTransaction
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, invalid("transaction %d: %v", i, err)
		}
		if t.Amount == nil {
			return nil, invalid("transaction %d: missing amount", i)
		}
		t.Raw = raw
		wh.Transactions = append(wh.Transactions, t)
	}
	return wh, nil
}

// decodeTransactionList returns the items of a {"transactions": [...]}
// payload, rejecting any other top-level shape.
func decodeTransactionList(body []byte) ([]json.RawMessage, error) {
	if err := checkPayload(body); err != nil {
		return nil, err
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, invalid("Malformed webhook payload: %v", err)
	}
	raw, ok := top["transactions"]
	if !ok {
		return nil, invalid("Unsupported webhook type: %s", describeKeys(top))
	}

	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, invalid("transactions must be a list")
	}
	return items, nil
}

func describeKeys(m map[string]json.RawMessage) string {
	if len(m) == 0 {
		return "none"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return strings.Join(keys, ", ")
}

func (n *Normalizer) normalizeGeneric(w *GenericWebhook) (Batch, error) {
	batch := Batch{Provider: Generic}
	for i, t := range w.Transactions {
		if t.Amount.IsZero() {
			continue
		}

		occurred, err := parseTimestamp(t.Created)
		if err != nil {
			return Batch{}, invalid("transaction %d: %v", i, err)
		}

		memo := "n/a"
		if t.Memo != nil {
			memo = *t.Memo
		}

		batch.Drafts = append(batch.Drafts, Draft{
			Raw:           t.Raw,
			AccountName:   t.Account,
			Amount:        *t.Amount,
			OccurredAt:    occurred,
			PayeeName:     payeeName(t.Payee),
			InferCategory: true,
			Memo:          strings.TrimSpace(fmt.Sprintf("%s %s", memo, n.settings.MemoTag)),
			Cleared:       ledger.Cleared,
			Source:        ledger.SourceImported,
		})
	}
	return batch, nil
}
