package provider

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/baely/txnsync/internal/ledger"
)

var starlingTypes = map[string]bool{
	"TRANSACTION_CARD":               true,
	"TRANSACTION_FASTER_PAYMENT_IN":  true,
	"TRANSACTION_FASTER_PAYMENT_OUT": true,
	"TRANSACTION_DIRECT_DEBIT":       true,
}

// StarlingWebhook is a Starling transaction notification
type StarlingWebhook struct {
	Raw       json.RawMessage  `json:"-"`
	Timestamp string           `json:"timestamp"`
	Content   *StarlingContent `json:"content"`
}

// StarlingContent carries the transaction. Amounts are in major units.
type StarlingContent struct {
	Type           string          `json:"type"`
	TransactionUID string          `json:"transactionUid"`
	Amount         decimal.Decimal `json:"amount"`
	SourceCurrency string          `json:"sourceCurrency"`
	SourceAmount   decimal.Decimal `json:"sourceAmount"`
	CounterParty   string          `json:"counterParty"`
	Reference      string          `json:"reference"`
}

func (*StarlingWebhook) Provider() Provider { return Starling }
func (*StarlingWebhook) isWebhook() {}

// DecodeStarling validates the content type of a Starling notification
func DecodeStarling(body []byte) (*StarlingWebhook, error) {
	if err := checkPayload(body); err != nil {
		return nil, err
	}

	var wh StarlingWebhook
	if err := json.Unmarshal(body, &wh); err != nil {
		return nil, invalid("Malformed webhook payload: %v", err)
	}
	if wh.Content == nil || wh.Content.Type == "" {
		return nil, invalid("No webhook content type provided")
	}
	if !starlingTypes[wh.Content.Type] {
		return nil, invalid("Unsupported webhook type: %s", wh.Content.Type)
	}
	wh.Raw = body
	return &wh, nil
}

func (n *Normalizer) normalizeStarling(w *StarlingWebhook) (Batch, error) {
	c := w.Content
	if c.Amount.IsZero() {
		return single(Starling, Draft{}), nil
	}

	occurred, err := parseTimestamp(w.Timestamp)
	if err != nil {
		return Batch{}, invalid("timestamp: %v", err)
	}

	d := Draft{
		Raw:           w.Raw,
		AccountName:   n.settings.StarlingAccount,
		Amount:        c.Amount,
		OccurredAt:    occurred,
		PayeeName:     payeeName(c.CounterParty, c.Reference),
		InferCategory: c.CounterParty != "",
		Reference:     c.TransactionUID,
		Source:        ledger.SourceImported,
	}
	conversion(&d, c.SourceCurrency, n.settings.SettlementCurrency, c.SourceAmount)
	return single(Starling, d), nil
}
