package provider

import (
	"context"
	"encoding/json"

	"github.com/baely/balance/pkg/model"
	"github.com/shopspring/decimal"

	"github.com/baely/txnsync/internal/ledger"
)

// Up settles every transaction in Australian dollars
const upCurrency = "AUD"

var upEventTypes = map[string]bool{
	"TRANSACTION_CREATED": true,
	"TRANSACTION_SETTLED": true,
}

// UpWebhook is an Up webhook event. It names the transaction only; the
// details are fetched when the event is normalized.
type UpWebhook struct {
	Raw           json.RawMessage
	EventType     string
	TransactionID string
}

func (*UpWebhook) Provider() Provider { return Up }
func (*UpWebhook) isWebhook() {}

type upEventAttributes struct {
	Data struct {
		Attributes struct {
			EventType string `json:"eventType"`
		} `json:"attributes"`
	} `json:"data"`
}

// DecodeUp validates that an Up event announces a new or settled
// transaction
func DecodeUp(body []byte) (*UpWebhook, error) {
	if err := checkPayload(body); err != nil {
		return nil, err
	}

	var event model.WebhookEventCallback
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, invalid("Malformed webhook payload: %v", err)
	}
	var attrs upEventAttributes
	if err := json.Unmarshal(body, &attrs); err != nil {
		return nil, invalid("Malformed webhook payload: %v", err)
	}

	eventType := attrs.Data.Attributes.EventType
	if eventType == "" {
		return nil, invalid("No webhook event type provided")
	}
	if !upEventTypes[eventType] {
		return nil, invalid("Unsupported webhook type: %s", eventType)
	}

	related := event.Data.Relationships.Transaction
	if related == nil || related.Data.Id == "" {
		return nil, invalid("Event contains no transaction details")
	}
	return &UpWebhook{Raw: body, EventType: eventType, TransactionID: related.Data.Id}, nil
}

func (n *Normalizer) normalizeUp(ctx context.Context, w *UpWebhook) (Batch, error) {
	if n.settings.Up == nil {
		return Batch{}, &Error{Kind: KindUpstream, Message: "Up client is not configured"}
	}

	tx, err := n.settings.Up.GetTransaction(ctx, w.TransactionID)
	if err != nil {
		return Batch{}, &Error{Kind: KindUpstream, Message: "Failed to retrieve Up transaction " + w.TransactionID, Err: err}
	}

	attrs := tx.Resource.Attributes
	amount := decimal.New(int64(attrs.Amount.ValueInBaseUnits), -2)
	if amount.IsZero() {
		return single(Up, Draft{}), nil
	}

	memo := ""
	if attrs.RawText != nil && *attrs.RawText != attrs.Description {
		memo = *attrs.RawText
	}

	d := Draft{
		Raw:           w.Raw,
		AccountName:   n.settings.UpAccount,
		Amount:        amount,
		OccurredAt:    attrs.CreatedAt,
		PayeeName:     payeeName(attrs.Description),
		InferCategory: attrs.Description != "",
		Memo:          memo,
		Reference:     w.TransactionID,
		Source:        ledger.SourceImported,
	}
	if f := tx.ForeignAmount; f != nil {
		conversion(&d, f.CurrencyCode, upCurrency, decimal.New(f.ValueInBaseUnits, -2))
	} else {
		conversion(&d, "", upCurrency, decimal.Zero)
	}
	return single(Up, d), nil
}
