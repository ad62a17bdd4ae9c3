package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/baely/txnsync/internal/ledger"
)

const monzoTransactionCreated = "transaction.created"

// MonzoWebhook is a Monzo webhook event
type MonzoWebhook struct {
	Raw  json.RawMessage   `json:"-"`
	Type string            `json:"type"`
	Data *MonzoTransaction `json:"data"`
}

// MonzoTransaction is the transaction carried by a transaction.created
// event. Amounts are in minor units.
type MonzoTransaction struct {
	ID            string             `json:"id"`
	Created       string             `json:"created"`
	Description   string             `json:"description"`
	Amount        decimal.Decimal    `json:"amount"`
	Currency      string             `json:"currency"`
	LocalAmount   decimal.Decimal    `json:"local_amount"`
	LocalCurrency string             `json:"local_currency"`
	DeclineReason *string            `json:"decline_reason"`
	Merchant      *MonzoMerchant     `json:"merchant"`
	Counterparty  *MonzoCounterparty `json:"counterparty"`
	Metadata      map[string]any     `json:"metadata"`
}

// MonzoMerchant represents a merchant in a Monzo transaction
type MonzoMerchant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Emoji    string `json:"emoji"`
	Category string `json:"category"`
	Metadata struct {
		SuggestedTags string `json:"suggested_tags"`
	} `json:"metadata"`
}

// MonzoCounterparty is the other side of a peer-to-peer payment
type MonzoCounterparty struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

func (*MonzoWebhook) Provider() Provider { return Monzo }
func (*MonzoWebhook) isWebhook() {}

// DecodeMonzo validates the event type of a Monzo webhook
func DecodeMonzo(body []byte) (*MonzoWebhook, error) {
	if err := checkPayload(body); err != nil {
		return nil, err
	}

	var wh MonzoWebhook
	if err := json.Unmarshal(body, &wh); err != nil {
		return nil, invalid("Malformed webhook payload: %v", err)
	}
	if wh.Type != monzoTransactionCreated {
		return nil, invalid("Unsupported webhook type: %s", wh.Type)
	}
	if wh.Data == nil {
		return nil, invalid("Webhook contains no transaction data")
	}
	wh.Raw = body
	return &wh, nil
}

func (n *Normalizer) normalizeMonzo(w *MonzoWebhook) (Batch, error) {
	t := w.Data
	if t.DeclineReason != nil {
		return Batch{
			Provider: Monzo,
			Single:   true,
			Notice:   fmt.Sprintf("Ignoring declined transaction (%s)", *t.DeclineReason),
		}, nil
	}

	amount := t.Amount.Shift(-2)
	if amount.IsZero() {
		return single(Monzo, Draft{}), nil
	}

	occurred, err := parseTimestamp(t.Created)
	if err != nil {
		return Batch{}, invalid("created: %v", err)
	}

	d := Draft{
		Raw:         w.Raw,
		AccountName: n.settings.MonzoAccount,
		Amount:      amount,
		OccurredAt:  occurred,
		Reference:   t.ID,
		Source:      ledger.SourceImported,
	}

	if t.Merchant != nil && t.Merchant.Name != "" {
		d.PayeeName = t.Merchant.Name
		d.InferCategory = true
	} else {
		d.PayeeName = monzoPeerName(t)
	}

	var memo []string
	if m := t.Merchant; m != nil {
		if n.settings.IncludeEmoji && m.Emoji != "" {
			memo = append(memo, m.Emoji)
		}
		if n.settings.IncludeTags && m.Metadata.SuggestedTags != "" {
			memo = append(memo, m.Metadata.SuggestedTags)
		}
	}
	d.Memo = strings.Join(memo, " ")

	conversion(&d, t.LocalCurrency, t.Currency, t.LocalAmount.Shift(-2))
	return single(Monzo, d), nil
}

// monzoPeerName names the payee of a transaction without a merchant
func monzoPeerName(t *MonzoTransaction) string {
	if c := t.Counterparty; c != nil {
		return payeeName(c.Name, c.Number, t.Description)
	}
	if isTopup(t.Metadata["is_topup"]) {
		return TopupPayee
	}
	return payeeName(t.Description)
}

func isTopup(v any) bool {
	switch v := v.(type) {
	case string:
		return v == "true"
	case bool:
		return v
	}
	return false
}
