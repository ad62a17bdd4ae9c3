package provider

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/baely/txnsync/internal/ledger"
)

// OFXWebhook is a batch of OFX statement transactions for one account
type OFXWebhook struct {
	Account      string
	Transactions []OFXTransaction
}

// OFXTransaction mirrors the fields of an OFX STMTTRN aggregate
type OFXTransaction struct {
	Raw    json.RawMessage  `json:"-"`
	FITID  string           `json:"fitid"`
	Type   string           `json:"trntype"`
	Posted string           `json:"dtposted"`
	Amount *decimal.Decimal `json:"trnamt"`
	Name   string           `json:"name"`
	Memo   string           `json:"memo"`
}

func (*OFXWebhook) Provider() Provider { return OFX }
func (*OFXWebhook) isWebhook() {}

// DecodeOFX validates an OFX batch: {"account": "...", "transactions": [...]}
func DecodeOFX(body []byte) (*OFXWebhook, error) {
	items, err := decodeTransactionList(body)
	if err != nil {
		return nil, err
	}

	var head struct {
		Account string `json:"account"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, invalid("account must be a string")
	}
	if strings.TrimSpace(head.Account) == "" {
		return nil, invalid("No account provided")
	}

	wh := &OFXWebhook{Account: head.Account, Transactions: make([]OFXTransaction, 0, len(items))}
	for i, raw := range items {
		var t OFXTransaction
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, invalid("transaction %d: %v", i, err)
		}
		if t.Amount == nil {
			return nil, invalid("transaction %d: missing trnamt", i)
		}
		t.Raw = raw
		wh.Transactions = append(wh.Transactions, t)
	}
	return wh, nil
}

func (n *Normalizer) normalizeOFX(w *OFXWebhook) (Batch, error) {
	batch := Batch{Provider: OFX}
	for i, t := range w.Transactions {
		if t.Amount.IsZero() {
			continue
		}

		posted, err := parseOFXDate(t.Posted)
		if err != nil {
			return Batch{}, invalid("transaction %d: %v", i, err)
		}

		// memo stands in for the payee when name is absent
		memo := t.Memo
		if t.Name == "" {
			memo = ""
		}

		batch.Drafts = append(batch.Drafts, Draft{
			Raw:           t.Raw,
			AccountName:   w.Account,
			Amount:        *t.Amount,
			OccurredAt:    posted,
			PayeeName:     payeeName(t.Name, t.Memo),
			InferCategory: true,
			Memo:          memo,
			Cleared:       ledger.Cleared,
			Reference:     t.FITID,
			Source:        ledger.SourceImported,
		})
	}
	return batch, nil
}

// parseOFXDate parses YYYYMMDD[HHMMSS[.XXX]][[gmt offset[:tz name]]]
func parseOFXDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing dtposted")
	}

	loc := time.UTC
	if i := strings.IndexByte(s, '['); i >= 0 {
		zone, err := parseOFXZone(strings.TrimSuffix(s[i+1:], "]"))
		if err != nil {
			return time.Time{}, fmt.Errorf("dtposted %q: %w", s, err)
		}
		loc = zone
		s = s[:i]
	}
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}

	var layout string
	switch len(s) {
	case 8:
		layout = "20060102"
	case 12:
		layout = "200601021504"
	case 14:
		layout = "20060102150405"
	default:
		return time.Time{}, fmt.Errorf("unrecognised dtposted %q", s)
	}
	return time.ParseInLocation(layout, s, loc)
}

func parseOFXZone(z string) (*time.Location, error) {
	offset, name, _ := strings.Cut(z, ":")
	hours, err := strconv.ParseFloat(offset, 64)
	if err != nil {
		return nil, fmt.Errorf("bad offset %q", offset)
	}
	if name == "" {
		name = "GMT" + offset
	}
	return time.FixedZone(name, int(hours*3600)), nil
}
