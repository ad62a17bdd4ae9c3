// Package provider decodes bank webhook payloads and normalizes them into
// drafts of canonical ledger transactions.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/baely/txnsync/internal/common/errors"
	"github.com/baely/txnsync/internal/ledger"
)

// Provider names a webhook source
type Provider string

const (
	Generic  Provider = "generic"
	Starling Provider = "starling"
	Monzo    Provider = "monzo"
	OFX      Provider = "ofx"
	Up       Provider = "up"
	CSV      Provider = "csv"
)

// UnknownPayee is used when a payload carries nothing to name the payee by
const UnknownPayee = "Unknown Payee"

// TopupPayee names balance top-ups
const TopupPayee = "Topup"

// Webhook is a decoded payload. It is implemented by *GenericWebhook,
// *StarlingWebhook, *MonzoWebhook, *OFXWebhook, *UpWebhook and *CSVWebhook
// only.
type Webhook interface {
	Provider() Provider
	isWebhook()
}

// Draft is a provider transaction translated into ledger terms, still
// referencing its account and payee by name.
type Draft struct {
	Raw           json.RawMessage
	AccountName   string
	Amount        decimal.Decimal
	OccurredAt    time.Time
	PayeeName     string
	InferCategory bool
	Memo          string
	Cleared       ledger.ClearedState
	Flag          ledger.Flag
	Reference     string
	Source        string
}

// Batch is the result of normalizing one payload
type Batch struct {
	Provider Provider
	// Single is set for providers that deliver one transaction per call
	Single bool
	Drafts []Draft
	// Notice explains an accepted payload that needs no ledger changes
	Notice string
}

// Kind classifies a provider error
type Kind int

const (
	KindValidation Kind = iota + 1
	KindEncoding
	KindUpstream
)

// Error is returned for payloads that cannot be normalized
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindEncoding:
		return errors.ErrEncoding
	case KindUpstream:
		return errors.ErrUnavailable
	}
	return errors.ErrInvalidInput
}

func invalid(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// Settings routes single-account providers and tunes memo output
type Settings struct {
	StarlingAccount    string
	MonzoAccount       string
	UpAccount          string
	CSVAccount         string
	SettlementCurrency string
	IncludeEmoji       bool
	IncludeTags        bool
	MemoTag            string
	// Up fetches transaction details for Up webhooks, which carry ids only
	Up UpFetcher
}

// DefaultSettings returns settings with the GBP settlement currency
func DefaultSettings() Settings {
	return Settings{
		SettlementCurrency: "GBP",
		MemoTag:            "[txnsync]",
	}
}

// Normalizer turns decoded webhooks into batches of drafts
type Normalizer struct {
	settings Settings
}

// NewNormalizer returns a Normalizer using settings
func NewNormalizer(settings Settings) *Normalizer {
	if settings.SettlementCurrency == "" {
		settings.SettlementCurrency = "GBP"
	}
	return &Normalizer{settings: settings}
}

// Normalize dispatches on the webhook variant
func (n *Normalizer) Normalize(ctx context.Context, wh Webhook) (Batch, error) {
	var (
		batch Batch
		err   error
	)
	switch w := wh.(type) {
	case *GenericWebhook:
		batch, err = n.normalizeGeneric(w)
	case *StarlingWebhook:
		batch, err = n.normalizeStarling(w)
	case *MonzoWebhook:
		batch, err = n.normalizeMonzo(w)
	case *OFXWebhook:
		batch, err = n.normalizeOFX(w)
	case *UpWebhook:
		batch, err = n.normalizeUp(ctx, w)
	case *CSVWebhook:
		batch, err = n.normalizeCSV(w)
	default:
		return Batch{}, invalid("Unsupported webhook: %T", wh)
	}
	if err != nil {
		return Batch{}, err
	}

	for _, d := range batch.Drafts {
		if err := checkText("payee", d.PayeeName); err != nil {
			return Batch{}, err
		}
		if err := checkText("memo", d.Memo); err != nil {
			return Batch{}, err
		}
	}
	return batch, nil
}

// single wraps one draft, turning a zero amount into a no-op notice
func single(p Provider, d Draft) Batch {
	if d.Amount.IsZero() {
		return Batch{Provider: p, Single: true, Notice: "Transaction amount is 0."}
	}
	return Batch{Provider: p, Single: true, Drafts: []Draft{d}}
}

// payeeName returns the first non-blank candidate, or UnknownPayee
func payeeName(candidates ...string) string {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return c
		}
	}
	return UnknownPayee
}

// conversion applies the foreign-currency convention: a memo note and an
// orange flag when currencies differ, cleared otherwise.
func conversion(d *Draft, localCurrency, settlementCurrency string, localAmount decimal.Decimal) {
	if localCurrency != "" && localCurrency != settlementCurrency {
		d.Memo = strings.TrimSpace(fmt.Sprintf("%s (%s %s)", d.Memo, localCurrency, localAmount.Abs().StringFixed(2)))
		d.Flag = ledger.FlagOrange
		return
	}
	d.Cleared = ledger.Cleared
}

// checkText rejects strings the ledger cannot display faithfully
func checkText(field, s string) error {
	if !utf8.ValidString(s) {
		return &Error{Kind: KindEncoding, Message: fmt.Sprintf("%s is not valid UTF-8: %q", field, s)}
	}
	for _, r := range s {
		if r == utf8.RuneError || r == 0x7f || (r < 0x20 && r != '\t' && r != '\n' && r != '\r') {
			return &Error{Kind: KindEncoding, Message: fmt.Sprintf("%s contains unsupported character %U: %q", field, r, s)}
		}
	}
	return nil
}

func checkPayload(body []byte) error {
	if !utf8.Valid(body) {
		return &Error{Kind: KindEncoding, Message: "payload is not valid UTF-8"}
	}
	return nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z0700",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
}

// dayFirstLayouts is for sources that write dates as dd/mm/yyyy
var dayFirstLayouts = []string{
	"02/01/2006",
	"2/1/2006",
	"02/01/06",
	"02-01-2006",
	"2006-01-02",
	time.RFC3339,
}

// parseTimestamp accepts the date and date-time shapes sent by providers.
// Slash dates are read month first.
func parseTimestamp(s string) (time.Time, error) {
	return parseLayouts(s, timestampLayouts)
}

// parseDayFirst reads slash dates day first
func parseDayFirst(s string) (time.Time, error) {
	return parseLayouts(s, dayFirstLayouts)
}

func parseLayouts(s string, layouts []string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("missing date")
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}
