package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baely/txnsync/internal/common/errors"
	"github.com/baely/txnsync/internal/ledger"
)

const upEvent = `{"data":{"type":"webhook-events","id":"evt-1",
	"attributes":{"eventType":"TRANSACTION_CREATED"},
	"relationships":{"transaction":{"data":{"type":"transactions","id":"up-tx-1"}}}}}`

type fakeUp struct {
	GetTransactionFunc func(ctx context.Context, transactionID string) (UpTransaction, error)
}

func (f *fakeUp) GetTransaction(ctx context.Context, transactionID string) (UpTransaction, error) {
	return f.GetTransactionFunc(ctx, transactionID)
}

func upTransaction(description string, cents int, raw *string) UpTransaction {
	var tx UpTransaction
	tx.Resource.Attributes.Description = description
	tx.Resource.Attributes.Amount.ValueInBaseUnits = cents
	tx.Resource.Attributes.CreatedAt = time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	tx.Resource.Attributes.RawText = raw
	return tx
}

func upSettings(tx UpTransaction) Settings {
	settings := DefaultSettings()
	settings.UpAccount = "Up Spending"
	settings.Up = &fakeUp{GetTransactionFunc: func(ctx context.Context, id string) (UpTransaction, error) {
		return tx, nil
	}}
	return settings
}

func TestDecodeUp(t *testing.T) {
	wh, err := DecodeUp([]byte(upEvent))
	require.NoError(t, err)
	assert.Equal(t, "up-tx-1", wh.TransactionID)
	assert.Equal(t, "TRANSACTION_CREATED", wh.EventType)

	wh, err = DecodeUp([]byte(`{"data":{"attributes":{"eventType":"TRANSACTION_SETTLED"},
		"relationships":{"transaction":{"data":{"id":"up-tx-2"}}}}}`))
	require.NoError(t, err)
	assert.Equal(t, "up-tx-2", wh.TransactionID)
}

func TestDecodeUpRejects(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"no event type", `{"data":{"relationships":{"transaction":{"data":{"id":"up-tx-1"}}}}}`, "No webhook event type provided"},
		{"deleted", `{"data":{"attributes":{"eventType":"TRANSACTION_DELETED"},
			"relationships":{"transaction":{"data":{"id":"up-tx-1"}}}}}`, "Unsupported webhook type: TRANSACTION_DELETED"},
		{"ping", `{"data":{"attributes":{"eventType":"PING"}}}`, "Unsupported webhook type: PING"},
		{"no transaction", `{"data":{"attributes":{"eventType":"TRANSACTION_CREATED"}}}`, "Event contains no transaction details"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeUp([]byte(tt.body))
			assert.EqualError(t, err, tt.message)
			assert.True(t, errors.Is(err, errors.ErrInvalidInput))
		})
	}
}

func TestNormalizeUp(t *testing.T) {
	raw := "CHIA CHIA MELBOURNE"
	settings := DefaultSettings()
	settings.UpAccount = "Up Spending"
	settings.Up = &fakeUp{GetTransactionFunc: func(ctx context.Context, id string) (UpTransaction, error) {
		assert.Equal(t, "up-tx-1", id)
		return upTransaction("Chia Chia", -550, &raw), nil
	}}

	wh, err := DecodeUp([]byte(upEvent))
	require.NoError(t, err)
	batch, err := NewNormalizer(settings).Normalize(context.Background(), wh)
	require.NoError(t, err)

	require.Len(t, batch.Drafts, 1)
	d := batch.Drafts[0]
	assert.Equal(t, "Up Spending", d.AccountName)
	assert.Equal(t, "-5.5", d.Amount.String())
	assert.Equal(t, "Chia Chia", d.PayeeName)
	assert.Equal(t, raw, d.Memo)
	assert.Equal(t, "up-tx-1", d.Reference)
	assert.Equal(t, ledger.Cleared, d.Cleared)
	assert.Empty(t, d.Flag)
}

func TestNormalizeUpForeignAmount(t *testing.T) {
	tx := upTransaction("Tokyo Ramen", -1250, nil)
	tx.ForeignAmount = &UpMoney{CurrencyCode: "JPY", ValueInBaseUnits: -120000}

	wh, err := DecodeUp([]byte(upEvent))
	require.NoError(t, err)
	batch, err := NewNormalizer(upSettings(tx)).Normalize(context.Background(), wh)
	require.NoError(t, err)

	require.Len(t, batch.Drafts, 1)
	d := batch.Drafts[0]
	assert.Equal(t, "-12.5", d.Amount.String())
	assert.Equal(t, "(JPY 1200.00)", d.Memo)
	assert.Equal(t, ledger.FlagOrange, d.Flag)
	assert.Empty(t, d.Cleared)
}

func TestNormalizeUpFetchFailure(t *testing.T) {
	settings := DefaultSettings()
	settings.Up = &fakeUp{GetTransactionFunc: func(ctx context.Context, id string) (UpTransaction, error) {
		return UpTransaction{}, errors.New("request failed with status: 401")
	}}

	wh, err := DecodeUp([]byte(upEvent))
	require.NoError(t, err)
	_, err = NewNormalizer(settings).Normalize(context.Background(), wh)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))

	_, err = NewNormalizer(DefaultSettings()).Normalize(context.Background(), wh)
	assert.EqualError(t, err, "Up client is not configured")
}

func TestUpClientGetTransaction(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/transactions/up-tx-1", r.URL.Path)
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":{"attributes":{"description":"Chia Chia","amount":{"valueInBaseUnits":-550},
			"foreignAmount":{"currencyCode":"NZD","valueInBaseUnits":-600}}}}`))
	}))
	defer srv.Close()

	c := NewUpClient("token")
	c.baseURI = srv.URL + "/"

	tx, err := c.GetTransaction(context.Background(), "up-tx-1")
	require.NoError(t, err)
	assert.Equal(t, "Chia Chia", tx.Resource.Attributes.Description)
	assert.Equal(t, -550, tx.Resource.Attributes.Amount.ValueInBaseUnits)
	require.NotNil(t, tx.ForeignAmount)
	assert.Equal(t, UpMoney{CurrencyCode: "NZD", ValueInBaseUnits: -600}, *tx.ForeignAmount)
}

func TestUpClientWithoutForeignAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"attributes":{"description":"Chia Chia","amount":{"valueInBaseUnits":-550},"foreignAmount":null}}}`))
	}))
	defer srv.Close()

	c := NewUpClient("token")
	c.baseURI = srv.URL + "/"

	tx, err := c.GetTransaction(context.Background(), "up-tx-1")
	require.NoError(t, err)
	assert.Nil(t, tx.ForeignAmount)
}

func TestUpClientStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewUpClient("token")
	c.baseURI = srv.URL + "/"

	_, err := c.GetTransaction(context.Background(), "up-tx-1")
	assert.EqualError(t, err, "request failed with status: 401")
}
