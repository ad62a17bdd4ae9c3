package provider

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baely/txnsync/internal/common/errors"
)

func TestParseOFXDate(t *testing.T) {
	est := time.FixedZone("EST", -5*3600)

	tests := []struct {
		input string
		want  time.Time
	}{
		{"20240105", time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)},
		{"202401051230", time.Date(2024, 1, 5, 12, 30, 0, 0, time.UTC)},
		{"20240105123045", time.Date(2024, 1, 5, 12, 30, 45, 0, time.UTC)},
		{"20240105123045.000", time.Date(2024, 1, 5, 12, 30, 45, 0, time.UTC)},
		{"20240105233000.000[-5:EST]", time.Date(2024, 1, 5, 23, 30, 0, 0, est)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := parseOFXDate(tt.input)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}

func TestParseOFXDateKeepsLocalDay(t *testing.T) {
	got, err := parseOFXDate("20240105233000[-5:EST]")
	require.NoError(t, err)
	y, m, d := got.Date()
	assert.Equal(t, 2024, y)
	assert.Equal(t, time.January, m)
	assert.Equal(t, 5, d)
}

func TestParseOFXDateErrors(t *testing.T) {
	for _, input := range []string{"", "2024", "20240105[x]"} {
		_, err := parseOFXDate(input)
		assert.Error(t, err, input)
	}
}

func TestDecodeOFXValidation(t *testing.T) {
	_, err := DecodeOFX([]byte(`{"type":"Meh"}`))
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = DecodeOFX([]byte(`{"transactions":[]}`))
	assert.EqualError(t, err, "No account provided")

	_, err = DecodeOFX([]byte(`{"account":"Current","transactions":[{"name":"x"}]}`))
	assert.EqualError(t, err, "transaction 0: missing trnamt")
}

func TestNormalizeOFX(t *testing.T) {
	wh, err := DecodeOFX([]byte(`{"account":"Current","transactions":[
		{"fitid":"F1","trntype":"DEBIT","dtposted":"20240105","trnamt":"-42.10","name":"TESCO STORES","memo":"CARD 1234"},
		{"fitid":"F2","trntype":"CREDIT","dtposted":"20240106","trnamt":"100.00","memo":"SALARY"},
		{"fitid":"F3","trntype":"OTHER","dtposted":"20240106","trnamt":"0"}
	]}`))
	require.NoError(t, err)
	assert.Equal(t, OFX, wh.Provider())

	batch, err := NewNormalizer(DefaultSettings()).Normalize(context.Background(), wh)
	require.NoError(t, err)
	require.Len(t, batch.Drafts, 2)

	first := batch.Drafts[0]
	assert.Equal(t, "Current", first.AccountName)
	assert.Equal(t, "TESCO STORES", first.PayeeName)
	assert.Equal(t, "CARD 1234", first.Memo)
	assert.Equal(t, "F1", first.Reference)
	assert.Equal(t, "-42.1", first.Amount.String())

	second := batch.Drafts[1]
	assert.Equal(t, "SALARY", second.PayeeName)
	assert.Empty(t, second.Memo)
}
