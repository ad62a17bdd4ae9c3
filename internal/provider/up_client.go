package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/baely/balance/pkg/model"

	"github.com/baely/txnsync/internal/common/errors"
)

const upBaseURI = "https://api.up.com.au/api/v1/"

// UpMoney is an amount in the minor units of its currency
type UpMoney struct {
	CurrencyCode     string `json:"currencyCode"`
	ValueInBaseUnits int64  `json:"valueInBaseUnits"`
}

// UpTransaction is a fetched Up transaction. ForeignAmount is set when it
// was made in another currency.
type UpTransaction struct {
	Resource      model.TransactionResource
	ForeignAmount *UpMoney
}

// UpFetcher retrieves Up transactions by id
type UpFetcher interface {
	GetTransaction(ctx context.Context, transactionID string) (UpTransaction, error)
}

// UpClient handles API interactions with Up
type UpClient struct {
	accessToken string
	baseURI     string
	client      *http.Client
}

// NewUpClient creates a new client for the Up API
func NewUpClient(accessToken string) *UpClient {
	return &UpClient{
		accessToken: accessToken,
		baseURI:     upBaseURI,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *UpClient) request(ctx context.Context, endpoint string, ret interface{}) error {
	uri := fmt.Sprintf("%s%s", c.baseURI, endpoint)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.accessToken))

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to execute request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status: %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(ret); err != nil {
		return errors.Wrap(err, "failed to decode response")
	}
	return nil
}

type upForeignAmount struct {
	Data struct {
		Attributes struct {
			ForeignAmount *UpMoney `json:"foreignAmount"`
		} `json:"attributes"`
	} `json:"data"`
}

// GetTransaction retrieves transaction details from Up
func (c *UpClient) GetTransaction(ctx context.Context, transactionID string) (UpTransaction, error) {
	var body json.RawMessage
	if err := c.request(ctx, fmt.Sprintf("transactions/%s", transactionID), &body); err != nil {
		return UpTransaction{}, err
	}

	var resp model.GetTransactionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return UpTransaction{}, errors.Wrap(err, "failed to decode response")
	}
	var foreign upForeignAmount
	if err := json.Unmarshal(body, &foreign); err != nil {
		return UpTransaction{}, errors.Wrap(err, "failed to decode response")
	}
	return UpTransaction{Resource: resp.Data, ForeignAmount: foreign.Data.Attributes.ForeignAmount}, nil
}
