package token

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"

	"ticket-ledger/internal/config"
	"ticket-ledger/internal/models"
)

// Client talks to the external fungible-token service that holds the actual
// balances. The ledger never moves value itself; it asks the token service to
// transfer out of its custodial balance and reacts to inbound transfer
// notifications.
type Client struct {
	baseURL         string
	contractAddress string
	scale           int64
	httpClient      *http.Client
}

func NewClient(cfg config.TokenConfig, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:         cfg.ServiceURL,
		contractAddress: cfg.ContractAddress,
		scale:           int64(math.Pow10(cfg.Decimals)),
		httpClient:      httpClient,
	}
}

// ContractAddress is the ledger's own custodial address at the token service.
func (c *Client) ContractAddress() string {
	return c.contractAddress
}

// Scale is 10^decimals, the factor between whole tokens and the smallest unit.
func (c *Client) Scale() int64 {
	return c.scale
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

type transferResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Transfer moves amount (smallest unit) between token accounts. The token
// service enforces balances; a declined transfer surfaces as ErrUpstreamCall.
func (c *Client) Transfer(ctx context.Context, from, to string, amount int64) error {
	body, err := json.Marshal(transferRequest{From: from, To: to, Amount: amount})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/token/transfer", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", models.ErrUpstreamCall, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: token service returned %d", models.ErrUpstreamCall, resp.StatusCode)
	}

	var result transferResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("%w: decode response: %v", models.ErrUpstreamCall, err)
	}
	if !result.Success {
		return fmt.Errorf("%w: %s", models.ErrUpstreamCall, result.Error)
	}
	return nil
}
