package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"namemint/internal/platform/config"
	"namemint/pkg/domain"
	"namemint/pkg/platform/sentinel"
)

// HTTPClient talks JSON to the ledger oracle:
//
//	GET  /transfers/{blockIndex}      -> Transfer | 404
//	GET  /accounts/{account}/balance  -> {"amount": n}
//	POST /transfers                   -> {"block_index": n}
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

var _ Oracle = (*HTTPClient)(nil)

func NewHTTPClient(cfg config.LedgerConfig) *HTTPClient {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) ConfirmTransfer(ctx context.Context, blockIndex domain.BlockIndex) (Transfer, error) {
	var transfer Transfer
	err := c.getJSON(ctx, fmt.Sprintf("/transfers/%d", blockIndex), &transfer)
	if err != nil {
		return Transfer{}, err
	}
	return transfer, nil
}

func (c *HTTPClient) BalanceOf(ctx context.Context, account string) (uint64, error) {
	var body struct {
		Amount uint64 `json:"amount"`
	}
	path := fmt.Sprintf("/accounts/%s/balance", url.PathEscape(account))
	if err := c.getJSON(ctx, path, &body); err != nil {
		return 0, err
	}
	return body.Amount, nil
}

func (c *HTTPClient) Transfer(ctx context.Context, to string, amount, fee uint64) (domain.BlockIndex, error) {
	payload, err := json.Marshal(map[string]any{"to": to, "amount": amount, "fee": fee})
	if err != nil {
		return 0, fmt.Errorf("marshal transfer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/transfers", bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("build transfer request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("ledger transfer: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("ledger transfer: status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}

	var body struct {
		BlockIndex uint64 `json:"block_index"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode transfer response: %w", err)
	}
	return domain.BlockIndex(body.BlockIndex), nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("ledger request: %v: %w", err, sentinel.ErrUnavailable)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode ledger response: %w", err)
		}
		return nil
	case http.StatusNotFound:
		return sentinel.ErrNotFound
	default:
		return fmt.Errorf("ledger request: status %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
}
