package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pickbox/boxdrop/internal/util"
)

// ErrNotFound means the node does not know the transaction (or its receipt)
// yet. Callers treat it as retryable: chain data often lags the client's
// submission by a few seconds.
var ErrNotFound = errors.New("chain: not found")

// Oracle is the read-only view of the chain the settler needs. The JSON-RPC
// client implements it; tests substitute a fake.
type Oracle interface {
	TransactionByHash(ctx context.Context, hash string) (*Transaction, error)
	TransactionReceipt(ctx context.Context, hash string) (*Receipt, error)
}

// Client is an EVM JSON-RPC client.
type Client struct {
	rpcURL     string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a chain client with a bounded request timeout.
func NewClient(rpcURL, apiKey string) *Client {
	return &Client{
		rpcURL: strings.TrimSuffix(rpcURL, "/"),
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (c *Client) call(ctx context.Context, method string, params []interface{}, out interface{}) error {
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("rpc error %d: %s", resp.StatusCode, util.TruncateBytes(data))
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	// A null result means the node has not seen the object yet.
	if len(rpcResp.Result) == 0 || string(rpcResp.Result) == "null" {
		return ErrNotFound
	}
	return json.Unmarshal(rpcResp.Result, out)
}

// TransactionByHash fetches a transaction, or ErrNotFound if the node does
// not have it.
func (c *Client) TransactionByHash(ctx context.Context, hash string) (*Transaction, error) {
	var tx Transaction
	if err := c.call(ctx, "eth_getTransactionByHash", []interface{}{hash}, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// TransactionReceipt fetches a receipt, or ErrNotFound while the transaction
// is unmined.
func (c *Client) TransactionReceipt(ctx context.Context, hash string) (*Receipt, error) {
	var receipt Receipt
	if err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{hash}, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}
