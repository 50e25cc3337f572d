package chain

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newRPCServer(t *testing.T, results map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string        `json:"method"`
			Params []interface{} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad rpc request: %v", err)
		}
		result, ok := results[req.Method]
		if !ok {
			result = "null"
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":` + result + `}`))
	}))
}

func TestTransactionByHash(t *testing.T) {
	server := newRPCServer(t, map[string]string{
		"eth_getTransactionByHash": `{
			"hash": "0xabc",
			"from": "0x2222222222222222222222222222222222222222",
			"to": "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913",
			"input": "0xa9059cbb"
		}`,
	})
	defer server.Close()

	client := NewClient(server.URL, "")
	tx, err := client.TransactionByHash(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if tx.From != "0x2222222222222222222222222222222222222222" {
		t.Fatalf("from %s", tx.From)
	}
	if tx.To != "0x833589fcd6edb6e08f4c7c32d4f71b54bda02913" {
		t.Fatalf("to %s", tx.To)
	}
}

func TestNullResultIsNotFound(t *testing.T) {
	server := newRPCServer(t, nil)
	defer server.Close()

	client := NewClient(server.URL, "")
	if _, err := client.TransactionByHash(context.Background(), "0xmissing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := client.TransactionReceipt(context.Background(), "0xmissing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReceiptStatus(t *testing.T) {
	server := newRPCServer(t, map[string]string{
		"eth_getTransactionReceipt": `{"transactionHash": "0xabc", "status": "0x1", "blockNumber": "0x10"}`,
	})
	defer server.Close()

	client := NewClient(server.URL, "")
	receipt, err := client.TransactionReceipt(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !receipt.Succeeded() {
		t.Fatal("status 0x1 should report success")
	}

	if (&Receipt{Status: "0x0"}).Succeeded() {
		t.Fatal("status 0x0 should report failure")
	}
}

func TestRPCErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32000,"message":"header not found"}}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, "")
	_, err := client.TransactionByHash(context.Background(), "0xabc")
	if err == nil || errors.Is(err, ErrNotFound) {
		t.Fatalf("rpc error should not map to not-found, got %v", err)
	}
}
