package fetcher

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestClient(baseURL string) *Etherscan {
	return NewEtherscan(EtherscanOptions{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		ChainID:   "1",
		Timeout:   time.Second,
		UserAgent: "test",
	}, noopLogger())
}

func TestEtherscanMissingAPIKey(t *testing.T) {
	e := NewEtherscan(EtherscanOptions{}, noopLogger())
	if _, err := e.FetchTransactions(context.Background(), "0xabc"); err == nil {
		t.Fatal("缺少 API key 时应返回错误")
	}
}

func TestEtherscanHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("denied"))
	}))
	defer srv.Close()

	e := newTestClient(srv.URL)
	if _, err := e.FetchTransactions(context.Background(), "0xabc"); err == nil {
		t.Fatal("HTTP 403 应返回错误")
	}
}

func TestEtherscanNoTransactions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "0",
			"message": "No transactions found",
			"result":  nil,
		})
	}))
	defer srv.Close()

	e := newTestClient(srv.URL)
	txs, err := e.FetchTransactions(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("空历史不应报错: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected empty history, got %d", len(txs))
	}
}

func TestEtherscanEmptyResultList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "0",
			"message": "No transactions found",
			"result":  []any{},
		})
	}))
	defer srv.Close()

	e := newTestClient(srv.URL)
	txs, err := e.FetchTransactions(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("空列表不应报错: %v", err)
	}
	if len(txs) != 0 {
		t.Fatalf("expected empty history, got %d", len(txs))
	}
}

func TestEtherscanAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "0",
			"message": "NOTOK",
			"result":  "Max rate limit reached",
		})
	}))
	defer srv.Close()

	e := newTestClient(srv.URL)
	if _, err := e.FetchTransactions(context.Background(), "0xabc"); err == nil {
		t.Fatal("API error 应返回错误")
	}
}

func TestEtherscanFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		if query.Get("module") != "account" || query.Get("action") != "txlist" {
			t.Errorf("unexpected query params: %v", query)
		}
		if query.Get("apikey") != "test-key" || query.Get("sort") != "asc" {
			t.Errorf("missing apikey or sort: %v", query)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":  "1",
			"message": "OK",
			"result": []map[string]any{
				{
					"timeStamp": "1609459200",
					"value":     "1000000000000000000",
					"from":      "0xabc",
					"to":        "0xdef",
					"isError":   "0",
					"gasPrice":  "20000000000",
				},
			},
		})
	}))
	defer srv.Close()

	e := newTestClient(srv.URL)
	txs, err := e.FetchTransactions(context.Background(), "0xabc")
	if err != nil {
		t.Fatalf("成功响应不应报错: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
	if txs[0].From == nil || *txs[0].From != "0xabc" {
		t.Fatalf("from mismatch: %+v", txs[0])
	}
}
