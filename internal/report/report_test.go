package report

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/TuanBC/credit-scoring-onchain/internal/engine"
	"github.com/TuanBC/credit-scoring-onchain/internal/offchain"
	"github.com/TuanBC/credit-scoring-onchain/internal/service"
)

func sampleResult() service.Result {
	return service.Result{
		WalletAddress: "0x1f9090aae28b8a3dceadf281b0f12828e676c326",
		Breakdown: service.Breakdown{
			CreditScore:      606,
			TransactionCount: 100,
			Features: engine.FeatureSet{
				"account_age_days":   600.0,
				"total_transactions": 100.0,
				"tx_value_skewness":  nil,
			},
			OffchainData: offchain.Generate("0x1f9090aae28b8a3dceadf281b0f12828e676c326"),
			TimeSeries:   engine.ExtractTimeSeries(nil, "0x1f9090aae28b8a3dceadf281b0f12828e676c326", time.Now()),
		},
	}
}

func TestClientComplete(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "# Report\nfine."}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, APIKey: "key", Model: "test-model"}, zerolog.Nop())
	got, err := c.Complete(context.Background(), "sys", "user")
	if err != nil {
		t.Fatalf("complete failed: %v", err)
	}
	if !strings.HasPrefix(got, "# Report") {
		t.Fatalf("unexpected content: %q", got)
	}
}

func TestClientAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]string{"message": "insufficient credits"},
		})
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{BaseURL: srv.URL, APIKey: "key"}, zerolog.Nop())
	_, err := c.Complete(context.Background(), "sys", "user")
	if err == nil || !strings.Contains(err.Error(), "insufficient credits") {
		t.Fatalf("expected api error with detail, got %v", err)
	}
}

func TestClientUnconfigured(t *testing.T) {
	c := NewClient(ClientOptions{}, zerolog.Nop())
	if c.Configured() {
		t.Fatal("client without key must not report configured")
	}
	if _, err := c.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("unconfigured client must error")
	}
}

type fakeCompleter struct {
	content    string
	err        error
	configured bool
}

func (f *fakeCompleter) Complete(ctx context.Context, system, user string) (string, error) {
	return f.content, f.err
}

func (f *fakeCompleter) Configured() bool { return f.configured }

func TestGeneratorUsesLLM(t *testing.T) {
	g := NewGenerator(&fakeCompleter{content: "llm report", configured: true}, zerolog.Nop())
	got, err := g.Generate(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if got != "llm report" {
		t.Fatalf("expected llm content, got %q", got)
	}
}

func TestGeneratorFallsBackOnLLMError(t *testing.T) {
	g := NewGenerator(&fakeCompleter{err: errors.New("down"), configured: true}, zerolog.Nop())
	got, err := g.Generate(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.Contains(got, "# Wallet Credit Report") {
		t.Fatalf("expected fallback markdown, got %q", got)
	}
}

func TestGeneratorFallbackContent(t *testing.T) {
	g := NewGenerator(nil, zerolog.Nop())
	got, err := g.Generate(context.Background(), sampleResult())
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	for _, want := range []string{
		"## Summary",
		"**Credit score:** 606",
		"## On-chain Activity",
		"account_age_days",
		"## Off-chain Profile",
		"## Risk Assessment",
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("fallback report missing %q:\n%s", want, got)
		}
	}
	// null features must not render as rows
	if strings.Contains(got, "tx_value_skewness") {
		t.Fatal("null feature should be omitted from the report")
	}
}

func TestGeneratorFallbackEmptyWallet(t *testing.T) {
	result := sampleResult()
	result.Breakdown = service.Breakdown{
		OffchainData: result.Breakdown.OffchainData,
		Features:     engine.FeatureSet{},
	}
	result.Message = "No transaction history found for this wallet"

	g := NewGenerator(nil, zerolog.Nop())
	got, err := g.Generate(context.Background(), result)
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.Contains(got, "No on-chain activity") {
		t.Fatalf("expected empty-activity section, got:\n%s", got)
	}
}
