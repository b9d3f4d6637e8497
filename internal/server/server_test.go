package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/TuanBC/credit-scoring-onchain/internal/config"
	"github.com/TuanBC/credit-scoring-onchain/internal/engine"
	"github.com/TuanBC/credit-scoring-onchain/internal/service"
)

type stubEvaluator struct {
	result service.Result
	err    error
}

func (s *stubEvaluator) EvaluateWallet(ctx context.Context, address string) (service.Result, error) {
	if s.err != nil {
		return service.Result{}, s.err
	}
	return s.result, nil
}

type stubReports struct {
	content string
	err     error
}

func (s *stubReports) Generate(ctx context.Context, result service.Result) (string, error) {
	return s.content, s.err
}

func testServer(eval Evaluator, reports ReportGenerator) *Server {
	return New(config.ServerConfig{ListenAddr: ":0"}, eval, reports, zerolog.Nop())
}

func scoredResult() service.Result {
	return service.Result{
		WalletAddress: "0xabc",
		Breakdown: service.Breakdown{
			CreditScore:      606,
			TransactionCount: 100,
			Features:         engine.FeatureSet{"total_transactions": 100.0},
			TimeSeries:       engine.ExtractTimeSeries(nil, "0xabc", time.Now()),
		},
	}
}

func doRequest(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := testServer(&stubEvaluator{}, nil)
	rec := doRequest(t, s, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected body: %v", body)
	}
}

func TestScoreEndpoint(t *testing.T) {
	s := testServer(&stubEvaluator{result: scoredResult()}, nil)
	rec := doRequest(t, s, "/v1/wallets/0xabc/score")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		WalletAddress string `json:"wallet_address"`
		Breakdown     struct {
			CreditScore      float64        `json:"credit_score"`
			TransactionCount int            `json:"transaction_count"`
			Features         map[string]any `json:"features"`
		} `json:"breakdown"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.WalletAddress != "0xabc" || body.Breakdown.CreditScore != 606 {
		t.Fatalf("unexpected payload: %+v", body)
	}
	if body.Breakdown.Features["total_transactions"] != 100.0 {
		t.Fatalf("features missing: %+v", body.Breakdown.Features)
	}
}

func TestScoreInvalidAddress(t *testing.T) {
	s := testServer(&stubEvaluator{err: service.ErrInvalidAddress}, nil)
	rec := doRequest(t, s, "/v1/wallets/nope/score")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestScoreSchemaError(t *testing.T) {
	s := testServer(&stubEvaluator{err: &engine.SchemaError{Missing: []string{"value"}}}, nil)
	rec := doRequest(t, s, "/v1/wallets/0xabc/score")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "value") {
		t.Fatalf("error should name the missing field: %s", rec.Body.String())
	}
}

func TestTimeSeriesEndpoint(t *testing.T) {
	s := testServer(&stubEvaluator{result: scoredResult()}, nil)
	rec := doRequest(t, s, "/v1/wallets/0xabc/timeseries")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		TimeSeries struct {
			Monthly []any `json:"monthly"`
		} `json:"time_series"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TimeSeries.Monthly == nil {
		t.Fatal("time series must include an initialized monthly array")
	}
}

func TestReportEndpoint(t *testing.T) {
	s := testServer(&stubEvaluator{result: scoredResult()}, &stubReports{content: "# Report"})
	rec := doRequest(t, s, "/v1/wallets/0xabc/report")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "# Report") {
		t.Fatalf("report content missing: %s", rec.Body.String())
	}
}

func TestReportNotConfigured(t *testing.T) {
	s := testServer(&stubEvaluator{result: scoredResult()}, nil)
	rec := doRequest(t, s, "/v1/wallets/0xabc/report")
	if rec.Code != http.StatusNotImplemented {
		t.Fatalf("status = %d, want 501", rec.Code)
	}
}

func TestRunGracefulShutdown(t *testing.T) {
	s := testServer(&stubEvaluator{result: scoredResult()}, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("graceful shutdown returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}
