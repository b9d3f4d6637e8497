package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/TuanBC/credit-scoring-onchain/internal/engine"
)

const defaultEtherscanBaseURL = "https://api.etherscan.io/v2/api"

// EtherscanOptions parameterise the Etherscan client.
type EtherscanOptions struct {
	BaseURL   string
	APIKey    string
	ChainID   string
	Timeout   time.Duration
	UserAgent string
}

// Etherscan fetches wallet transaction lists from the Etherscan v2 API.
type Etherscan struct {
	opts    EtherscanOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewEtherscan constructs an Etherscan transaction fetcher.
func NewEtherscan(opts EtherscanOptions, logger zerolog.Logger) *Etherscan {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultEtherscanBaseURL
	}

	return &Etherscan{
		opts:    opts,
		logger:  logger.With().Str("component", "etherscan_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// FetchTransactions retrieves the wallet's normal transactions in ascending
// block order. A wallet with no history returns an empty slice, not an error.
func (e *Etherscan) FetchTransactions(ctx context.Context, address string) ([]engine.RawTransaction, error) {
	if strings.TrimSpace(e.opts.APIKey) == "" {
		return nil, errors.New("etherscan api key not configured")
	}

	chainID := e.opts.ChainID
	if chainID == "" {
		chainID = "1"
	}

	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", "txlist")
	params.Set("chainid", chainID)
	params.Set("address", address)
	params.Set("sort", "asc")
	params.Set("apikey", e.opts.APIKey)

	endpoint := e.baseURL + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(e.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "credit-scoring-onchain/1.0")
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("etherscan http %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var envelope txListResponse
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("decode etherscan response: %w", err)
	}

	if envelope.Status == "0" {
		return e.handleZeroStatus(envelope)
	}

	return decodeResult(envelope.Result)
}

// handleZeroStatus distinguishes "empty history" replies from real API errors.
func (e *Etherscan) handleZeroStatus(envelope txListResponse) ([]engine.RawTransaction, error) {
	trimmed := strings.TrimSpace(string(envelope.Result))
	if trimmed == "[]" {
		return []engine.RawTransaction{}, nil
	}
	if trimmed == "" || trimmed == "null" {
		if strings.Contains(envelope.Message, "No transactions found") ||
			strings.Contains(envelope.Message, "No records found") {
			return []engine.RawTransaction{}, nil
		}
		return nil, fmt.Errorf("etherscan api error: %s", envelope.Message)
	}

	// some error replies carry the detail in result as a string
	var detail string
	if err := json.Unmarshal(envelope.Result, &detail); err == nil {
		return nil, fmt.Errorf("etherscan api error: %s", detail)
	}
	return decodeResult(envelope.Result)
}

func decodeResult(raw json.RawMessage) ([]engine.RawTransaction, error) {
	var txs []engine.RawTransaction
	if err := json.Unmarshal(raw, &txs); err != nil {
		return nil, fmt.Errorf("unexpected etherscan result format: %w", err)
	}
	if txs == nil {
		txs = []engine.RawTransaction{}
	}
	return txs, nil
}

type txListResponse struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

var _ TransactionFetcher = (*Etherscan)(nil)
