// Package report renders a human-readable credit report for a scored wallet,
// either through an LLM or a deterministic local markdown fallback.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/rs/zerolog"

	"github.com/TuanBC/credit-scoring-onchain/internal/service"
)

const systemPrompt = "You are a credit analyst. Write a concise, factual markdown report " +
	"about an Ethereum wallet based only on the data provided. Do not invent numbers."

var promptTemplate = template.Must(template.New("prompt").Parse(
	`Write a credit assessment report for wallet {{.WalletAddress}}.

Credit score: {{printf "%.0f" .Breakdown.CreditScore}}
Transactions analysed: {{.Breakdown.TransactionCount}}
{{if .Message}}Note: {{.Message}}
{{end}}
Full evaluation data (JSON):
{{.DataJSON}}

Structure the report with sections for Summary, On-chain Activity,
Off-chain Profile, and Risk Assessment.`))

type promptData struct {
	service.Result
	DataJSON string
}

// Completer is the LLM dependency of the generator.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Configured() bool
}

// Generator produces wallet credit reports.
type Generator struct {
	completer Completer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewGenerator wires a report generator. completer may be nil; reports then
// always use the local fallback.
func NewGenerator(completer Completer, logger zerolog.Logger) *Generator {
	return &Generator{
		completer: completer,
		logger:    logger.With().Str("component", "report_generator").Logger(),
		now:       time.Now,
	}
}

// Generate renders a markdown report for an evaluation. LLM failures degrade
// to the local fallback rather than failing the request.
func (g *Generator) Generate(ctx context.Context, result service.Result) (string, error) {
	if g.completer != nil && g.completer.Configured() {
		prompt, err := renderPrompt(result)
		if err != nil {
			return "", err
		}
		content, err := g.completer.Complete(ctx, systemPrompt, prompt)
		if err == nil {
			return content, nil
		}
		g.logger.Warn().Err(err).Str("wallet", result.WalletAddress).Msg("llm report failed, using local fallback")
	}
	return g.fallback(result), nil
}

func renderPrompt(result service.Result) (string, error) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal evaluation data: %w", err)
	}

	var sb strings.Builder
	if err := promptTemplate.Execute(&sb, promptData{Result: result, DataJSON: string(data)}); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return sb.String(), nil
}

// fallback builds a deterministic markdown report from the evaluation alone.
func (g *Generator) fallback(result service.Result) string {
	b := result.Breakdown
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Wallet Credit Report: %s\n\n", result.WalletAddress))
	sb.WriteString(fmt.Sprintf("_Generated %s_\n\n", g.now().UTC().Format("2006-01-02 15:04 UTC")))

	sb.WriteString("## Summary\n\n")
	sb.WriteString(fmt.Sprintf("- **Credit score:** %.0f\n", b.CreditScore))
	sb.WriteString(fmt.Sprintf("- **Transactions analysed:** %d\n", b.TransactionCount))
	if result.Message != "" {
		sb.WriteString(fmt.Sprintf("- **Note:** %s\n", result.Message))
	}
	sb.WriteString("\n")

	sb.WriteString("## On-chain Activity\n\n")
	if len(b.Features) == 0 {
		sb.WriteString("No on-chain activity was found for this wallet.\n\n")
	} else {
		writeFeatureRows(&sb, b.Features, []string{
			"account_age_days",
			"total_transactions",
			"total_eth_sent",
			"total_eth_received",
			"net_eth_change",
			"unique_counterparties",
			"contract_interactions",
			"failed_tx_ratio",
			"tx_count_6m",
			"months_with_tx",
		})
	}

	sb.WriteString("## Off-chain Profile\n\n")
	sb.WriteString(fmt.Sprintf("- Occupation: %s, age %d\n", b.OffchainData.Occupation, b.OffchainData.Age))
	sb.WriteString(fmt.Sprintf("- Monthly income: $%d\n", b.OffchainData.MonthlyIncomeUSD))
	sb.WriteString(fmt.Sprintf("- Years of experience: %.1f across %d companies\n",
		b.OffchainData.YearsOfExperience, b.OffchainData.NumberOfCompanies))
	sb.WriteString(fmt.Sprintf("- Off-chain credit score: %d\n\n", b.OffchainData.OffchainCreditScore))

	sb.WriteString("## Risk Assessment\n\n")
	sb.WriteString(riskParagraph(b))

	return sb.String()
}

func writeFeatureRows(sb *strings.Builder, features map[string]any, preferred []string) {
	sb.WriteString("| Feature | Value |\n|---|---|\n")
	written := map[string]bool{}
	for _, name := range preferred {
		if v, ok := features[name]; ok && v != nil {
			sb.WriteString(fmt.Sprintf("| %s | %v |\n", name, formatValue(v)))
			written[name] = true
		}
	}

	remaining := make([]string, 0, len(features))
	for name := range features {
		if !written[name] {
			remaining = append(remaining, name)
		}
	}
	sort.Strings(remaining)
	for _, name := range remaining {
		if v := features[name]; v != nil {
			sb.WriteString(fmt.Sprintf("| %s | %v |\n", name, formatValue(v)))
		}
	}
	sb.WriteString("\n")
}

func formatValue(v any) string {
	if f, ok := v.(float64); ok {
		if f == float64(int64(f)) {
			return fmt.Sprintf("%d", int64(f))
		}
		return fmt.Sprintf("%.4f", f)
	}
	return fmt.Sprintf("%v", v)
}

func riskParagraph(b service.Breakdown) string {
	switch {
	case b.TransactionCount == 0:
		return "This wallet has no transaction history, so no on-chain creditworthiness can be established.\n"
	case b.CreditScore >= 600:
		return "The wallet shows an established activity profile with a score in the upper range of the scorecard.\n"
	case b.CreditScore >= 500:
		return "The wallet shows moderate activity; several scorecard dimensions fall into mid-range bins.\n"
	default:
		return "The wallet's activity profile is thin; most scorecard dimensions fall into the lowest bins.\n"
	}
}
