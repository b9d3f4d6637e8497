package engine

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var dec1e18 = decimal.NewFromInt(1_000_000_000_000_000_000)

// Normalize validates and coerces raw Etherscan records into the typed view
// the extractors consume. A required column missing from every record of a
// non-empty input is a SchemaError; a field that is merely unparsable on an
// individual record degrades to a sentinel (zero time, NaN) instead.
// Empty input yields empty output, not an error.
func Normalize(raw []RawTransaction) ([]Transaction, error) {
	if len(raw) == 0 {
		return []Transaction{}, nil
	}

	if missing := missingColumns(raw); len(missing) > 0 {
		return nil, &SchemaError{Missing: missing}
	}

	txs := make([]Transaction, 0, len(raw))
	for _, r := range raw {
		txs = append(txs, Transaction{
			Timestamp:       coerceTimestamp(r.TimeStamp),
			ValueETH:        coerceWeiToETH(r.Value),
			From:            coerceAddress(r.From),
			To:              coerceAddress(r.To),
			Input:           r.Input,
			ContractAddress: r.ContractAddress,
			Failed:          coerceFlag(r.IsError) == 1,
			GasPrice:        coerceNumber(r.GasPrice),
		})
	}
	return txs, nil
}

func missingColumns(raw []RawTransaction) []string {
	hasTimestamp, hasValue, hasFrom, hasTo := false, false, false, false
	for _, r := range raw {
		hasTimestamp = hasTimestamp || r.TimeStamp != nil
		hasValue = hasValue || r.Value != nil
		hasFrom = hasFrom || r.From != nil
		hasTo = hasTo || r.To != nil
	}

	var missing []string
	if !hasTimestamp {
		missing = append(missing, "timeStamp")
	}
	if !hasValue {
		missing = append(missing, "value")
	}
	if !hasFrom {
		missing = append(missing, "from")
	}
	if !hasTo {
		missing = append(missing, "to")
	}
	return missing
}

func coerceTimestamp(s *Scalar) time.Time {
	if s == nil {
		return time.Time{}
	}
	secs, err := strconv.ParseFloat(strings.TrimSpace(string(*s)), 64)
	if err != nil || math.IsNaN(secs) {
		return time.Time{}
	}
	sec, frac := math.Modf(secs)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC()
}

// coerceWeiToETH parses an integer wei amount exactly before scaling down,
// so large balances do not lose precision in a float64 intermediate.
func coerceWeiToETH(s *Scalar) float64 {
	if s == nil {
		return math.NaN()
	}
	wei, err := decimal.NewFromString(strings.TrimSpace(string(*s)))
	if err != nil {
		return math.NaN()
	}
	return wei.Div(dec1e18).InexactFloat64()
}

func coerceNumber(s *Scalar) float64 {
	if s == nil {
		return math.NaN()
	}
	n, err := decimal.NewFromString(strings.TrimSpace(string(*s)))
	if err != nil {
		return math.NaN()
	}
	return n.InexactFloat64()
}

func coerceFlag(s *Scalar) int {
	if s == nil {
		return 0
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(string(*s)), 64)
	if err != nil || n != 1 {
		return 0
	}
	return 1
}

func coerceAddress(s *string) string {
	if s == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(*s))
}
