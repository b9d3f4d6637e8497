package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Scalar holds an Etherscan field that may arrive as a JSON string or as a
// bare number. The raw token is kept verbatim; coercion happens in Normalize.
type Scalar string

// UnmarshalJSON accepts both `"123"` and `123`.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		*s = Scalar(str)
		return nil
	}
	*s = Scalar(bytes.TrimSpace(data))
	return nil
}

// RawTransaction mirrors one record of the Etherscan account.txlist payload.
// Required fields are pointers so a column that is absent from the upstream
// schema can be told apart from an empty value.
type RawTransaction struct {
	TimeStamp       *Scalar `json:"timeStamp"`
	Value           *Scalar `json:"value"`
	From            *string `json:"from"`
	To              *string `json:"to"`
	Input           string  `json:"input"`
	ContractAddress string  `json:"contractAddress"`
	IsError         *Scalar `json:"isError"`
	GasPrice        *Scalar `json:"gasPrice"`
}

// Transaction is the validated, coerced view the extractors operate on.
type Transaction struct {
	Timestamp       time.Time // zero when the raw timestamp was unparsable
	ValueETH        float64   // NaN when the raw value was unparsable
	From            string
	To              string
	Input           string
	ContractAddress string
	Failed          bool
	GasPrice        float64 // NaN when absent or unparsable
}

// SchemaError reports required columns missing from every record of a
// non-empty input.
type SchemaError struct {
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required fields in transaction data: %s", strings.Join(e.Missing, ", "))
}

// FeatureSet is a flat feature-name keyed mapping. Values are float64, int,
// bool, or nil for statistics that are undefined on the given sample.
// Computed once per extraction and never mutated afterwards.
type FeatureSet map[string]any

// Float reads a feature as float64. The second return is false when the
// feature is absent, nil, or not numeric.
func (fs FeatureSet) Float(name string) (float64, bool) {
	v, ok := fs[name]
	if !ok || v == nil {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}
