package pricing

import "math"

// Table holds per-million-token rates for one provider.
type Table struct {
	InputPerMillion  float64 `yaml:"input_per_million" json:"input_per_million"`
	OutputPerMillion float64 `yaml:"output_per_million" json:"output_per_million"`
}

// Cost prices the given token counts, rounded to 4 decimal places.
func (t Table) Cost(inputTokens, outputTokens int64) float64 {
	c := float64(inputTokens)/1_000_000*t.InputPerMillion +
		float64(outputTokens)/1_000_000*t.OutputPerMillion
	return math.Round(c*10_000) / 10_000
}

// Defaults returns embedded fallback rates per provider, used when the config
// file carries no pricing section. Rates are USD per million tokens.
func Defaults() map[string]Table {
	return map[string]Table{
		"minimax": {
			InputPerMillion:  0.2,
			OutputPerMillion: 1.1,
		},
		"claude_pro": {
			InputPerMillion:  15.0,
			OutputPerMillion: 75.0,
		},
		"gemini_pro": {
			InputPerMillion:  1.25,
			OutputPerMillion: 10.0,
		},
	}
}

// For returns the table for a provider, falling back to the embedded default
// and then to a zero table for unknown providers.
func For(tables map[string]Table, provider string) Table {
	if t, ok := tables[provider]; ok {
		return t
	}
	if t, ok := Defaults()[provider]; ok {
		return t
	}
	return Table{}
}
