package pricing

import "testing"

func TestCost(t *testing.T) {
	tests := []struct {
		name   string
		table  Table
		input  int64
		output int64
		want   float64
	}{
		{"zero tokens", Table{InputPerMillion: 15, OutputPerMillion: 60}, 0, 0, 0},
		{"round numbers", Table{InputPerMillion: 15, OutputPerMillion: 60}, 2_000_000, 500_000, 60.0},
		{"rounds to 4 places", Table{InputPerMillion: 3, OutputPerMillion: 15}, 111, 7, 0.0004},
		{"zero table", Table{}, 1_000_000, 1_000_000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.table.Cost(tt.input, tt.output)
			if got != tt.want {
				t.Errorf("Cost(%d, %d) = %v, want %v", tt.input, tt.output, got, tt.want)
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	defaults := Defaults()
	for _, id := range []string{"minimax", "claude_pro", "gemini_pro"} {
		table, ok := defaults[id]
		if !ok {
			t.Errorf("Missing default pricing for %s", id)
			continue
		}
		if table.InputPerMillion < 0 || table.OutputPerMillion < 0 {
			t.Errorf("Negative rate for %s: %+v", id, table)
		}
	}
}

func TestFor(t *testing.T) {
	custom := map[string]Table{"minimax": {InputPerMillion: 9, OutputPerMillion: 9}}

	if got := For(custom, "minimax"); got.InputPerMillion != 9 {
		t.Errorf("Expected configured table to win, got %+v", got)
	}
	if got := For(custom, "claude_pro"); got != Defaults()["claude_pro"] {
		t.Errorf("Expected embedded default fallback, got %+v", got)
	}
	if got := For(custom, "unknown"); got != (Table{}) {
		t.Errorf("Expected zero table for unknown provider, got %+v", got)
	}
}
