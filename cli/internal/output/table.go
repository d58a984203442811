package output

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/openclaw/quotatop/internal/aggregate"
)

const (
	compactThreshold = 100 // Terminal width below which compact mode kicks in
	defaultWidth     = 120
)

// TableOptions controls table display behavior
type TableOptions struct {
	ForceCompact bool
}

// shouldUseCompact determines if compact mode should be used
func shouldUseCompact(opts TableOptions) bool {
	if opts.ForceCompact {
		return true
	}
	return terminalWidth() < compactThreshold
}

// terminalWidth resolves the display width: COLUMNS wins over the
// platform console probe, which falls back to defaultWidth when stdout is
// not a terminal.
func terminalWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		var width int
		if _, err := fmt.Sscanf(cols, "%d", &width); err == nil && width > 0 {
			return width
		}
	}
	if w := consoleWidth(); w > 0 {
		return w
	}
	return defaultWidth
}

// FormatNumber formats a number with thousand separators
func FormatNumber(n int64) string {
	if n == 0 {
		return "0"
	}

	str := fmt.Sprintf("%d", n)
	negative := n < 0
	if negative {
		str = str[1:]
	}

	var result strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}

	if negative {
		return "-" + result.String()
	}
	return result.String()
}

// FormatCost formats a cost estimate as currency
func FormatCost(cost float64) string {
	return fmt.Sprintf("$%.4f", cost)
}

// PrintDailyTable prints the per-day usage aggregates as a formatted table
func PrintDailyTable(days []aggregate.DayTotals, opts TableOptions) {
	if len(days) == 0 {
		fmt.Println("No usage data found.")
		return
	}

	compact := shouldUseCompact(opts)
	keyWidth := 10 // YYYY-MM-DD

	fmt.Println()

	if compact {
		// Compact: Day, Input, Output, Cost
		width := keyWidth + 2 + 12 + 2 + 12 + 2 + 10
		fmt.Printf("%-*s  %12s  %12s  %10s\n", keyWidth, "Day", "Input", "Output", "Cost")
		fmt.Println(strings.Repeat("─", width))

		for _, d := range days {
			fmt.Printf("%-*s  %12s  %12s  %10s\n",
				keyWidth, d.Day,
				FormatNumber(d.InputTokens),
				FormatNumber(d.OutputTokens),
				FormatCost(d.Cost))
		}

		if len(days) > 1 {
			fmt.Println(strings.Repeat("─", width))
			total := sumDays(days)
			fmt.Printf("%-*s  %12s  %12s  %10s\n",
				keyWidth, "Total",
				FormatNumber(total.InputTokens),
				FormatNumber(total.OutputTokens),
				FormatCost(total.Cost))
		}

		fmt.Println()
		fmt.Println("(Compact mode - expand terminal for full view)")
		return
	}

	// Full: Day, Input, Output, Total, Records, Cost
	width := keyWidth + 2 + 12 + 2 + 12 + 2 + 12 + 2 + 8 + 2 + 10
	fmt.Printf("%-*s  %12s  %12s  %12s  %8s  %10s\n",
		keyWidth, "Day", "Input", "Output", "Total", "Records", "Cost")
	fmt.Println(strings.Repeat("─", width))

	for _, d := range days {
		fmt.Printf("%-*s  %12s  %12s  %12s  %8d  %10s\n",
			keyWidth, d.Day,
			FormatNumber(d.InputTokens),
			FormatNumber(d.OutputTokens),
			FormatNumber(d.TotalTokens),
			d.MatchedRecords,
			FormatCost(d.Cost))
	}

	if len(days) > 1 {
		fmt.Println(strings.Repeat("─", width))
		total := sumDays(days)
		fmt.Printf("%-*s  %12s  %12s  %12s  %8d  %10s\n",
			keyWidth, "Total",
			FormatNumber(total.InputTokens),
			FormatNumber(total.OutputTokens),
			FormatNumber(total.TotalTokens),
			total.MatchedRecords,
			FormatCost(total.Cost))
	}

	fmt.Println()
}

func sumDays(days []aggregate.DayTotals) aggregate.DayTotals {
	total := aggregate.DayTotals{Day: "Total"}
	for _, d := range days {
		total.InputTokens += d.InputTokens
		total.OutputTokens += d.OutputTokens
		total.TotalTokens += d.TotalTokens
		total.MatchedRecords += d.MatchedRecords
		total.Cost += d.Cost
	}
	return total
}

// JSONDay is one day in the JSON output
type JSONDay struct {
	Day          string  `json:"day"`
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	TotalTokens  int64   `json:"total_tokens"`
	Records      int     `json:"records"`
	Cost         float64 `json:"cost"`
}

// JSONOutput is the envelope for --json mode
type JSONOutput struct {
	Days  []JSONDay `json:"days"`
	Total JSONDay   `json:"total"`
}

// PrintJSON outputs the daily aggregates as JSON
func PrintJSON(days []aggregate.DayTotals) {
	out := JSONOutput{Days: make([]JSONDay, len(days))}
	for i, d := range days {
		out.Days[i] = JSONDay{
			Day:          d.Day,
			InputTokens:  d.InputTokens,
			OutputTokens: d.OutputTokens,
			TotalTokens:  d.TotalTokens,
			Records:      d.MatchedRecords,
			Cost:         d.Cost,
		}
	}

	total := sumDays(days)
	out.Total = JSONDay{
		Day:          "total",
		InputTokens:  total.InputTokens,
		OutputTokens: total.OutputTokens,
		TotalTokens:  total.TotalTokens,
		Records:      total.MatchedRecords,
		Cost:         total.Cost,
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.Encode(out)
}
