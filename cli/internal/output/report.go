package output

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/openclaw/quotatop/internal/quota"
	"github.com/openclaw/quotatop/internal/usage"
)

const (
	reportWidth  = 60
	sectionWidth = 40
)

// providerEmoji marks each known provider in the report. Unknown providers
// fall back to a neutral dot.
var providerEmoji = map[string]string{
	"minimax":    "🔵",
	"claude_pro": "🦅",
	"gemini_pro": "🐉",
}

func emojiFor(id string) string {
	if e, ok := providerEmoji[id]; ok {
		return e
	}
	return "⚪"
}

func sortedIDs(quotas map[string]quota.Quota) []string {
	ids := make([]string, 0, len(quotas))
	for id := range quotas {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func quotaLine(q quota.Quota) string {
	if q.Unlimited() {
		return "unlimited"
	}
	if q.PeriodHours > 0 {
		return fmt.Sprintf("%s tokens/%dhr", FormatNumber(q.Limit), q.PeriodHours)
	}
	return fmt.Sprintf("%s tokens", FormatNumber(q.Limit))
}

func statusLine(q quota.Quota) string {
	s := quota.CheckProvider(q)
	switch s.State {
	case "ok":
		return "✅ " + s.Note
	case "unknown":
		return "⚠️ " + s.Note
	default:
		return s.State + " — " + s.Note
	}
}

// Report assembles the full quota report: one section per tracked plan, then
// the aggregated session usage for the requested day.
func Report(quotas map[string]quota.Quota, totals usage.Totals, now time.Time) string {
	rule := strings.Repeat("=", reportWidth)
	sep := strings.Repeat("-", sectionWidth)

	var b strings.Builder
	b.WriteString(rule + "\n")
	b.WriteString("📊 quotatop quota report\n")
	b.WriteString(fmt.Sprintf("📅 Generated: %s\n", now.Format("2006-01-02 15:04:05")))
	b.WriteString(rule + "\n")

	for _, id := range sortedIDs(quotas) {
		q := quotas[id]
		b.WriteString(fmt.Sprintf("\n%s %s\n", emojiFor(id), q.Name))
		b.WriteString(sep + "\n")
		b.WriteString(fmt.Sprintf("   Plan:   %s\n", q.Description))
		b.WriteString(fmt.Sprintf("   Quota:  %s\n", quotaLine(q)))
		b.WriteString(fmt.Sprintf("   Status: %s\n", statusLine(q)))
	}

	b.WriteString("\n📈 Session usage (today)\n")
	b.WriteString(sep + "\n")
	if totals.MatchedRecords == 0 {
		b.WriteString("   No session usage recorded\n")
	} else {
		b.WriteString(fmt.Sprintf("   Matched records: %d\n", totals.MatchedRecords))
		b.WriteString(fmt.Sprintf("   Input tokens:    %s\n", FormatNumber(totals.InputTokens)))
		b.WriteString(fmt.Sprintf("   Output tokens:   %s\n", FormatNumber(totals.OutputTokens)))
		b.WriteString(fmt.Sprintf("   Total tokens:    %s\n", FormatNumber(totals.TotalTokens)))
		b.WriteString(fmt.Sprintf("   Estimated cost:  %s\n", FormatCost(totals.Cost)))
	}

	b.WriteString("\n" + rule + "\n")
	b.WriteString("💡 Notes:\n")
	b.WriteString("   - rate-limited plans need a provider API key for live usage\n")
	b.WriteString("   - subscription plans are effectively uncapped\n")
	b.WriteString("   - session token usage is tracked locally for reference\n")
	b.WriteString(rule + "\n")

	return b.String()
}

// Status assembles the quick status view.
func Status(quotas map[string]quota.Quota, lastCheck time.Time) string {
	sep := strings.Repeat("-", 50)

	var b strings.Builder
	b.WriteString("\n📊 Quota status\n")
	b.WriteString(sep + "\n")
	for _, id := range sortedIDs(quotas) {
		q := quotas[id]
		if q.Unlimited() {
			b.WriteString(fmt.Sprintf("%s %s: unlimited (%s)\n", emojiFor(id), q.Name, q.Type))
		} else {
			b.WriteString(fmt.Sprintf("%s %s: %s\n", emojiFor(id), q.Name, quotaLine(q)))
		}
	}
	b.WriteString(sep + "\n")
	if lastCheck.IsZero() {
		b.WriteString("Last check: never\n")
	} else {
		b.WriteString(fmt.Sprintf("Last check: %s\n", lastCheck.Format("2006-01-02 15:04:05")))
	}

	return b.String()
}
