package aggregate

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/openclaw/quotatop/internal/pricing"
)

func writeLog(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write log file: %v", err)
	}
}

func day(t *testing.T, value string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("Bad test date %q: %v", value, err)
	}
	return d
}

func TestSum_MissingDirectory(t *testing.T) {
	got := Sum(filepath.Join(t.TempDir(), "nope"), Options{})
	if got.InputTokens != 0 || got.OutputTokens != 0 || got.TotalTokens != 0 ||
		got.MatchedRecords != 0 || got.Cost != 0 {
		t.Errorf("Expected all-zero totals for missing directory, got %+v", got)
	}
}

func TestSum_CostExample(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "session.jsonl",
		`{"usage":{"input":2000000,"output":500000,"totalTokens":2500000}}`+"\n")

	got := Sum(dir, Options{Pricing: pricing.Table{InputPerMillion: 15.0, OutputPerMillion: 60.0}})
	if got.Cost != 60.0 {
		t.Errorf("Expected cost 60.0000, got %.4f", got.Cost)
	}
	if got.MatchedRecords != 1 {
		t.Errorf("Expected 1 matched record, got %d", got.MatchedRecords)
	}
}

func TestSum_NestedAndTopLevelEquivalent(t *testing.T) {
	topDir := t.TempDir()
	writeLog(t, topDir, "a.jsonl", `{"usage":{"input":10,"output":20,"totalTokens":30}}`+"\n")

	nestedDir := t.TempDir()
	writeLog(t, nestedDir, "a.jsonl", `{"message":{"usage":{"input":10,"output":20,"totalTokens":30}}}`+"\n")

	top := Sum(topDir, Options{})
	nested := Sum(nestedDir, Options{})
	if !reflect.DeepEqual(top, nested) {
		t.Errorf("Nested usage should aggregate identically to top-level:\ntop:    %+v\nnested: %+v", top, nested)
	}
	if top.MatchedRecords != 1 {
		t.Errorf("Expected exactly one matched record, got %d", top.MatchedRecords)
	}
}

func TestSum_NoDoubleCount(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.jsonl",
		`{"usage":{"input":100,"output":50},"message":{"usage":{"input":999,"output":999}}}`+"\n")

	got := Sum(dir, Options{})
	if got.InputTokens != 100 || got.OutputTokens != 50 {
		t.Errorf("Expected only top-level usage to count, got %+v", got)
	}
	if got.MatchedRecords != 1 {
		t.Errorf("Expected 1 matched record, got %d", got.MatchedRecords)
	}
}

func TestSum_PartialUsageFields(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.jsonl", `{"usage":{"input":77}}`+"\n")

	got := Sum(dir, Options{})
	if got.InputTokens != 77 {
		t.Errorf("Expected input tokens 77, got %d", got.InputTokens)
	}
	if got.OutputTokens != 0 || got.TotalTokens != 0 {
		t.Errorf("Absent fields must count as zero, got %+v", got)
	}
	if got.MatchedRecords != 1 {
		t.Errorf("A partial usage object still matches, got %d", got.MatchedRecords)
	}
}

func TestSum_RecordsWithoutUsageDoNotMatch(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.jsonl", `{"timestamp":"2024-01-01T00:00:00Z","type":"tool_result"}
{"usage":{"input":5}}
`)

	got := Sum(dir, Options{})
	if got.MatchedRecords != 1 {
		t.Errorf("Expected only the usage-bearing record to match, got %d", got.MatchedRecords)
	}
}

func TestSum_TotalTokensIndependent(t *testing.T) {
	dir := t.TempDir()
	// totalTokens deliberately disagrees with input+output.
	writeLog(t, dir, "a.jsonl", `{"usage":{"input":10,"output":10,"totalTokens":100}}`+"\n")

	got := Sum(dir, Options{})
	if got.TotalTokens != 100 {
		t.Errorf("totalTokens must be accumulated as reported, got %d", got.TotalTokens)
	}
}

func TestSum_DateFilterShiftedDayIncluded(t *testing.T) {
	dir := t.TempDir()
	// 23:30 UTC is 07:30 the next day at UTC+8.
	writeLog(t, dir, "a.jsonl", `{"timestamp":"2024-01-01T23:30:00Z","usage":{"input":1}}`+"\n")

	got := Sum(dir, Options{Day: day(t, "2024-01-02")})
	if got.MatchedRecords != 1 {
		t.Errorf("Record on the target day under the +8h reading must be included, got %d matches", got.MatchedRecords)
	}
}

func TestSum_DateFilterExcludesOtherDays(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.jsonl", `{"timestamp":"2024-01-01T10:00:00Z","usage":{"input":1}}`+"\n")

	got := Sum(dir, Options{Day: day(t, "2024-01-02")})
	if got.MatchedRecords != 0 {
		t.Errorf("Record on neither reading of the target day must be excluded, got %d matches", got.MatchedRecords)
	}
}

func TestSum_DateFilterUTCDayIncluded(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.jsonl", `{"timestamp":"2024-01-02T10:00:00Z","usage":{"input":1}}`+"\n")

	got := Sum(dir, Options{Day: day(t, "2024-01-02")})
	if got.MatchedRecords != 1 {
		t.Errorf("Record on the target UTC day must be included, got %d matches", got.MatchedRecords)
	}
}

func TestSum_DateFilterDropsMissingTimestamps(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.jsonl", `{"usage":{"input":1}}
{"timestamp":"garbage","usage":{"input":2}}
`)

	got := Sum(dir, Options{Day: day(t, "2024-01-02")})
	if got.MatchedRecords != 0 {
		t.Errorf("Records without a parseable timestamp must be dropped when filtering, got %d", got.MatchedRecords)
	}
}

func TestSum_NoDateKeepsMissingTimestamps(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.jsonl", `{"usage":{"input":1}}
{"timestamp":"garbage","usage":{"input":2}}
`)

	got := Sum(dir, Options{})
	if got.MatchedRecords != 2 {
		t.Errorf("Without a date filter all usage-bearing records count, got %d", got.MatchedRecords)
	}
	if got.InputTokens != 3 {
		t.Errorf("Expected input tokens 3, got %d", got.InputTokens)
	}
}

func TestSum_NegativeCountsAreMalformed(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.jsonl",
		`{"usage":{"input":-500,"output":-10,"totalTokens":-510}}`+"\n"+
			`{"message":{"usage":{"input":5,"output":-1}}}`+"\n"+
			`{"usage":{"input":100,"output":50,"totalTokens":150}}`+"\n")

	got := Sum(dir, Options{Pricing: pricing.Table{InputPerMillion: 15.0, OutputPerMillion: 60.0}})
	if got.InputTokens != 100 || got.OutputTokens != 50 || got.TotalTokens != 150 {
		t.Errorf("Expected negative-count records to be skipped, got %+v", got)
	}
	if got.MatchedRecords != 1 {
		t.Errorf("Expected 1 matched record, got %d", got.MatchedRecords)
	}
	if got.Cost < 0 {
		t.Errorf("Cost must never be negative, got %.4f", got.Cost)
	}
}

func TestByDay_SkipsNegativeCounts(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.jsonl",
		`{"timestamp":"2026-08-30T10:00:00Z","usage":{"input":-500,"output":-10}}`+"\n"+
			`{"timestamp":"2026-08-30T11:00:00Z","usage":{"input":7,"output":3,"totalTokens":10}}`+"\n")

	days := ByDay(dir, pricing.Table{})
	if len(days) != 1 {
		t.Fatalf("Expected 1 day, got %d", len(days))
	}
	if days[0].InputTokens != 7 || days[0].MatchedRecords != 1 {
		t.Errorf("Expected only the well-formed record to count, got %+v", days[0])
	}
}

func TestSum_Idempotent(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.jsonl", `{"timestamp":"2024-01-02T01:00:00Z","usage":{"input":10,"output":20,"totalTokens":35}}
{"timestamp":"2024-01-02T02:00:00Z","message":{"usage":{"input":5}}}
`)

	opts := Options{Day: day(t, "2024-01-02"), Pricing: pricing.Table{InputPerMillion: 3, OutputPerMillion: 15}}
	first := Sum(dir, opts)
	second := Sum(dir, opts)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Repeated aggregation must give identical results:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestOnDay_NoTarget(t *testing.T) {
	if !onDay("", time.Time{}) {
		t.Error("Without a target day even timestamp-less records pass")
	}
	if !onDay("2024-01-01T00:00:00Z", time.Time{}) {
		t.Error("Without a target day timestamped records pass")
	}
}

func TestByDay_GroupsAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeLog(t, dir, "a.jsonl", `{"timestamp":"2024-01-01T10:00:00Z","usage":{"input":10,"output":1}}
{"timestamp":"2024-01-02T10:00:00Z","usage":{"input":20,"output":2}}
{"timestamp":"2024-01-01T12:00:00Z","usage":{"input":30,"output":3}}
{"timestamp":"bad","usage":{"input":999}}
{"timestamp":"2024-01-02T13:00:00Z","type":"tool_call"}
`)

	days := ByDay(dir, pricing.Table{InputPerMillion: 1, OutputPerMillion: 1})
	if len(days) != 2 {
		t.Fatalf("Expected 2 day buckets, got %d", len(days))
	}
	if days[0].Day != "2024-01-02" || days[1].Day != "2024-01-01" {
		t.Errorf("Expected newest-first ordering, got %q then %q", days[0].Day, days[1].Day)
	}
	if days[1].InputTokens != 40 || days[1].MatchedRecords != 2 {
		t.Errorf("2024-01-01 bucket wrong: %+v", days[1])
	}
	if days[0].InputTokens != 20 || days[0].MatchedRecords != 1 {
		t.Errorf("2024-01-02 bucket wrong: %+v", days[0])
	}
}
