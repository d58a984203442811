package usage

// Record is one decoded line from a session log file. The token counts may
// sit directly at the top level or one level down under "message"; many lines
// (tool calls, system events) carry neither.
type Record struct {
	Timestamp string  `json:"timestamp"`
	Usage     *Fields `json:"usage"`
	Message   struct {
		Usage *Fields `json:"usage"`
	} `json:"message"`
}

// Fields holds the token counts a record may carry. Absent fields decode to
// zero. Total is reported by the writer independently and is not necessarily
// Input+Output.
type Fields struct {
	Input  int64 `json:"input"`
	Output int64 `json:"output"`
	Total  int64 `json:"totalTokens"`
}

// Locate returns the record's usage fields, preferring the top-level object
// over message.usage so a record never counts twice. Nil means the record
// carries no usage at all.
func (r *Record) Locate() *Fields {
	if r.Usage != nil {
		return r.Usage
	}
	return r.Message.Usage
}

// Valid reports whether the counts are usable. Token counts are never
// negative in well-formed logs; a negative field marks the whole usage
// object as garbage.
func (f *Fields) Valid() bool {
	return f.Input >= 0 && f.Output >= 0 && f.Total >= 0
}

// Totals is the fold of all matching records in one scan.
type Totals struct {
	InputTokens    int64
	OutputTokens   int64
	TotalTokens    int64
	MatchedRecords int
	Cost           float64
}
