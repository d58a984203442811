package quota

// Type distinguishes windowed rate limits from flat-rate subscriptions.
type Type string

const (
	RateLimit    Type = "rate_limit"
	Subscription Type = "subscription"
)

// Quota describes one tracked provider plan.
type Quota struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        Type   `yaml:"quota_type"`
	// Limit is the token ceiling per window for rate_limit plans. Zero
	// means unlimited.
	Limit       int64  `yaml:"limit,omitempty"`
	PeriodHours int    `yaml:"period_hours,omitempty"`
	Note        string `yaml:"note,omitempty"`
}

// Unlimited reports whether the plan has no token ceiling.
func (q Quota) Unlimited() bool { return q.Limit == 0 }

// Defaults returns the built-in provider plans.
func Defaults() map[string]Quota {
	return map[string]Quota{
		"minimax": {
			Name:        "MiniMax",
			Description: "MiniMax API (4-hour quota window)",
			Type:        RateLimit,
			Limit:       50_000_000,
			PeriodHours: 4,
			Note:        "an API key is required to query live usage",
		},
		"claude_pro": {
			Name:        "Claude Pro",
			Description: "Claude Code on a Claude Pro subscription",
			Type:        Subscription,
			Note:        "no hard usage cap; session tokens tracked for reference",
		},
		"gemini_pro": {
			Name:        "Gemini Pro",
			Description: "Gemini CLI on a Google AI Pro subscription",
			Type:        Subscription,
			Note:        "no hard usage cap",
		},
	}
}

// Status is the result of a provider-side quota probe.
type Status struct {
	State string
	Used  int64
	Limit int64
	Note  string
}

// CheckProvider reports the provider-side view of a plan. Live provider APIs
// are not wired up, so rate-limit plans come back "unknown"; subscriptions
// have nothing to probe and are always "ok".
func CheckProvider(q Quota) Status {
	if q.Type == Subscription {
		return Status{State: "ok", Note: "subscription plan, no usage cap"}
	}
	return Status{
		State: "unknown",
		Limit: q.Limit,
		Note:  "live quota lookup requires a provider API key",
	}
}
