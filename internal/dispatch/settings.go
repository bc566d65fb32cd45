package dispatch

import (
	"time"

	"hookrelay/internal/render"
)

// Settings is the read-only configuration snapshot for one invocation.
type Settings struct {
	DefaultDestination string
	SourceOverrides    map[string]string
	Rules              []RoutingRule
	Filter             FilterConfig
	Dedupe             DedupeConfig
	RateLimit          RateLimitConfig
	QuietHours         QuietHoursConfig
	Aggregate          AggregateConfig
	Render             render.Options
}

type RoutingRule struct {
	ID              string
	Name            string
	Enabled         bool
	SourceIDs       []string
	Keywords        []string
	UseRegex        bool
	RegexPattern    string
	DestinationURLs []string
}

type FilterConfig struct {
	ExcludeSummary bool
	ChannelIDs     []string
	MinImportance  int
	Keywords       []string
	UseRegex       bool
	RegexPattern   string
	Condition      string
}

type DedupeConfig struct {
	Enabled       bool
	ContentHash   bool
	TitleLatest   bool
	WindowSeconds int
}

type RateLimitConfig struct {
	Enabled       bool
	MaxPerWindow  int
	WindowSeconds int
}

type QuietHoursConfig struct {
	Enabled bool
	// StartMinute and EndMinute are minutes after local midnight.
	StartMinute int
	EndMinute   int
	// Days uses 1=Sunday ... 7=Saturday; empty means every day.
	Days     []int
	Location *time.Location
}

type AggregateConfig struct {
	Enabled       bool
	WindowSeconds int
}

// EnabledRules counts rules that can contribute destinations.
func (s *Settings) EnabledRules() int {
	n := 0
	for _, r := range s.Rules {
		if r.Enabled {
			n++
		}
	}
	return n
}

func windowOf(seconds int) time.Duration {
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}
