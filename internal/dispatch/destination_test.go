package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hookrelay/pkg/models"
)

func TestResolver_OverrideWins(t *testing.T) {
	r := NewResolver(newTestFilter())
	s := &Settings{
		DefaultDestination: "https://hooks.example.com/default",
		SourceOverrides:    map[string]string{"com.example.chat": "  https://hooks.example.com/chat  "},
		Rules: []RoutingRule{
			{Enabled: true, DestinationURLs: []string{"https://hooks.example.com/rule"}},
		},
	}

	got := r.Resolve(s, event("com.example.chat", "a", "b", t0))
	assert.Equal(t, []string{"https://hooks.example.com/chat"}, got)
}

func TestResolver_BlankOverrideFallsThrough(t *testing.T) {
	r := NewResolver(newTestFilter())
	s := &Settings{
		DefaultDestination: "https://hooks.example.com/default",
		SourceOverrides:    map[string]string{"com.example.chat": "   "},
	}

	got := r.Resolve(s, event("com.example.chat", "a", "b", t0))
	assert.Equal(t, []string{"https://hooks.example.com/default"}, got)
}

func TestResolver_UnionOfDefaultAndRules(t *testing.T) {
	r := NewResolver(newTestFilter())
	s := &Settings{
		DefaultDestination: "https://hooks.example.com/default",
		Rules: []RoutingRule{
			{ID: "1", Enabled: true, Keywords: []string{"invoice"}, DestinationURLs: []string{"https://hooks.example.com/billing", "https://hooks.example.com/default"}},
			{ID: "2", Enabled: false, DestinationURLs: []string{"https://hooks.example.com/disabled"}},
			{ID: "3", Enabled: true, SourceIDs: []string{"com.other"}, DestinationURLs: []string{"https://hooks.example.com/other"}},
			{ID: "4", Enabled: true, DestinationURLs: []string{" https://hooks.example.com/all ", "https://hooks.example.com/billing"}},
		},
	}

	got := r.Resolve(s, event("com.example.chat", "Invoice", "due", t0))
	assert.Equal(t, []string{
		"https://hooks.example.com/default",
		"https://hooks.example.com/billing",
		"https://hooks.example.com/all",
	}, got)
}

func TestResolver_EmptyWhenNothingConfigured(t *testing.T) {
	r := NewResolver(newTestFilter())
	assert.Empty(t, r.Resolve(&Settings{}, event("com.example.chat", "a", "b", t0)))
}

type fixedStrategy []string

func (fixedStrategy) Name() string { return "fixed" }

func (f fixedStrategy) Resolve(*Settings, models.Event) []string { return f }

func TestResolver_FirstNonEmptyStrategyWins(t *testing.T) {
	r := NewResolverWith(fixedStrategy(nil), fixedStrategy{"https://a"}, fixedStrategy{"https://b"})
	assert.Equal(t, []string{"https://a"}, r.Resolve(&Settings{}, event("s", "t", "x", t0)))
}
