package dispatch

import (
	"strings"

	"hookrelay/pkg/models"
)

// DestinationStrategy yields destinations for an event. Strategies are
// consulted in order; the first non-empty result wins.
type DestinationStrategy interface {
	Name() string
	Resolve(s *Settings, ev models.Event) []string
}

type Resolver struct {
	strategies []DestinationStrategy
}

// NewResolver returns the standard order: per-source override, then the
// default destination merged with matching routing rules.
func NewResolver(filter *Filter) *Resolver {
	return &Resolver{
		strategies: []DestinationStrategy{
			OverrideStrategy{},
			RulesStrategy{filter: filter},
		},
	}
}

func NewResolverWith(strategies ...DestinationStrategy) *Resolver {
	return &Resolver{strategies: strategies}
}

func (r *Resolver) Resolve(s *Settings, ev models.Event) []string {
	for _, st := range r.strategies {
		if dst := st.Resolve(s, ev); len(dst) > 0 {
			return dst
		}
	}
	return nil
}

// OverrideStrategy returns the single per-source override URL.
type OverrideStrategy struct{}

func (OverrideStrategy) Name() string { return "source_override" }

func (OverrideStrategy) Resolve(s *Settings, ev models.Event) []string {
	url := strings.TrimSpace(s.SourceOverrides[ev.SourceID])
	if url == "" {
		return nil
	}
	return []string{url}
}

// RulesStrategy unions the default destination with every enabled rule
// that matches.
type RulesStrategy struct {
	filter *Filter
}

func (RulesStrategy) Name() string { return "default_and_rules" }

func (r RulesStrategy) Resolve(s *Settings, ev models.Event) []string {
	var set orderedSet
	set.add(s.DefaultDestination)
	for _, rule := range s.Rules {
		if r.filter.RuleMatches(rule, ev) {
			set.add(rule.DestinationURLs...)
		}
	}
	return set.items
}

// orderedSet keeps trimmed, non-blank strings in first-insertion order.
type orderedSet struct {
	items []string
	seen  map[string]struct{}
}

func (o *orderedSet) add(values ...string) {
	if o.seen == nil {
		o.seen = make(map[string]struct{})
	}
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := o.seen[v]; ok {
			continue
		}
		o.seen[v] = struct{}{}
		o.items = append(o.items, v)
	}
}

func union(lists ...[]string) []string {
	var set orderedSet
	for _, l := range lists {
		set.add(l...)
	}
	return set.items
}
