package dispatch

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"hookrelay/internal/logger"
	"hookrelay/pkg/cel"
	"hookrelay/pkg/models"
)

// Filter evaluates the global filter and routing rule triggers. Compiled
// regexes are cached per pattern, including failed compilations.
type Filter struct {
	evaluator *cel.Evaluator
	logger    logger.Logger

	mu      sync.RWMutex
	regexes map[string]*regexp.Regexp
}

func NewFilter(evaluator *cel.Evaluator, log logger.Logger) *Filter {
	return &Filter{
		evaluator: evaluator,
		logger:    log,
		regexes:   make(map[string]*regexp.Regexp),
	}
}

// SearchText is the haystack for keywords and regexes.
func SearchText(ev models.Event) string {
	return strings.Join([]string{ev.SourceName, ev.Title, ev.Text, ev.SourceID}, "\n")
}

// Allow applies the global filter to ev.
func (f *Filter) Allow(ctx context.Context, cfg FilterConfig, ev models.Event) bool {
	if cfg.ExcludeSummary && ev.IsSummary {
		return false
	}
	if len(cfg.ChannelIDs) > 0 && !contains(cfg.ChannelIDs, ev.CategoryID) {
		return false
	}
	if ev.Importance < cfg.MinImportance {
		return false
	}
	if !f.Match(cfg.Keywords, cfg.UseRegex, cfg.RegexPattern, SearchText(ev)) {
		return false
	}
	if strings.TrimSpace(cfg.Condition) == "" || f.evaluator == nil {
		return true
	}

	ok, err := f.evaluator.EvaluateFilter(ctx, cfg.Condition, ev)
	if err != nil {
		f.logger.WarnwCtx(ctx, "Filter condition failed, treating as no match",
			"condition", cfg.Condition,
			"error", err,
		)
		return false
	}
	return ok
}

// RuleMatches reports whether an enabled rule applies to ev.
func (f *Filter) RuleMatches(rule RoutingRule, ev models.Event) bool {
	if !rule.Enabled {
		return false
	}
	if len(rule.SourceIDs) > 0 && !contains(rule.SourceIDs, ev.SourceID) {
		return false
	}
	return f.Match(rule.Keywords, rule.UseRegex, rule.RegexPattern, SearchText(ev))
}

// Match implements the keyword/regex table:
//
//	no keywords, no regex  -> true
//	no keywords, regex     -> regex
//	keywords, no regex     -> any keyword (case-insensitive substring)
//	keywords, regex        -> any keyword || regex
func (f *Filter) Match(keywords []string, useRegex bool, pattern, text string) bool {
	kw := nonBlank(keywords)

	if len(kw) == 0 && !useRegex {
		return true
	}
	if len(kw) > 0 && matchKeywords(kw, text) {
		return true
	}
	if useRegex {
		return f.matchRegex(pattern, text)
	}
	return false
}

func matchKeywords(keywords []string, text string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, strings.ToLower(k)) {
			return true
		}
	}
	return false
}

func (f *Filter) matchRegex(pattern, text string) bool {
	if pattern == "" {
		return false
	}
	re := f.compile(pattern)
	return re != nil && re.MatchString(text)
}

func (f *Filter) compile(pattern string) *regexp.Regexp {
	f.mu.RLock()
	re, ok := f.regexes[pattern]
	f.mu.RUnlock()
	if ok {
		return re
	}

	re, err := regexp.Compile(pattern)
	if err != nil {
		f.logger.Warnw("Invalid regex pattern, treating as no match", "pattern", pattern, "error", err)
		re = nil
	}

	f.mu.Lock()
	f.regexes[pattern] = re
	f.mu.Unlock()
	return re
}

func nonBlank(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
