package management

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"hookrelay/pkg/cel"
)

func ValidateRoutingRule(req CreateRoutingRuleRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if err := validateDestinations(req.DestinationURLs); err != nil {
		return err
	}
	return validateRegex(req.UseRegex, req.RegexPattern)
}

func ValidateUpdateRoutingRule(req UpdateRoutingRuleRequest) error {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if req.DestinationURLs != nil {
		if err := validateDestinations(*req.DestinationURLs); err != nil {
			return err
		}
	}
	return nil
}

// ValidateFilterCondition checks that expr compiles to a boolean CEL
// condition over a notification event.
func ValidateFilterCondition(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return fmt.Errorf("condition is required")
	}

	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	if err := evaluator.ValidateFilterExpression(expr); err != nil {
		return fmt.Errorf("invalid CEL condition: %w", err)
	}
	return nil
}

func validateDestinations(urls []string) error {
	if len(urls) == 0 {
		return fmt.Errorf("at least one destination_url is required")
	}
	for i, raw := range urls {
		u, err := url.Parse(strings.TrimSpace(raw))
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			return fmt.Errorf("destination_urls[%d] is not a valid http(s) URL", i)
		}
	}
	return nil
}

func validateRegex(useRegex bool, pattern string) error {
	if !useRegex || strings.TrimSpace(pattern) == "" {
		return nil
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return fmt.Errorf("invalid regex_pattern: %w", err)
	}
	return nil
}

// normalizeList trims entries and drops blanks, keeping order.
func normalizeList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
