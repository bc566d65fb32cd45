// Package settings builds the dispatch settings snapshot from the config
// file and the routing rules stored in PostgreSQL.
package settings

import (
	"fmt"
	"strings"
	"time"

	"hookrelay/internal/config"
	"hookrelay/internal/dispatch"
	"hookrelay/internal/render"
)

// FromConfig converts the file-backed dispatch section into a snapshot
// without routing rules.
func FromConfig(cfg config.DispatchConfig) (dispatch.Settings, error) {
	s := dispatch.Settings{
		DefaultDestination: strings.TrimSpace(cfg.DefaultWebhookURL),
		SourceOverrides:    make(map[string]string, len(cfg.SourceOverrides)),
		Filter: dispatch.FilterConfig{
			ExcludeSummary: cfg.Filter.ExcludeSummary,
			ChannelIDs:     cfg.Filter.ChannelIDs,
			MinImportance:  cfg.Filter.MinImportance,
			Keywords:       cfg.Filter.Keywords,
			UseRegex:       cfg.Filter.UseRegex,
			RegexPattern:   cfg.Filter.RegexPattern,
			Condition:      cfg.Filter.Condition,
		},
		Dedupe: dispatch.DedupeConfig{
			Enabled:       cfg.Dedupe.Enabled,
			ContentHash:   cfg.Dedupe.ContentHash,
			TitleLatest:   cfg.Dedupe.TitleLatest,
			WindowSeconds: cfg.Dedupe.WindowSeconds,
		},
		RateLimit: dispatch.RateLimitConfig{
			Enabled:       cfg.RateLimit.Enabled,
			MaxPerWindow:  cfg.RateLimit.MaxPerWindow,
			WindowSeconds: cfg.RateLimit.WindowSeconds,
		},
		Aggregate: dispatch.AggregateConfig{
			Enabled:       cfg.Aggregate.Enabled,
			WindowSeconds: cfg.Aggregate.WindowSeconds,
		},
	}

	for _, o := range cfg.SourceOverrides {
		id := strings.TrimSpace(o.SourceID)
		if id == "" {
			continue
		}
		s.SourceOverrides[id] = strings.TrimSpace(o.URL)
	}

	for _, r := range cfg.Rules {
		name := strings.TrimSpace(r.Name)
		s.Rules = append(s.Rules, dispatch.RoutingRule{
			ID:              "config:" + name,
			Name:            name,
			Enabled:         !r.Disabled,
			SourceIDs:       r.SourceIDs,
			Keywords:        r.Keywords,
			UseRegex:        r.UseRegex,
			RegexPattern:    r.RegexPattern,
			DestinationURLs: r.DestinationURLs,
		})
	}

	loc, err := loadLocation(cfg.QuietHours.Location)
	if err != nil {
		return dispatch.Settings{}, err
	}

	if cfg.QuietHours.Enabled {
		start, err := config.ParseClock(cfg.QuietHours.Start)
		if err != nil {
			return dispatch.Settings{}, fmt.Errorf("quiet_hours.start: %w", err)
		}
		end, err := config.ParseClock(cfg.QuietHours.End)
		if err != nil {
			return dispatch.Settings{}, fmt.Errorf("quiet_hours.end: %w", err)
		}
		s.QuietHours = dispatch.QuietHoursConfig{
			Enabled:     true,
			StartMinute: start,
			EndMinute:   end,
			Days:        cfg.QuietHours.Days,
			Location:    loc,
		}
	}

	s.Render = render.Options{
		UseEmbed:       cfg.Render.UseEmbed,
		SummaryContent: cfg.Render.SummaryContent,
		Template:       cfg.Render.Template,
		MaxFieldLength: cfg.Render.MaxFieldLength,
		DeviceName:     cfg.Render.DeviceName,
		TimeFormat:     cfg.Render.TimeFormat,
		Location:       loc,
		Attachments:    cfg.Render.Attachments,
	}

	return s, nil
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("unknown location %q: %w", name, err)
	}
	return loc, nil
}
