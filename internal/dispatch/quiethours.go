package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"hookrelay/pkg/models"
)

// PendingStore is the durable queue of events parked during quiet hours.
type PendingStore interface {
	Append(ctx context.Context, item models.PendingItem) error
	// Drain returns every stored item in insertion order and empties the
	// store atomically.
	Drain(ctx context.Context) ([]models.PendingItem, error)
	// Requeue puts drained items back at the head, in their original order.
	Requeue(ctx context.Context, items []models.PendingItem) error
	Len(ctx context.Context) (int64, error)
}

// QuietActive reports whether now falls inside the quiet window.
func QuietActive(cfg QuietHoursConfig, now time.Time) bool {
	if !cfg.Enabled || cfg.StartMinute == cfg.EndMinute {
		return false
	}

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	local := now.In(loc)

	if len(cfg.Days) > 0 {
		today := int(local.Weekday()) + 1
		found := false
		for _, d := range cfg.Days {
			if d == today {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	minute := local.Hour()*60 + local.Minute()
	if cfg.StartMinute < cfg.EndMinute {
		return minute >= cfg.StartMinute && minute < cfg.EndMinute
	}
	return minute >= cfg.StartMinute || minute < cfg.EndMinute
}

// SummarizePending turns drained items into one summary dispatch per
// source, in order of each source's first appearance.
func SummarizePending(items []models.PendingItem) []Dispatch {
	var order []string
	groups := make(map[string][]models.PendingItem)
	for _, it := range items {
		if _, ok := groups[it.SourceID]; !ok {
			order = append(order, it.SourceID)
		}
		groups[it.SourceID] = append(groups[it.SourceID], it)
	}

	out := make([]Dispatch, 0, len(order))
	for _, src := range order {
		group := groups[src]
		latest := group[len(group)-1]

		lists := [][]string{latest.DestinationURLs}
		for _, it := range group {
			lists = append(lists, it.DestinationURLs)
		}
		dst := union(lists...)
		if len(dst) == 0 {
			continue
		}

		out = append(out, Dispatch{
			Event: models.Event{
				SourceID:   latest.SourceID,
				SourceName: latest.SourceName,
				Title:      latest.Title,
				Text:       pendingSummaryText(len(group), latest),
				Timestamp:  latest.Timestamp,
			},
			Destinations: dst,
			Count:        len(group),
			Released:     true,
		})
	}
	return out
}

func pendingSummaryText(n int, latest models.PendingItem) string {
	noun := "items"
	if n == 1 {
		noun = "item"
	}

	parts := make([]string, 0, 2)
	if t := strings.TrimSpace(latest.Title); t != "" {
		parts = append(parts, t)
	}
	if t := strings.TrimSpace(latest.Text); t != "" {
		parts = append(parts, t)
	}
	return fmt.Sprintf("%d suppressed %s, latest: %s", n, noun, strings.Join(parts, " — "))
}
