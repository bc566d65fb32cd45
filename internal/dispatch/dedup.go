package dispatch

import (
	"strings"
	"time"

	"hookrelay/pkg/models"
)

type DedupGuard struct {
	store *StateStore
}

func NewDedupGuard(store *StateStore) *DedupGuard {
	return &DedupGuard{store: store}
}

// Suppress reports whether ev repeats a recent event of the same source.
// Both checks always record the event, whatever the outcome.
func (g *DedupGuard) Suppress(cfg DedupeConfig, ev models.Event, now time.Time) bool {
	suppress, _ := g.suppress(cfg, ev, now)
	return suppress
}

// suppress is Suppress plus a function restoring the slots it overwrote.
// The undo leaves a slot alone if something newer has been recorded since.
func (g *DedupGuard) suppress(cfg DedupeConfig, ev models.Event, now time.Time) (bool, func()) {
	if !cfg.Enabled {
		return false, nil
	}
	window := windowOf(cfg.WindowSeconds)

	var (
		suppress   bool
		hash       string
		prevHash   string
		prevHashAt time.Time
		key        string
		prevTitle  time.Time
		hadTitle   bool
	)
	g.store.With(ev.SourceID, func(st *sourceState) {
		if cfg.ContentHash {
			hash = ContentHash(ev.Title, ev.Text)
			prevHash, prevHashAt = st.lastHash, st.lastHashAt
			if st.lastHash == hash && !st.lastHashAt.IsZero() && now.Sub(st.lastHashAt) <= window {
				suppress = true
			}
			st.lastHash = hash
			st.lastHashAt = now
		}

		if cfg.TitleLatest && strings.TrimSpace(ev.Title) != "" {
			key = TitleKey(ev.SourceID, ev.Title)
			prevTitle, hadTitle = st.titles[key]
			if hadTitle && now.Sub(prevTitle) <= window {
				suppress = true
			}
			st.titles[key] = now
		}
	})

	undo := func() {
		g.store.With(ev.SourceID, func(st *sourceState) {
			if hash != "" && st.lastHash == hash && st.lastHashAt.Equal(now) {
				st.lastHash, st.lastHashAt = prevHash, prevHashAt
			}
			if key != "" && st.titles[key].Equal(now) {
				if hadTitle {
					st.titles[key] = prevTitle
				} else {
					delete(st.titles, key)
				}
			}
		})
	}
	return suppress, undo
}
