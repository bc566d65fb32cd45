package dispatch

import (
	"sort"
	"time"

	"hookrelay/internal/logger"
	"hookrelay/pkg/models"
)

type DecisionKind int

const (
	// SendNow dispatches the event immediately.
	SendNow DecisionKind = iota
	// Hold folds the event into an open aggregation window.
	Hold
)

func (k DecisionKind) String() string {
	if k == Hold {
		return "hold"
	}
	return "send_now"
}

type Decision struct {
	Kind DecisionKind
	// Count is the window size after this event.
	Count int
}

// Dispatch is one send of an event to a destination set. Count > 1 marks a
// summary of several events.
type Dispatch struct {
	Event        models.Event
	Destinations []string
	Count        int
	// Released marks a summary of events parked during quiet hours.
	Released bool
}

type Aggregator struct {
	store  *StateStore
	logger logger.Logger
}

func NewAggregator(store *StateStore, log logger.Logger) *Aggregator {
	return &Aggregator{store: store, logger: log}
}

// FlushExpired closes every window at least windowSeconds old. Windows that
// merged more than one event become a summary dispatch; single-event
// windows already went out and are dropped.
func (a *Aggregator) FlushExpired(now time.Time, windowSeconds int) []Dispatch {
	out, _ := a.flushExpired(now, windowSeconds)
	return out
}

// flushExpired is FlushExpired plus a function putting the closed windows
// back, unless the source opened a new one in the meantime.
func (a *Aggregator) flushExpired(now time.Time, windowSeconds int) ([]Dispatch, func()) {
	window := windowOf(windowSeconds)

	type flushed struct {
		start time.Time
		d     Dispatch
	}
	var (
		out    []flushed
		closed = make(map[string]*AggregateState)
	)

	a.store.Range(func(sourceID string, st *sourceState) {
		agg := st.aggregate
		if agg == nil {
			return
		}
		if agg.Count <= 0 {
			a.logger.Errorw("Aggregate entry with non-positive count, resetting",
				"source_id", sourceID,
				"count", agg.Count,
			)
			st.aggregate = nil
			return
		}
		if now.Sub(agg.WindowStart) < window {
			return
		}

		st.aggregate = nil
		closed[sourceID] = agg
		if agg.Count > 1 {
			out = append(out, flushed{
				start: agg.WindowStart,
				d: Dispatch{
					Event:        agg.Latest,
					Destinations: agg.Destinations,
					Count:        agg.Count,
				},
			})
		}
	})

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].start.Equal(out[j].start) {
			return out[i].start.Before(out[j].start)
		}
		return out[i].d.Event.SourceID < out[j].d.Event.SourceID
	})

	dispatches := make([]Dispatch, len(out))
	for i, f := range out {
		dispatches[i] = f.d
	}
	if len(closed) == 0 {
		return dispatches, nil
	}

	return dispatches, func() {
		for sourceID, agg := range closed {
			a.store.With(sourceID, func(st *sourceState) {
				if st.aggregate == nil {
					st.aggregate = agg
				}
			})
		}
	}
}

// Decide opens, extends or bypasses the aggregation window for ev.
func (a *Aggregator) Decide(cfg AggregateConfig, ev models.Event, destinations []string, now time.Time) Decision {
	d, _ := a.decide(cfg, ev, destinations, now)
	return d
}

// decide is Decide plus a function reverting the window to what it was
// before ev, as long as no later event touched it.
func (a *Aggregator) decide(cfg AggregateConfig, ev models.Event, destinations []string, now time.Time) (Decision, func()) {
	if !cfg.Enabled || cfg.WindowSeconds <= 0 {
		return Decision{Kind: SendNow, Count: 1}, nil
	}
	window := windowOf(cfg.WindowSeconds)

	var (
		d    Decision
		undo func()
	)
	a.store.With(ev.SourceID, func(st *sourceState) {
		prev := st.aggregate
		agg := prev
		if agg != nil && agg.Count <= 0 {
			a.logger.Errorw("Aggregate entry with non-positive count, resetting",
				"source_id", ev.SourceID,
				"count", agg.Count,
			)
			agg = nil
			prev = nil
		}

		if agg == nil || now.Sub(agg.WindowStart) >= window {
			opened := &AggregateState{
				WindowStart:  now,
				Count:        1,
				Latest:       ev,
				Destinations: union(destinations),
			}
			st.aggregate = opened
			d = Decision{Kind: SendNow, Count: 1}
			undo = func() {
				a.store.With(ev.SourceID, func(st *sourceState) {
					if st.aggregate == opened {
						st.aggregate = prev
					}
				})
			}
			return
		}

		prevLatest, prevDst := agg.Latest, agg.Destinations
		agg.Count++
		agg.Latest = ev
		agg.Destinations = union(agg.Destinations, destinations)
		d = Decision{Kind: Hold, Count: agg.Count}

		count := agg.Count
		undo = func() {
			a.store.With(ev.SourceID, func(st *sourceState) {
				if st.aggregate == agg && agg.Count == count {
					agg.Count--
					agg.Latest = prevLatest
					agg.Destinations = prevDst
				}
			})
		}
	})
	return d, undo
}
