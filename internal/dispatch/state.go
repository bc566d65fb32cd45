package dispatch

import (
	"hash/fnv"
	"sync"
	"time"

	"hookrelay/pkg/models"
)

const DefaultShards = 32

// sourceState is everything the pipeline remembers about one source.
type sourceState struct {
	lastHash   string
	lastHashAt time.Time
	titles     map[string]time.Time
	sends      []time.Time
	aggregate  *AggregateState
}

type AggregateState struct {
	WindowStart  time.Time
	Count        int
	Latest       models.Event
	Destinations []string
}

type shard struct {
	mu      sync.Mutex
	sources map[string]*sourceState
}

// StateStore holds dedup, rate and aggregation state keyed by source id.
// Sources hash onto a fixed set of mutex-guarded shards, so work on
// different sources rarely contends while a single source is serialized.
type StateStore struct {
	shards []*shard
}

func NewStateStore(shards int) *StateStore {
	if shards < 1 {
		shards = DefaultShards
	}
	s := &StateStore{shards: make([]*shard, shards)}
	for i := range s.shards {
		s.shards[i] = &shard{sources: make(map[string]*sourceState)}
	}
	return s
}

func (s *StateStore) shardFor(sourceID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sourceID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// With runs fn with exclusive access to the state of sourceID.
func (s *StateStore) With(sourceID string, fn func(st *sourceState)) {
	sh := s.shardFor(sourceID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	st, ok := sh.sources[sourceID]
	if !ok {
		st = &sourceState{titles: make(map[string]time.Time)}
		sh.sources[sourceID] = st
	}
	fn(st)
}

// Range visits every source, holding one shard lock at a time.
func (s *StateStore) Range(fn func(sourceID string, st *sourceState)) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, st := range sh.sources {
			fn(id, st)
		}
		sh.mu.Unlock()
	}
}
