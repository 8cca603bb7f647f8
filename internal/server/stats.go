package server

import (
	"encoding/json"
	"maps"
	"net/http"
	"sync"
	"time"

	"github.com/aframevr/aframe-sub002/internal/core/events/bus"
	"github.com/aframevr/aframe-sub002/internal/core/observability/log"
)

// busStats observes deliveries on the scene bus. Registering it also turns
// on the bus's own counters.
type busStats struct {
	mu      sync.Mutex
	counts  map[string]uint64
	slowest time.Duration
	slowOn  string
}

func newBusStats() *busStats {
	return &busStats{counts: make(map[string]uint64)}
}

func (s *busStats) OnPublish(_, eventType string, _ bus.Event) {
	s.mu.Lock()
	s.counts[eventType]++
	s.mu.Unlock()
}

func (s *busStats) OnDelivered(_, eventType string, _ int, _ error, d time.Duration) {
	s.mu.Lock()
	if d > s.slowest {
		s.slowest, s.slowOn = d, eventType
	}
	s.mu.Unlock()
}

// Stats is the /stats response body.
type Stats struct {
	Bus     bus.EventBusMetrics `json:"bus"`
	Topics  []bus.TopicInfo     `json:"topics"`
	Events  map[string]uint64   `json:"events"`
	Slowest string              `json:"slowest_delivery,omitempty"`
	SlowOn  string              `json:"slowest_event,omitempty"`
	Clients int                 `json:"clients"`
}

// Stats reports bus counters and per-type publish counts since the inspector
// was created.
func (i *Inspector) Stats() Stats {
	i.stats.mu.Lock()
	out := Stats{Events: maps.Clone(i.stats.counts), SlowOn: i.stats.slowOn}
	if i.stats.slowest > 0 {
		out.Slowest = i.stats.slowest.String()
	}
	i.stats.mu.Unlock()

	out.Bus = i.bus.GetMetrics()
	out.Topics = i.bus.GetTopics()
	out.Clients = i.stream.Clients()
	return out
}

func (i *Inspector) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(i.Stats()); err != nil {
		i.log.Debug("stats response aborted", log.Error(err))
	}
}
