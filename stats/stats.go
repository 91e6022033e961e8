// Package stats tracks verification counters and derives the DEFCON level
// shown by the service.
package stats

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "newsledger"

// DEFCON levels, from calm to critical.
const (
	DefconLow      = "LEVEL 5 (LOW)"
	DefconElevated = "LEVEL 3 (ELEVATED)"
	DefconHigh     = "LEVEL 2 (HIGH)"
	DefconCritical = "LEVEL 1 (CRITICAL)"
)

// Snapshot is the JSON shape served on /stats.
type Snapshot struct {
	Scans   int64  `json:"scans_today"`
	Threats int64  `json:"threats_blocked"`
	Nodes   int    `json:"nodes_active"`
	Defcon  string `json:"defcon"`
}

// Stats counts scans and threats and mirrors them into Prometheus metrics.
type Stats struct {
	mu      sync.RWMutex
	scans   int64
	threats int64
	nodes   int

	scansTotal   prometheus.Counter
	threatsTotal *prometheus.CounterVec
	blocksTotal  prometheus.Counter
	fallbacks    prometheus.Counter
	defconLevel  prometheus.Gauge
}

// New registers the metrics on reg and returns zeroed counters.
func New(reg prometheus.Registerer) *Stats {
	factory := promauto.With(reg)
	s := &Stats{
		nodes: 1,
		scansTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scans_total",
			Help:      "Verification requests processed.",
		}),
		threatsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "threats_total",
			Help:      "Verifications that ended with a Fake or Malicious verdict.",
		}, []string{"verdict"}),
		blocksTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "blocks_committed_total",
			Help:      "Blocks appended to the ledger.",
		}),
		fallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fallback_hashes_total",
			Help:      "Verifications answered with a timestamp hash because the ledger refused the block.",
		}),
		defconLevel: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "defcon_level",
			Help:      "Current DEFCON level, 5 is calm and 1 critical.",
		}),
	}
	s.defconLevel.Set(5)
	return s
}

// RecordScan counts one verification request.
func (s *Stats) RecordScan() {
	s.mu.Lock()
	s.scans++
	level := s.defconLocked()
	s.mu.Unlock()

	s.scansTotal.Inc()
	s.defconLevel.Set(levelNumber(level))
}

// RecordThreat counts a Fake or Malicious verdict.
func (s *Stats) RecordThreat(verdict string) {
	s.mu.Lock()
	s.threats++
	level := s.defconLocked()
	s.mu.Unlock()

	s.threatsTotal.WithLabelValues(verdict).Inc()
	s.defconLevel.Set(levelNumber(level))
}

// RecordBlock counts a committed block.
func (s *Stats) RecordBlock() {
	s.blocksTotal.Inc()
}

// RecordFallback counts a verification anchored with a fallback hash.
func (s *Stats) RecordFallback() {
	s.fallbacks.Inc()
}

// Snapshot returns the current counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Snapshot{
		Scans:   s.scans,
		Threats: s.threats,
		Nodes:   s.nodes,
		Defcon:  s.defconLocked(),
	}
}

func (s *Stats) defconLocked() string {
	return Defcon(s.threats, s.scans)
}

// Defcon maps the threat ratio to a level.
func Defcon(threats, scans int64) string {
	if scans < 1 {
		scans = 1
	}
	ratio := float64(threats) / float64(scans)
	switch {
	case ratio > 0.5:
		return DefconCritical
	case ratio > 0.2:
		return DefconHigh
	case ratio > 0.05:
		return DefconElevated
	default:
		return DefconLow
	}
}

func levelNumber(level string) float64 {
	switch level {
	case DefconCritical:
		return 1
	case DefconHigh:
		return 2
	case DefconElevated:
		return 3
	default:
		return 5
	}
}
