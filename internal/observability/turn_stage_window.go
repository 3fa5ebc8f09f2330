package observability

import (
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// Stage names recorded per assistant turn.
const (
	StageFirstDelta   = "first_delta"
	StageToolDispatch = "tool_dispatch"
	StageTurnTotal    = "turn_total"
)

// Latency targets the perf endpoint annotates each stage with, in ms.
var stageTargetsP95 = map[string]float64{
	StageFirstDelta:   800,
	StageToolDispatch: 2500,
	StageTurnTotal:    5000,
}

type TurnStageStats struct {
	Stage       string  `json:"stage"`
	Samples     int     `json:"samples"`
	LastMS      float64 `json:"last_ms"`
	AvgMS       float64 `json:"avg_ms"`
	P50MS       float64 `json:"p50_ms"`
	P95MS       float64 `json:"p95_ms"`
	P99MS       float64 `json:"p99_ms"`
	TargetP95MS float64 `json:"target_p95_ms,omitempty"`
}

type TurnIndicator struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type TurnStageSnapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	WindowSize  int              `json:"window_size"`
	Stages      []TurnStageStats `json:"stages"`
	Indicators  []TurnIndicator  `json:"indicators,omitempty"`
}

// turnStageWindow keeps a fixed-size ring of recent per-stage latencies so
// the perf endpoint can report percentiles without scraping Prometheus.
// Indicators count notable one-off events per turn, e.g. a repaired
// tool-call payload.
type turnStageWindow struct {
	mu         sync.RWMutex
	windowSize int
	rings      map[string]*stageRing
	indicators map[string]int
}

// stageRing overwrites oldest samples once seen exceeds the slice length.
type stageRing struct {
	samples []float64
	seen    int
	last    float64
}

func (r *stageRing) add(ms float64) {
	r.samples[r.seen%len(r.samples)] = ms
	r.seen++
	r.last = ms
}

func (r *stageRing) sortedCopy() []float64 {
	n := r.seen
	if n > len(r.samples) {
		n = len(r.samples)
	}
	out := make([]float64, n)
	copy(out, r.samples[:n])
	sort.Float64s(out)
	return out
}

func newTurnStageWindow(windowSize int) *turnStageWindow {
	if windowSize <= 0 {
		windowSize = 256
	}
	return &turnStageWindow{
		windowSize: windowSize,
		rings:      make(map[string]*stageRing),
		indicators: make(map[string]int),
	}
}

func (w *turnStageWindow) Observe(stage string, ms float64) {
	if stage == "" || ms < 0 {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	ring, ok := w.rings[stage]
	if !ok {
		ring = &stageRing{samples: make([]float64, w.windowSize)}
		w.rings[stage] = ring
	}
	ring.add(ms)
}

func (w *turnStageWindow) ObserveIndicator(name string) {
	if w == nil {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.indicators[name]++
}

func (w *turnStageWindow) Snapshot() TurnStageSnapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	stages := make([]TurnStageStats, 0, len(w.rings))
	for _, stage := range sortedKeys(w.rings) {
		if stats, ok := w.rings[stage].stats(stage); ok {
			stages = append(stages, stats)
		}
	}

	indicators := make([]TurnIndicator, 0, len(w.indicators))
	for _, name := range sortedKeys(w.indicators) {
		if count := w.indicators[name]; count > 0 {
			indicators = append(indicators, TurnIndicator{Name: name, Count: count})
		}
	}

	return TurnStageSnapshot{
		GeneratedAt: time.Now().UTC(),
		WindowSize:  w.windowSize,
		Stages:      stages,
		Indicators:  indicators,
	}
}

func (r *stageRing) stats(stage string) (TurnStageStats, bool) {
	sorted := r.sortedCopy()
	if len(sorted) == 0 {
		return TurnStageStats{}, false
	}
	sum := 0.0
	for _, v := range sorted {
		sum += v
	}
	return TurnStageStats{
		Stage:       stage,
		Samples:     len(sorted),
		LastMS:      roundMS(r.last),
		AvgMS:       roundMS(sum / float64(len(sorted))),
		P50MS:       roundMS(quantile(sorted, 0.50)),
		P95MS:       roundMS(quantile(sorted, 0.95)),
		P99MS:       roundMS(quantile(sorted, 0.99)),
		TargetP95MS: stageTargetsP95[stage],
	}, true
}

func (w *turnStageWindow) Reset() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.rings = make(map[string]*stageRing)
	w.indicators = make(map[string]int)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// quantile interpolates linearly between the two nearest ranks.
func quantile(sorted []float64, q float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[len(sorted)-1]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func roundMS(v float64) float64 {
	return math.Round(v*100) / 100
}
