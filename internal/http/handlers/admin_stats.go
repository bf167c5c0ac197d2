package handlers

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/artchaos/booking-platform/internal/audit"
	observemetrics "github.com/artchaos/booking-platform/internal/observability/metrics"
	"github.com/artchaos/booking-platform/pkg/logging"
)

// StatsSource computes the stats summary from the audit store.
type StatsSource interface {
	Overview(ctx context.Context, now time.Time) (*audit.Overview, error)
}

var _ StatsSource = (*audit.Store)(nil)

// AdminStatsHandler serves the owner's stats summary: counts from the audit
// store plus a decision-latency snapshot pulled out of the process metrics.
type AdminStatsHandler struct {
	stats    StatsSource
	gatherer prometheus.Gatherer
	loc      *time.Location
	logger   *logging.Logger
}

// NewAdminStatsHandler creates the stats handler. A nil gatherer falls back
// to the default registry.
func NewAdminStatsHandler(stats StatsSource, gatherer prometheus.Gatherer, loc *time.Location, logger *logging.Logger) *AdminStatsHandler {
	if stats == nil {
		panic("handlers: stats source required")
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminStatsHandler{stats: stats, gatherer: gatherer, loc: loc, logger: logger}
}

// StatsResponse is the summary payload.
type StatsResponse struct {
	*audit.Overview
	DecisionLatency LatencySnapshot `json:"decision_latency"`
}

// LatencySnapshot summarizes the booking decision histogram since process
// start.
type LatencySnapshot struct {
	Samples int64   `json:"samples"`
	P95Ms   float64 `json:"p95_ms"`
}

// Overview returns the stats summary.
// Route: GET /api/v1/admin/stats
func (h *AdminStatsHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.stats.Overview(r.Context(), time.Now().In(h.loc))
	if err != nil {
		h.logger.Error("admin stats failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(StatsResponse{
		Overview:        overview,
		DecisionLatency: snapshotDecisionLatency(h.gatherer),
	})
}

// snapshotDecisionLatency reads the decision histogram from the gatherer and
// estimates p95 by linear interpolation within its buckets.
func snapshotDecisionLatency(gatherer prometheus.Gatherer) LatencySnapshot {
	mfs, err := gatherer.Gather()
	if err != nil {
		return LatencySnapshot{}
	}

	var family *dto.MetricFamily
	for _, mf := range mfs {
		if mf != nil && mf.GetName() == observemetrics.DecisionSecondsMetric {
			family = mf
			break
		}
	}
	if family == nil || len(family.Metric) == 0 {
		return LatencySnapshot{}
	}

	hist := family.Metric[0].GetHistogram()
	if hist == nil || hist.GetSampleCount() == 0 {
		return LatencySnapshot{}
	}

	total := hist.GetSampleCount()
	target := uint64(math.Ceil(0.95 * float64(total)))

	var p95, prevUpper float64
	var prevCum uint64
	found := false
	for _, b := range hist.Bucket {
		if b == nil {
			continue
		}
		upper := b.GetUpperBound()
		cum := b.GetCumulativeCount()
		if cum >= target {
			switch {
			case math.IsInf(upper, 1), cum == prevCum:
				p95 = prevUpper
			default:
				p95 = prevUpper + (upper-prevUpper)*float64(target-prevCum)/float64(cum-prevCum)
			}
			found = true
			break
		}
		prevUpper = upper
		prevCum = cum
	}
	if !found {
		// Everything above the last finite bucket.
		p95 = prevUpper
	}

	return LatencySnapshot{Samples: int64(total), P95Ms: p95 * 1000}
}
