package report

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

// StateShare is the count and fleet-wide percentage of one cleanliness state.
type StateShare struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// BusDirtyCount ranks a bus by its dirty inspection count.
type BusDirtyCount struct {
	BusPlate   string `json:"bus_plate"`
	DirtyCount int    `json:"dirty_count"`
}

// OperatorStats aggregates one submitter's inspections over the period.
type OperatorStats struct {
	Name       string  `json:"name"`
	Total      int     `json:"total"`
	CleanCount int     `json:"clean_count"`
	CleanRate  float64 `json:"clean_rate"`
}

// Summary holds aggregate inspection statistics for a date range.
type Summary struct {
	From                time.Time             `json:"from"`
	To                  time.Time             `json:"to"`
	TotalEvents         int                   `json:"total_events"`
	ByState             map[string]StateShare `json:"by_state"`
	TopDirtyBuses       []BusDirtyCount       `json:"top_dirty_buses"`
	OperatorPerformance []OperatorStats       `json:"operator_performance"`
}

// topDirtyBusLimit caps the ranked bus list.
const topDirtyBusLimit = 10

// Summarize aggregates all fleet events in [from, to]: totals, per-state
// shares, the buses with the most dirty inspections, and per-operator clean
// rates.
func (e *Exporter) Summarize(ctx context.Context, from, to time.Time) (*Summary, error) {
	rows, err := e.collect(ctx, "", from, to)
	if err != nil {
		return nil, err
	}

	s := &Summary{
		From:        from,
		To:          to,
		TotalEvents: len(rows),
		ByState:     make(map[string]StateShare),
	}

	stateCounts := make(map[string]int)
	dirtyByPlate := make(map[string]int)
	type operatorAgg struct {
		total int
		clean int
	}
	operators := make(map[string]*operatorAgg)

	for _, r := range rows {
		stateCounts[r.State]++
		if r.State == string(models.StateDirty) && r.BusPlate != "" {
			dirtyByPlate[r.BusPlate]++
		}
		agg, ok := operators[r.SubmittedBy]
		if !ok {
			agg = &operatorAgg{}
			operators[r.SubmittedBy] = agg
		}
		agg.total++
		if r.State == string(models.StateClean) {
			agg.clean++
		}
	}

	// Every state appears in the breakdown even when its count is zero.
	for _, state := range []models.CleanState{models.StateClean, models.StateDirty, models.StateUncertain} {
		count := stateCounts[string(state)]
		s.ByState[string(state)] = StateShare{
			Count:      count,
			Percentage: percentage(count, s.TotalEvents),
		}
	}

	for plate, count := range dirtyByPlate {
		s.TopDirtyBuses = append(s.TopDirtyBuses, BusDirtyCount{BusPlate: plate, DirtyCount: count})
	}
	sort.Slice(s.TopDirtyBuses, func(i, j int) bool {
		if s.TopDirtyBuses[i].DirtyCount != s.TopDirtyBuses[j].DirtyCount {
			return s.TopDirtyBuses[i].DirtyCount > s.TopDirtyBuses[j].DirtyCount
		}
		return s.TopDirtyBuses[i].BusPlate < s.TopDirtyBuses[j].BusPlate
	})
	if len(s.TopDirtyBuses) > topDirtyBusLimit {
		s.TopDirtyBuses = s.TopDirtyBuses[:topDirtyBusLimit]
	}

	for name, agg := range operators {
		s.OperatorPerformance = append(s.OperatorPerformance, OperatorStats{
			Name:       name,
			Total:      agg.total,
			CleanCount: agg.clean,
			CleanRate:  percentage(agg.clean, agg.total),
		})
	}
	sort.Slice(s.OperatorPerformance, func(i, j int) bool {
		return s.OperatorPerformance[i].Name < s.OperatorPerformance[j].Name
	})

	return s, nil
}

// percentage returns part of total as a percent rounded to one decimal.
func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(part)/float64(total)*1000) / 10
}
