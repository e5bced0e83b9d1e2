package service

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jjenkins/wcivf/internal/store"
)

// MetricsService calculates and stores row counts and last-run figures
type MetricsService struct {
	repo store.Repository
}

// NewMetricsService creates a new MetricsService
func NewMetricsService(repo store.Repository) *MetricsService {
	return &MetricsService{repo: repo}
}

// SystemMetrics represents calculated system-wide metrics
type SystemMetrics struct {
	Counts         store.RowCounts
	LastRunID      string
	LastRunBallots int
}

type metricValue struct {
	name  string
	value string
}

// CalculateAndStore counts rows and stores them alongside the figures of the given run
func (m *MetricsService) CalculateAndStore(ctx context.Context, run *RunStats) (*SystemMetrics, error) {
	counts, err := m.repo.CountRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count rows: %w", err)
	}

	metrics := &SystemMetrics{Counts: *counts}
	values := []metricValue{
		{"total_elections", strconv.Itoa(counts.Elections)},
		{"total_posts", strconv.Itoa(counts.Posts)},
		{"total_ballots", strconv.Itoa(counts.Ballots)},
		{"cancelled_ballots", strconv.Itoa(counts.Cancelled)},
		{"total_people", strconv.Itoa(counts.People)},
		{"total_candidacies", strconv.Itoa(counts.Candidacies)},
	}

	if run != nil {
		metrics.LastRunID = run.RunID
		metrics.LastRunBallots = run.Ballots
		values = append(values,
			metricValue{"last_run_id", run.RunID},
			metricValue{"last_run_ballots", strconv.Itoa(run.Ballots)},
			metricValue{"last_run_skipped", strconv.Itoa(run.Skipped)},
		)
	}

	for _, v := range values {
		if err := m.repo.RecordMetric(ctx, v.name, v.value); err != nil {
			return nil, err
		}
	}

	return metrics, nil
}

// GetLatestMetrics retrieves the most recent value of every metric
func (m *MetricsService) GetLatestMetrics(ctx context.Context) (map[string]string, error) {
	return m.repo.LatestMetrics(ctx)
}
