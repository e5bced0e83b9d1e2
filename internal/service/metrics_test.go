package service

import (
	"context"
	"testing"

	"github.com/jjenkins/wcivf/internal/store/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCalculateAndStore(t *testing.T) {
	ctx := context.Background()
	repo := memory.New()
	seedBallot(t, repo, "local.sheffield.2021-05-06", "XXX:fulwood", "local.sheffield.fulwood.2021-05-06")

	svc := NewMetricsService(repo)
	metrics, err := svc.CalculateAndStore(ctx, &RunStats{RunID: "run-1", Ballots: 1, Skipped: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, metrics.Counts.Ballots)
	assert.Equal(t, "run-1", metrics.LastRunID)

	latest, err := svc.GetLatestMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1", latest["total_elections"])
	assert.Equal(t, "1", latest["total_ballots"])
	assert.Equal(t, "run-1", latest["last_run_id"])
	assert.Equal(t, "2", latest["last_run_skipped"])

	_, err = svc.CalculateAndStore(ctx, nil)
	require.NoError(t, err)
	latest, err = svc.GetLatestMetrics(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-1", latest["last_run_id"])
}
