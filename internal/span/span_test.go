package span_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wod-wiki/runtime/internal/span"
)

func TestOpenCloseComputesDuration(t *testing.T) {
	tr := span.NewTracker()
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	rec := tr.Open(ctx, "root.1", "block-a", start)
	require.Equal(t, span.StatusActive, rec.Status)
	assert.True(t, tr.IsOpen("block-a"))

	end := start.Add(45 * time.Second)
	tr.Close("block-a", span.StatusCompleted, end)

	assert.False(t, tr.IsOpen("block-a"))
	history := tr.History()
	require.Len(t, history, 1)
	assert.Equal(t, span.StatusCompleted, history[0].Status)
	assert.Equal(t, 45*time.Second, history[0].Duration)
}

func TestOpenPanicsOnDuplicateBlockID(t *testing.T) {
	tr := span.NewTracker()
	ctx := context.Background()
	tr.Open(ctx, "root.1", "block-a", time.Now())

	assert.Panics(t, func() {
		tr.Open(ctx, "root.1", "block-a", time.Now())
	})
}

func TestCloseOnUnknownBlockIsNoOp(t *testing.T) {
	tr := span.NewTracker()
	assert.NotPanics(t, func() {
		tr.Close("never-opened", span.StatusCompleted, time.Now())
	})
	assert.Empty(t, tr.History())
}

func TestAppendMetricRejectsClosedOrUnknownRecord(t *testing.T) {
	tr := span.NewTracker()
	ctx := context.Background()
	tr.Open(ctx, "root.1", "block-a", time.Now())

	ok := tr.AppendMetric("block-a", span.Metric{Type: span.MetricDistance, Value: 400.0})
	assert.True(t, ok)

	tr.Close("block-a", span.StatusCompleted, time.Now())
	ok = tr.AppendMetric("block-a", span.Metric{Type: span.MetricDistance, Value: 800.0})
	assert.False(t, ok, "appending to a closed record must fail, not silently succeed")

	ok = tr.AppendMetric("never-opened", span.Metric{Type: span.MetricReps, Value: 10})
	assert.False(t, ok)
}

func TestHistoryPreservesOpenOrderAndIsOwnedByCaller(t *testing.T) {
	tr := span.NewTracker()
	ctx := context.Background()
	tr.Open(ctx, "root.1", "block-a", time.Now())
	tr.Open(ctx, "root.2", "block-b", time.Now())

	history := tr.History()
	require.Len(t, history, 2)
	assert.Equal(t, "block-a", history[0].BlockID)
	assert.Equal(t, "block-b", history[1].BlockID)

	history[0] = nil // mutating the returned slice must not affect the tracker
	again := tr.History()
	assert.Equal(t, "block-a", again[0].BlockID)
}
