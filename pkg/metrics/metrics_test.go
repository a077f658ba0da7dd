package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordDecision(t *testing.T) {
	before := testutil.ToFloat64(DecisionsTotal.WithLabelValues("update", "approve", "ok"))

	RecordDecision("update", "approve", "ok", 0.02)

	assert.Equal(t, before+1, testutil.ToFloat64(DecisionsTotal.WithLabelValues("update", "approve", "ok")))
}

func TestRecordQueueBuildSetsPendingGauge(t *testing.T) {
	RecordQueueBuild(0.01, map[string]int{"tourist_spots": 4, "events": 0})

	assert.Equal(t, 4.0, testutil.ToFloat64(PendingItems.WithLabelValues("tourist_spots")))
	assert.Equal(t, 0.0, testutil.ToFloat64(PendingItems.WithLabelValues("events")))
}
