package test

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/droneops/app"
	"github.com/kilianp07/droneops/core/reassign"
	"github.com/kilianp07/droneops/infra/logger"
	"github.com/kilianp07/droneops/infra/metrics"
	"github.com/kilianp07/droneops/test/util"
)

func TestMetricsEndpointReportsActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	svc := loadService(t, app.WithMetricsSink(sink))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	metrics.StartEventCollector(ctx, svc.Hub(), sink, logger.NopLogger{})

	srv := httptest.NewServer(metrics.Handler(reg))
	defer srv.Close()

	_, err = svc.DetectConflicts("")
	require.NoError(t, err)
	_, err = svc.MatchPilots("PRJ001")
	require.NoError(t, err)
	_, err = svc.ExecuteReassignment(ctx, reassign.Request{MissionID: "PRJ002", PilotID: "P002"})
	require.NoError(t, err)
	svc.FlushSync(ctx)

	waitCtx, stop := context.WithTimeout(ctx, util.MetricTimeout)
	defer stop()
	for _, m := range []string{
		"detection_passes_total 1",
		`detected_conflicts{severity="Critical"}`,
		`match_requests_total{empty="false",kind="pilot"} 1`,
		`reassignments_total{outcome="executed"} 1`,
		"sync_queue_pending 0",
	} {
		require.NoError(t, util.WaitForMetric(waitCtx, srv.URL, m))
	}
}
