// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/v1/intelligence", "200"))
	RecordAPIRequest("GET", "/v1/intelligence", "200", 5*time.Millisecond)
	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/v1/intelligence", "200"))
	if after != before+1 {
		t.Fatalf("threadline_http_requests_total = %v, want %v", after, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(HTTPActiveRequests); got != before+1 {
		t.Fatalf("active requests after increment = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(HTTPActiveRequests); got != before {
		t.Fatalf("active requests after decrement = %v, want %v", got, before)
	}
}

// TestMetricGathering runs Prometheus's consistency linter over the
// default registry, logging any lint problem it reports; the test fails
// only if gathering itself returns an error.
func TestMetricGathering(t *testing.T) {
	ProcessorRecordsProcessed.Inc()
	AnalyzerResultsProduced.WithLabelValues("sentiment").Inc()
	AggregatorMerges.WithLabelValues("pii").Inc()

	problems, err := testutil.GatherAndLint(prometheus.DefaultGatherer)
	if err != nil {
		t.Fatalf("GatherAndLint: %v", err)
	}
	for _, p := range problems {
		t.Logf("metric lint problem: %s: %s", p.Metric, p.Text)
	}
}

func TestAggregatorMergesLabels(t *testing.T) {
	before := testutil.ToFloat64(AggregatorMerges.WithLabelValues("sentiment"))
	AggregatorMerges.WithLabelValues("sentiment").Inc()
	if got := testutil.ToFloat64(AggregatorMerges.WithLabelValues("sentiment")); got != before+1 {
		t.Fatalf("threadline_aggregator_merges_total{kind=sentiment} = %v, want %v", got, before+1)
	}
}
