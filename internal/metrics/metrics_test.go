package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserversAfterInit(t *testing.T) {
	Init(prometheus.NewRegistry())

	before := testutil.ToFloat64(batchTransitions.WithLabelValues("approved"))
	ObserveTransition("approved")
	if got := testutil.ToFloat64(batchTransitions.WithLabelValues("approved")); got != before+1 {
		t.Fatalf("expected approved transitions %v, got %v", before+1, got)
	}

	SetDashboard(3, 2, 1, 450.5)
	if got := testutil.ToFloat64(dashboardBatches.WithLabelValues("pending")); got != 3 {
		t.Fatalf("expected pending gauge 3, got %v", got)
	}
	if got := testutil.ToFloat64(dashboardPaidAmount); got != 450.5 {
		t.Fatalf("expected paid gauge 450.5, got %v", got)
	}
}
