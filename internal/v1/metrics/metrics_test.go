package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestMetricsRegistration(t *testing.T) {
	checkMetric := func(name string, collector prometheus.Collector) {
		ch := make(chan prometheus.Metric, 10)
		collector.Collect(ch)
		close(ch)

		var found bool
		for m := range ch {
			if strings.Contains(m.Desc().String(), name) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected metric %q to be collectible", name)
		}
	}

	checkMetric("broker_websocket_connections_active", ActiveConnections)
	checkMetric("broker_room_rooms_active", ActiveRooms)
	checkMetric("broker_rate_limit_exceeded_total", RateLimitExceededTotal)
}

func TestIncDecConnection(t *testing.T) {
	before := testCollectGauge(t, ActiveConnections)
	IncConnection()
	IncConnection()
	DecConnection()
	after := testCollectGauge(t, ActiveConnections)

	if after != before+1 {
		t.Fatalf("expected gauge to net +1, got before=%v after=%v", before, after)
	}
}

func testCollectGauge(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	g.Collect(ch)
	close(ch)
	var pb dto.Metric
	for m := range ch {
		if err := m.Write(&pb); err != nil {
			t.Fatal(err)
		}
	}
	return pb.GetGauge().GetValue()
}
