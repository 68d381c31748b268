package ecr

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestMetricsCollectorDescribeAndCollect(t *testing.T) {
	reg := NewRegistry()
	reg.Insert(rPosition{})

	collector := NewMetricsCollector(reg, "test")

	descCh := make(chan *prometheus.Desc, 8)
	collector.Describe(descCh)
	close(descCh)
	descCount := 0
	for range descCh {
		descCount++
	}
	if descCount != 4 {
		t.Errorf("Describe emitted %d descriptors, want 4", descCount)
	}

	metricCh := make(chan prometheus.Metric, 8)
	collector.Collect(metricCh)
	close(metricCh)
	metricCount := 0
	for range metricCh {
		metricCount++
	}
	if metricCount != 4 {
		t.Errorf("Collect emitted %d metrics, want 4", metricCount)
	}
}
