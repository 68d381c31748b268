package ecr

import "github.com/prometheus/client_golang/prometheus"

// MetricsCollector exposes a Registry's LiveStats as Prometheus gauges. It
// is a custom prometheus.Collector rather than a set of registered globals,
// so a process hosting multiple Registries can register one collector per
// instance without metric-name collisions (the collector takes the label
// values at construction time, not at collect time).
type MetricsCollector struct {
	registry *Registry

	entitiesDesc   *prometheus.Desc
	archetypesDesc *prometheus.Desc
	avgCompDesc    *prometheus.Desc
	bytesDesc      *prometheus.Desc
}

// NewMetricsCollector builds a collector for r, tagging every exposed metric
// with the given instance label so multiple registries remain distinguishable
// once registered with the same prometheus.Registerer.
func NewMetricsCollector(r *Registry, instance string) *MetricsCollector {
	labels := prometheus.Labels{"instance": instance}
	return &MetricsCollector{
		registry: r,
		entitiesDesc: prometheus.NewDesc(
			"ecr_entities_live", "Number of live entities.", nil, labels),
		archetypesDesc: prometheus.NewDesc(
			"ecr_archetypes_total", "Number of distinct archetypes created.", nil, labels),
		avgCompDesc: prometheus.NewDesc(
			"ecr_avg_component_count", "Average component count per live entity.", nil, labels),
		bytesDesc: prometheus.NewDesc(
			"ecr_estimated_bytes", "Estimated column storage in bytes.", nil, labels),
	}
}

// Describe implements prometheus.Collector.
func (m *MetricsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.entitiesDesc
	ch <- m.archetypesDesc
	ch <- m.avgCompDesc
	ch <- m.bytesDesc
}

// Collect implements prometheus.Collector, computing a fresh LiveStats on
// every scrape.
func (m *MetricsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := m.registry.LiveStats()
	ch <- prometheus.MustNewConstMetric(m.entitiesDesc, prometheus.GaugeValue, float64(stats.Entities))
	ch <- prometheus.MustNewConstMetric(m.archetypesDesc, prometheus.GaugeValue, float64(stats.Archetypes))
	ch <- prometheus.MustNewConstMetric(m.avgCompDesc, prometheus.GaugeValue, stats.AvgComponentCount)
	ch <- prometheus.MustNewConstMetric(m.bytesDesc, prometheus.GaugeValue, float64(stats.EstimatedBytes))
}
