package ecr

// factory implements the factory pattern the teacher uses for package-level
// constructors, generalized to the ECR's own types.
type factory struct{}

// Factory is the package-level factory instance for building Registries,
// Views, and MetricsCollectors without calling NewRegistry, Registry.View
// or NewMetricsCollector directly — matching the teacher's Factory usage
// idiom.
var Factory factory

// NewRegistry builds a Registry via the factory, equivalent to calling
// ecr.NewRegistry directly.
func (f factory) NewRegistry(opts ...Option) *Registry {
	return NewRegistry(opts...)
}

// NewView builds a View over r matching spec.
func (f factory) NewView(r *Registry, spec ViewSpec) *View {
	return r.View(spec)
}

// NewMetricsCollector builds a Prometheus collector for r.
func (f factory) NewMetricsCollector(r *Registry, instance string) *MetricsCollector {
	return NewMetricsCollector(r, instance)
}
