package telemetry

// Span names.
const (
	SpanPlanJourney  = "journey.plan"
	SpanGeocode      = "proxy.geocode"
	SpanDirections   = "proxy.directions"
	SpanSummarize    = "proxy.summarize"
	SpanResolveShape = "route.resolve_shape"
)
