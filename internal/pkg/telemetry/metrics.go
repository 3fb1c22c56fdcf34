package telemetry

// Span names used for instrumentation.
const (
	// Document store
	SpanStoreGet    = "store.get"
	SpanStoreSet    = "store.set"
	SpanStoreDelete = "store.delete"

	// Robot control
	SpanPublishCommand = "control.publish"
)

// Span attribute keys.
const (
	AttrPath    = "store.path"
	AttrSubject = "messaging.destination"
)
