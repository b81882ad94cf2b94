package logger

// Fields is an alias for map[string]interface{} for convenience.
type Fields map[string]interface{}

// ============================================
// Standard Tracing Fields (Context level)
// These fields are propagated through the call chain
// ============================================

const (
	// FieldRequestID is the HTTP request ID (UUID)
	FieldRequestID = "request_id"

	// FieldSessionID is the book session ID
	FieldSessionID = "session_id"

	// FieldMethod is the classified generation method (flash/pro/ultra)
	FieldMethod = "method"

	// FieldComponent is the component/module name
	FieldComponent = "component"

	// FieldPhase is the generation phase (questions/draft/summary/writing)
	FieldPhase = "phase"
)

// ============================================
// Standard Metric Fields (Entry level)
// These fields are used for aggregation and alerting
// ============================================

const (
	// FieldDurationMs is the execution duration in milliseconds
	FieldDurationMs = "duration_ms"

	// FieldStep is the current step index of a writing job
	FieldStep = "step"

	// FieldCount is a generic count field
	FieldCount = "count"

	// FieldSize is the data size in bytes
	FieldSize = "size"

	// FieldStatus is the operation status
	FieldStatus = "status"
)
