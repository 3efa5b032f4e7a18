package logger

// Standard field names for consistent structured logging across the library.
// Use these constants instead of raw strings.
const (
	// Components
	FieldComponent = "component"

	// Entities and statements
	FieldEntityID   = "entity_id"
	FieldPropertyID = "property_id"
	FieldRevID      = "revid"

	// Transport
	FieldMethod   = "method"
	FieldURL      = "url"
	FieldAttempt  = "attempt"
	FieldStatus   = "status"
	FieldEndpoint = "endpoint"

	// Timing
	FieldDurationMS = "duration_ms"
	FieldSleep      = "sleep"

	// Errors
	FieldError = "error"

	// Counts
	FieldCount = "count"
)
