package logging

// Standardized structured logging keys shared across the engine.
const (
	// FieldComponent names the subsystem emitting the record.
	FieldComponent = "component"
	// FieldRequestID carries the numeric request identifier.
	FieldRequestID = "request_id"
	// FieldCommand carries the inbound command name.
	FieldCommand = "command"
	// FieldCorrelationID ties records back to one inbound message.
	FieldCorrelationID = "correlation_id"
	// FieldRequester carries the requester identifier.
	FieldRequester = "requester"
	// FieldOriginScope carries the conversation/group scope identifier.
	FieldOriginScope = "origin_scope"
	// FieldSource carries the matched store name (library or contribution).
	FieldSource = "source"
	// FieldCandidate carries the matched candidate identifier.
	FieldCandidate = "candidate_id"
)
