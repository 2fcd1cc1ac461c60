package regulator

// ValidationError reports a malformed input to Decide or Simulate. These are
// deterministic precondition failures, not transient faults, and should not
// be retried. The transport layer maps them to 400-class responses.
type ValidationError struct {
	// Field names the offending request field, when known.
	Field string
	// Message describes the violated precondition.
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
