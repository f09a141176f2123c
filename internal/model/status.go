package model

// Status is the outcome of analysing one locator.
type Status string

// Analysis outcomes.
const (
	// StatusUnknown means the analysis has not finished.
	StatusUnknown Status = ""
	// StatusOK means the document was well formed and contained text.
	StatusOK Status = "ok"
	// StatusMalformed means the document violated the tag grammar or had no text.
	StatusMalformed Status = "malformed"
	// StatusConnectionError means the document could not be retrieved.
	StatusConnectionError Status = "connection_error"
)

// String returns the status name, or "unknown" for StatusUnknown.
func (s Status) String() string {
	if s == StatusUnknown {
		return "unknown"
	}
	return string(s)
}

// ParseStatus converts a stored status name back to a Status.
func ParseStatus(s string) Status {
	switch s {
	case "ok":
		return StatusOK
	case "malformed":
		return StatusMalformed
	case "connection_error":
		return StatusConnectionError
	default:
		return StatusUnknown
	}
}

// Statuses lists the terminal statuses in display order.
func Statuses() []Status {
	return []Status{StatusOK, StatusMalformed, StatusConnectionError}
}
