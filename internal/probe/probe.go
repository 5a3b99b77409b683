package probe

import "context"

// Outcome is the raw result of a single probe. Classification into
// Good/Bad happens at the collector; the validator only reports what it saw.
//
// StatusCode is the HTTP status when a response arrived; 0 for transport
// errors (DNS, connect, timeout).
type Outcome struct {
	URL        string
	StatusCode int
	LatencyMS  float64
	Err        string
}

// Checker performs a single probe for a given target URL.
type Checker interface {
	Check(ctx context.Context, target string) Outcome
}
