package backend

import (
	"fmt"
	"strings"
)

// Reason classifies why a resource could not be fetched.
type Reason string

const (
	ReasonHTML        Reason = "html"
	ReasonUnavailable Reason = "unavailable"
	ReasonCircuitOpen Reason = "circuit_open"
	ReasonGeneric     Reason = "generic"
)

// FetchError is returned once every verb and decode stage failed for a resource.
type FetchError struct {
	Resource string
	Reason   Reason
	// Attempts keeps one line per failed verb/stage, in order.
	Attempts []string
}

func (e *FetchError) Error() string {
	var msg string
	switch e.Reason {
	case ReasonHTML:
		msg = "backend returned an HTML error page instead of JSON (likely a response verification issue on the gateway)"
	case ReasonUnavailable:
		msg = "backend returned 503 Service Unavailable"
	case ReasonCircuitOpen:
		msg = "backend circuit is open after repeated failures"
	default:
		msg = "all attempts failed"
	}

	if len(e.Attempts) == 0 {
		return fmt.Sprintf("fetch %s: %s", e.Resource, msg)
	}
	return fmt.Sprintf("fetch %s: %s: %s", e.Resource, msg, strings.Join(e.Attempts, " | "))
}

// attemptError is the failure of one verb, before aggregation.
type attemptError struct {
	verb   string
	reason Reason
	err    error
}

func (e *attemptError) Error() string {
	return fmt.Sprintf("%s: %v", e.verb, e.err)
}

func (e *attemptError) Unwrap() error { return e.err }

// reasonOf picks the most specific reason: an HTML page wins over a 503, which
// wins over anything else.
func reasonOf(attempts []*attemptError) Reason {
	reason := ReasonGeneric
	for _, a := range attempts {
		switch a.reason {
		case ReasonHTML:
			return ReasonHTML
		case ReasonUnavailable:
			reason = ReasonUnavailable
		}
	}
	return reason
}
