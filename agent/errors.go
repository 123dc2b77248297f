package agent

import "fmt"

// TransportError reports a failed exchange with the research API: a connection
// failure, a non-2xx status, or a broken stream. It is surfaced to the caller
// as-is; consumers never retry it internally.
type TransportError struct {
	Op     string
	Status int
	Body   string
	// Raw carries any content accumulated before the failure. It is the only
	// evidence left of a broken stream and feeds the diagnostic view.
	Raw string
	Err error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("agent: %s returned status %d: %s", e.Op, e.Status, e.Body)
	}
	return fmt.Sprintf("agent: %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Temporary reports whether the failure looks transient (a 5xx or a raw
// connection error). The orchestrator uses it to decide submit retries.
func (e *TransportError) Temporary() bool {
	return e.Status == 0 || e.Status >= 500
}

// JobFailedError reports that the server marked an audit job failed. Terminal;
// never retried.
type JobFailedError struct {
	RequestID string
	Detail    string
}

func (e *JobFailedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("agent: job %s failed: %s", e.RequestID, e.Detail)
	}
	return fmt.Sprintf("agent: job %s failed", e.RequestID)
}

// TimeoutError reports that the poll attempt budget was exhausted while the
// job was still pending. The whole audit may be retried.
type TimeoutError struct {
	RequestID string
	Attempts  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("agent: job %s still pending after %d polls", e.RequestID, e.Attempts)
}
