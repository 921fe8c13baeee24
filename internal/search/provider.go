package search

import (
	"context"
	"fmt"
)

// Request is what an adapter receives: a finished query plus locale and window.
type Request struct {
	Query  string
	Locale Locale
	Window TimeWindow
}

// Result wraps an adapter call. OK and Diagnostic exist for logging and metrics;
// callers only ever read Records.
type Result struct {
	Records    []ResultRecord
	OK         bool
	Cached     bool
	Diagnostic string
}

// Succeeded wraps records from a successful call.
func Succeeded(records []ResultRecord) Result {
	if records == nil {
		records = []ResultRecord{}
	}
	return Result{Records: records, OK: true}
}

// Failed is the empty result of a failed call.
func Failed(format string, args ...any) Result {
	return Result{Records: []ResultRecord{}, Diagnostic: fmt.Sprintf(format, args...)}
}

// Adapter is the interface all source adapters implement. Fetch never returns an
// error: transport and parse failures come back as a Failed result.
type Adapter interface {
	// Name returns the adapter identifier (e.g., "googlenews", "duckduckgo")
	Name() string

	Fetch(ctx context.Context, req Request) Result
}
