package scancheck

import (
	"golang.org/x/net/html"

	"github.com/waftester/scanengine/pkg/hostsdk"
)

// RuntimeContext is the per-target context assembled by the Runtime
// Context Builder (§4.C) and handed to every check's Create function. It
// is the only way a check reaches the target, configuration, a wrapped
// SDK, the shared HTML cache, or another check's output.
type RuntimeContext interface {
	Target() ScanTarget
	Config() ScanConfig

	// SDK returns the capability surface wrapped so that Send routes
	// through the Request Queue.
	SDK() hostsdk.SDK

	// HTML lazily parses and memoizes the response body for requestID.
	// Returns REQUEST_NOT_FOUND (see pkg/scanerrors) if the request, its
	// response, or its body cannot be obtained from the host.
	HTML(requestID string) (*html.Node, error)

	// DependencyOutput returns the output a completed dependency
	// produced during this scan, or (nil, false) if it did not run.
	DependencyOutput(checkID string) (any, bool)
}
