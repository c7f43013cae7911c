// Package hostsdk declares the capability the scan runner core consumes
// from its host application: request/response lookup, sending, and scope
// matching. The core never implements these itself (§1); it is handed an
// SDK value at construction time and only ever calls through it.
package hostsdk

import "context"

// Request is the host's view of a captured or about-to-be-sent HTTP
// request. The core treats it as opaque beyond these accessors.
type Request interface {
	ID() string
	Host() string
	Port() int
	Path() string
	Query() string
	URL() string
	Method() string

	// ToSpec returns a host-specific request specification suitable for
	// re-sending via SDK.Send.
	ToSpec() any
}

// Response is the host's view of a captured HTTP response.
type Response interface {
	StatusCode() int

	// Header returns the values for a header name, or (nil, false) if
	// absent.
	Header(name string) ([]string, bool)

	Body() []byte
}

// Exchange bundles a request with its response, if one has been
// captured.
type Exchange struct {
	Request  Request
	Response Response // nil if no response has been captured yet
}

// Filter is opaque to the core; it is only ever round-tripped into
// Matches.
type Filter any

// SDK is the capability surface the host provides. Checks interact with
// it through the wrapped adapter in pkg/scancontext, never directly.
type SDK interface {
	// Get resolves a captured request (and its response, if any) by ID.
	// Returns (zero, false) if the request is unknown to the host.
	Get(ctx context.Context, requestID string) (Exchange, bool, error)

	// Send issues a new HTTP request built from spec and returns the
	// resulting exchange. May block on the network; callers outside the
	// core must route through the Request Queue rather than calling this
	// directly.
	Send(ctx context.Context, spec any) (Exchange, error)

	// InScope reports whether req falls within the configured scan
	// scope.
	InScope(ctx context.Context, req Request) (bool, error)

	// Matches reports whether req/resp satisfy an opaque host filter.
	Matches(ctx context.Context, filter Filter, req Request, resp Response) (bool, error)
}
