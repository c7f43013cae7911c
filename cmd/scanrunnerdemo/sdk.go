package main

import (
	"context"
	"fmt"

	"github.com/waftester/scanengine/pkg/hostsdk"
)

// memRequest and memResponse are the minimal in-memory hostsdk.Request /
// hostsdk.Response implementations this demo uses in place of a real host
// application.
type memRequest struct {
	id, host, path, method string
	port                   int
}

func (r memRequest) ID() string     { return r.id }
func (r memRequest) Host() string   { return r.host }
func (r memRequest) Port() int      { return r.port }
func (r memRequest) Path() string   { return r.path }
func (r memRequest) Query() string  { return "" }
func (r memRequest) URL() string    { return fmt.Sprintf("https://%s%s", r.host, r.path) }
func (r memRequest) Method() string { return r.method }
func (r memRequest) ToSpec() any    { return r }

type memResponse struct {
	status  int
	headers map[string][]string
	body    []byte
}

func (r memResponse) StatusCode() int { return r.status }
func (r memResponse) Header(name string) ([]string, bool) {
	v, ok := r.headers[name]
	return v, ok
}
func (r memResponse) Body() []byte { return r.body }

// memSDK is a fixed, read-only hostsdk.SDK over a preloaded set of
// exchanges. It never issues a real network send: Send just echoes the
// exchange already registered for the request id a check names in its
// spec, which is enough to exercise the Request Queue's bounded
// concurrency and pacing without a real host.
type memSDK struct {
	exchanges map[string]hostsdk.Exchange
}

func newMemSDK() *memSDK {
	return &memSDK{exchanges: make(map[string]hostsdk.Exchange)}
}

func (s *memSDK) add(req memRequest, resp memResponse) {
	s.exchanges[req.id] = hostsdk.Exchange{Request: req, Response: resp}
}

func (s *memSDK) Get(ctx context.Context, requestID string) (hostsdk.Exchange, bool, error) {
	exch, ok := s.exchanges[requestID]
	return exch, ok, nil
}

func (s *memSDK) Send(ctx context.Context, spec any) (hostsdk.Exchange, error) {
	req, ok := spec.(memRequest)
	if !ok {
		return hostsdk.Exchange{}, fmt.Errorf("scanrunnerdemo: unrecognized request spec %T", spec)
	}
	exch, ok := s.exchanges[req.id]
	if !ok {
		return hostsdk.Exchange{}, fmt.Errorf("scanrunnerdemo: no canned exchange for request %q", req.id)
	}
	return exch, nil
}

func (s *memSDK) InScope(ctx context.Context, req hostsdk.Request) (bool, error) {
	return true, nil
}

func (s *memSDK) Matches(ctx context.Context, filter hostsdk.Filter, req hostsdk.Request, resp hostsdk.Response) (bool, error) {
	return false, nil
}
