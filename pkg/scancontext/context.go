// Package scancontext builds the per-target RuntimeContext a CheckTask
// runs against (§4.C). HTML parsing is memoized per request id the same
// way pkg/regexcache memoized a compiled pattern per source string:
// sync.Map plus LoadOrStore so two steps of the same check, or two
// different checks, asking for the same response after it has been
// parsed reuse the cached result. Concurrent first calls may each parse;
// only the first stored result is kept, and every caller gets that one.
package scancontext

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/net/html"

	"github.com/waftester/scanengine/pkg/hostsdk"
	"github.com/waftester/scanengine/pkg/scanerrors"
	"github.com/waftester/scanengine/pkg/scancheck"
)

type htmlResult struct {
	node *html.Node
	err  error
}

// Dependencies is the thread-safe, per-target map of completed checks'
// outputs keyed by check id (§9 design note: "key outputs by checkId in a
// plain map; never hold references to upstream task objects"). The Batch
// Executor writes to it from whichever goroutine finishes a check;
// RuntimeContext.DependencyOutput reads from it on any later check's
// goroutine, so both sides go through the same lock.
type Dependencies struct {
	mu      sync.RWMutex
	outputs map[string]any
}

// NewDependencies returns an empty Dependencies map.
func NewDependencies() *Dependencies {
	return &Dependencies{outputs: make(map[string]any)}
}

// Set records checkID's output, overwriting any previous value.
func (d *Dependencies) Set(checkID string, output any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.outputs[checkID] = output
}

// Get returns checkID's recorded output, if any.
func (d *Dependencies) Get(checkID string) (any, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out, ok := d.outputs[checkID]
	return out, ok
}

// Sender is the narrow surface scancontext needs from the request queue:
// issuing a check-originated send without knowing anything about queueing,
// pacing, or concurrency. pkg/requestqueue.Queue implements this.
type Sender interface {
	Enqueue(ctx context.Context, spec any, targetRequestID, checkID string) (hostsdk.Exchange, error)
}

// Context is the concrete scancheck.RuntimeContext implementation built
// fresh per target per scan.
type Context struct {
	target  scancheck.ScanTarget
	config  scancheck.ScanConfig
	sdk     hostsdk.SDK
	sender  Sender
	checkID string

	htmlCache *sync.Map // requestID string -> *htmlResult, shared across WithCheck copies

	dependencies *Dependencies
}

// New builds a RuntimeContext for one target. checkID identifies the
// check currently executing, attributed to any request it sends through
// sender; dependencies is the shared, runner-owned map of
// already-completed checks' outputs for this target (§4.C
// dependencies.get(id)).
func New(target scancheck.ScanTarget, config scancheck.ScanConfig, sdk hostsdk.SDK, sender Sender, checkID string, dependencies *Dependencies) *Context {
	return &Context{
		target:       target,
		config:       config,
		sdk:          sdk,
		sender:       sender,
		checkID:      checkID,
		htmlCache:    &sync.Map{},
		dependencies: dependencies,
	}
}

func (c *Context) Target() scancheck.ScanTarget { return c.target }
func (c *Context) Config() scancheck.ScanConfig { return c.config }

// WithCheck returns a shallow copy of c attributed to a different check
// id, so the runner can reuse one Context's HTML cache and dependency map
// across every check run against the same target.
func (c *Context) WithCheck(checkID string) *Context {
	cp := *c
	cp.checkID = checkID
	return &cp
}

// SDK returns a view of the host SDK whose Send routes through the
// request queue instead of calling the host directly, so every
// check-issued send is subject to the same bounded concurrency and
// pacing as any other (§4.C, §4.D).
func (c *Context) SDK() hostsdk.SDK {
	return &queuedSDK{inner: c.sdk, sender: c.sender, targetRequestID: c.target.RequestID, checkID: c.checkID}
}

// HTML returns the parsed document for requestID, parsing and memoizing
// it on first use. Returns CodeRequestNotFound if the request or its
// response body cannot be obtained.
func (c *Context) HTML(requestID string) (*html.Node, error) {
	if cached, ok := c.htmlCache.Load(requestID); ok {
		res := cached.(*htmlResult)
		return res.node, res.err
	}

	exch, ok, err := c.sdk.Get(context.Background(), requestID)
	var res *htmlResult
	switch {
	case err != nil:
		res = &htmlResult{err: scanerrors.Wrap(scanerrors.CodeRequestNotFound, fmt.Sprintf("fetching request %q", requestID), err)}
	case !ok || exch.Response == nil:
		res = &htmlResult{err: scanerrors.New(scanerrors.CodeRequestNotFound, fmt.Sprintf("request %q has no response", requestID))}
	default:
		node, parseErr := html.Parse(newBytesReader(exch.Response.Body()))
		if parseErr != nil {
			res = &htmlResult{err: scanerrors.Wrap(scanerrors.CodeRequestNotFound, fmt.Sprintf("parsing response body for %q", requestID), parseErr)}
		} else {
			res = &htmlResult{node: node}
		}
	}

	actual, _ := c.htmlCache.LoadOrStore(requestID, res)
	stored := actual.(*htmlResult)
	return stored.node, stored.err
}

// DependencyOutput returns the output a prior check in the same batch
// plan produced for this target, if any (§4.C).
func (c *Context) DependencyOutput(checkID string) (any, bool) {
	return c.dependencies.Get(checkID)
}
