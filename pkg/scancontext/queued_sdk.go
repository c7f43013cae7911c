package scancontext

import (
	"bytes"
	"context"
	"io"

	"github.com/waftester/scanengine/pkg/hostsdk"
)

// queuedSDK wraps a hostsdk.SDK so every Send issued by a check's step
// function is attributed to that check and routed through the request
// queue rather than calling the host directly (§4.C, §4.D).
type queuedSDK struct {
	inner           hostsdk.SDK
	sender          Sender
	targetRequestID string
	checkID         string
}

func (q *queuedSDK) Get(ctx context.Context, requestID string) (hostsdk.Exchange, bool, error) {
	return q.inner.Get(ctx, requestID)
}

func (q *queuedSDK) Send(ctx context.Context, spec any) (hostsdk.Exchange, error) {
	return q.sender.Enqueue(ctx, spec, q.targetRequestID, q.checkID)
}

func (q *queuedSDK) InScope(ctx context.Context, req hostsdk.Request) (bool, error) {
	return q.inner.InScope(ctx, req)
}

func (q *queuedSDK) Matches(ctx context.Context, filter hostsdk.Filter, req hostsdk.Request, resp hostsdk.Response) (bool, error) {
	return q.inner.Matches(ctx, filter, req, resp)
}

func newBytesReader(b []byte) io.Reader {
	return bytes.NewReader(b)
}
