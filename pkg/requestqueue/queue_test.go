package requestqueue_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/waftester/scanengine/pkg/hostsdk"
	"github.com/waftester/scanengine/pkg/requestqueue"
	"github.com/waftester/scanengine/pkg/scanerrors"
	"github.com/waftester/scanengine/pkg/scanevents"
)

type fakeRequest struct{ id string }

func (r fakeRequest) ID() string     { return r.id }
func (r fakeRequest) Host() string   { return "example.test" }
func (r fakeRequest) Port() int      { return 443 }
func (r fakeRequest) Path() string   { return "/" }
func (r fakeRequest) Query() string  { return "" }
func (r fakeRequest) URL() string    { return "https://example.test/" }
func (r fakeRequest) Method() string { return "GET" }
func (r fakeRequest) ToSpec() any    { return r }

type fakeSDK struct{}

func (fakeSDK) Get(ctx context.Context, requestID string) (hostsdk.Exchange, bool, error) {
	return hostsdk.Exchange{}, false, nil
}

func (fakeSDK) Send(ctx context.Context, spec any) (hostsdk.Exchange, error) {
	req := spec.(fakeRequest)
	return hostsdk.Exchange{Request: req}, nil
}

func (fakeSDK) InScope(ctx context.Context, req hostsdk.Request) (bool, error) { return true, nil }

func (fakeSDK) Matches(ctx context.Context, filter hostsdk.Filter, req hostsdk.Request, resp hostsdk.Response) (bool, error) {
	return false, nil
}

func TestEnqueue_SpacesSendsByAtLeastDelay(t *testing.T) {
	bus := scanevents.NewBus()
	q := requestqueue.New(fakeSDK{}, bus, 1, 50)

	var completions []time.Time
	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(context.Background(), fakeRequest{id: "r"}, "target", "check")
		require.NoError(t, err)
		completions = append(completions, time.Now())
	}

	for i := 1; i < len(completions); i++ {
		gap := completions[i].Sub(completions[i-1])
		assert.GreaterOrEqual(t, gap.Milliseconds(), int64(45), "expected consecutive sends spaced >= ~50ms apart")
	}
}

func TestEnqueue_EmitsPendingBeforeCompleted(t *testing.T) {
	bus := scanevents.NewBus()
	q := requestqueue.New(fakeSDK{}, bus, 1, 0)

	var events []string
	bus.On(scanevents.TypeRequestPending, func(e scanevents.Event) { events = append(events, "pending") })
	bus.On(scanevents.TypeRequestCompleted, func(e scanevents.Event) { events = append(events, "completed") })

	_, err := q.Enqueue(context.Background(), fakeRequest{id: "r"}, "target", "check")
	require.NoError(t, err)

	assert.Equal(t, []string{"pending", "completed"}, events)
}

func TestEnqueue_InterruptedBeforeSendReturnsInterrupted(t *testing.T) {
	bus := scanevents.NewBus()
	q := requestqueue.New(fakeSDK{}, bus, 1, 0)
	q.Interrupt(scanerrors.ReasonCancelled)

	_, err := q.Enqueue(context.Background(), fakeRequest{id: "r"}, "target", "check")
	require.Error(t, err)
	in, ok := scanerrors.AsInterrupted(err)
	require.True(t, ok)
	assert.Equal(t, scanerrors.ReasonCancelled, in.Reason)
}
