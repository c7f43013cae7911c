// Package requestqueue is the bounded-concurrency Request Queue shim
// (§4.D): every HTTP send a check issues, whether through the Host SDK
// directly or via scancontext's wrapped SDK, funnels through here so the
// engine can cap concurrent in-flight requests and space them out. Grown
// from pkg/ratelimit's token-bucket-over-a-channel-semaphore shape,
// generalized from "requests per second" pacing to "bounded concurrency
// plus optional fixed delay between sends".
package requestqueue

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/waftester/scanengine/pkg/hostsdk"
	"github.com/waftester/scanengine/pkg/scanerrors"
	"github.com/waftester/scanengine/pkg/scanevents"
)

// Queue is a bounded-concurrency FIFO shim over a hostsdk.SDK's Send. It
// never retries and never dedupes; those are not its concerns (§4.D
// Non-goals).
type Queue struct {
	sdk     hostsdk.SDK
	bus     *scanevents.Bus
	sem     chan struct{}
	limiter *rate.Limiter

	mu        sync.Mutex
	interrupt *scanerrors.InterruptReason
}

// New builds a Queue bounded to concurrentRequests in-flight sends, with
// successive sends through the queue (across all targets) spaced at least
// delayMs apart when delayMs > 0. bus receives scanevents.RequestPending/RequestCompleted around every
// send.
func New(sdk hostsdk.SDK, bus *scanevents.Bus, concurrentRequests int, delayMs int) *Queue {
	q := &Queue{
		sdk: sdk,
		bus: bus,
		sem: make(chan struct{}, concurrentRequests),
	}
	if delayMs > 0 {
		// rate.Limiter paces steady-state throughput; a burst of 1 means
		// the first send through a fresh limiter is immediate and every
		// subsequent one waits out the interval, matching "delay between
		// sends, not before the first" (§4.D).
		interval := rate.Every(msToDuration(delayMs))
		q.limiter = rate.NewLimiter(interval, 1)
	}
	return q
}

// Interrupt marks the queue interrupted; any Enqueue call that has not
// yet started its send returns an *scanerrors.Interrupted error instead
// of sending.
func (q *Queue) Interrupt(reason scanerrors.InterruptReason) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r := reason
	q.interrupt = &r
}

func (q *Queue) interrupted() *scanerrors.InterruptReason {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.interrupt
}

// Enqueue submits spec for sending, blocking until a concurrency slot is
// free and, if configured, until the inter-send delay has elapsed. It
// checks for an interrupt immediately before the send begins, matching
// the "honor interruptReason at the point an item would start" rule in
// §4.D.
func (q *Queue) Enqueue(ctx context.Context, spec any, targetRequestID, checkID string) (hostsdk.Exchange, error) {
	pendingID := uuid.NewString()
	q.bus.Emit(scanevents.RequestPending{
		PendingRequestID: pendingID,
		TargetRequestID:  targetRequestID,
		CheckID:          checkID,
	})

	select {
	case q.sem <- struct{}{}:
	case <-ctx.Done():
		return hostsdk.Exchange{}, ctx.Err()
	}
	defer func() { <-q.sem }()

	if reason := q.interrupted(); reason != nil {
		return hostsdk.Exchange{}, &scanerrors.Interrupted{Reason: *reason}
	}

	if q.limiter != nil {
		if err := q.limiter.Wait(ctx); err != nil {
			return hostsdk.Exchange{}, fmt.Errorf("waiting for send pacing: %w", err)
		}
	}

	if reason := q.interrupted(); reason != nil {
		return hostsdk.Exchange{}, &scanerrors.Interrupted{Reason: *reason}
	}

	exch, err := q.sdk.Send(ctx, spec)
	if err != nil {
		return hostsdk.Exchange{}, err
	}

	// ResponseID identifies the response captured by this particular send.
	// hostsdk.Response carries no ID of its own, so the paired request's ID
	// is the only identity that response has; it must come from exch (the
	// exchange this send just produced), never from targetRequestID, which
	// names the target under scan, not this send's result.
	q.bus.Emit(scanevents.RequestCompleted{
		ID:         pendingID,
		RequestID:  exch.Request.ID(),
		ResponseID: exch.Request.ID(),
	})
	return exch, nil
}
