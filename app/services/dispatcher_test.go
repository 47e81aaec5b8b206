package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kisakye5308/EduPay-Ledger-sub001/app/ledger"
)

type fakePublisher struct {
	mu       sync.Mutex
	failures int
	calls    int
	keys     []string
	bodies   [][]byte
}

func (p *fakePublisher) Publish(_ context.Context, routingKey string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, routingKey)
	p.bodies = append(p.bodies, body)
	return nil
}

func (p *fakePublisher) Close() error { return nil }

func (p *fakePublisher) published() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]byte, len(p.bodies))
	copy(out, p.bodies)
	return out
}

func sampleEvent(paymentID string) ledger.PaymentRecordedEvent {
	return ledger.PaymentRecordedEvent{
		PaymentID:     paymentID,
		ReceiptNumber: "RCP-2026-DEADBEEF",
		StudentID:     "student-1",
		Amount:        600000,
		NewBalance:    400000,
		RecordedAt:    time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC),
	}
}

func TestDispatcherPublishes(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	d := NewDispatcher(pub, nil)

	d.Dispatch(sampleEvent("pay-1"))
	d.Dispatch(sampleEvent("pay-2"))
	d.Stop()

	bodies := pub.published()
	require.Len(t, bodies, 2)
	assert.Equal(t, []string{recordedRoutingKey, recordedRoutingKey}, pub.keys)

	var got ledger.PaymentRecordedEvent
	require.NoError(t, json.Unmarshal(bodies[0], &got))
	assert.Equal(t, "pay-1", got.PaymentID)
	assert.Equal(t, int64(400000), got.NewBalance)
}

func TestDispatcherRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{failures: 2}
	d := NewDispatcher(pub, nil)

	d.Dispatch(sampleEvent("pay-retry"))
	d.Stop()

	require.Len(t, pub.published(), 1)
	assert.Equal(t, 3, pub.calls)
}

func TestDispatcherDropsAfterRetriesExhaust(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{failures: publishAttempts}
	d := NewDispatcher(pub, nil)

	d.Dispatch(sampleEvent("pay-doomed"))
	d.Stop()

	// The event is dropped, not re-queued, and the dispatcher keeps working.
	assert.Empty(t, pub.published())
	assert.Equal(t, publishAttempts, pub.calls)
}

func TestDispatchNeverBlocks(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	d := NewDispatcher(pub, nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < dispatchBuffer*2; i++ {
			d.Dispatch(sampleEvent("pay-burst"))
		}
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Dispatch blocked on a full buffer")
	}
	d.Stop()
}

func TestDispatchAfterStopIsDropped(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	d := NewDispatcher(pub, nil)
	d.Stop()

	require.NotPanics(t, func() { d.Dispatch(sampleEvent("pay-late")) })
	assert.Empty(t, pub.published())

	// Stop is safe to call again.
	require.NotPanics(t, d.Stop)
}

func TestDispatchRacingStopIsSafe(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	d := NewDispatcher(pub, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				d.Dispatch(sampleEvent("pay-race"))
			}
		}()
	}

	d.Stop()
	wg.Wait()
}

func TestStopDrainsBufferedEvents(t *testing.T) {
	t.Parallel()

	pub := &fakePublisher{}
	d := NewDispatcher(pub, nil)

	for i := 0; i < 10; i++ {
		d.Dispatch(sampleEvent("pay-drain"))
	}
	d.Stop()

	assert.Len(t, pub.published(), 10)
}
