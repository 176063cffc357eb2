package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/minicrm/backend/pkg/vendorapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type gatewayFunc func(ctx context.Context, to, body string) (*vendorapi.Result, error)

func (f gatewayFunc) Send(ctx context.Context, to, body string) (*vendorapi.Result, error) {
	return f(ctx, to, body)
}

func recipients(n int) []Recipient {
	out := make([]Recipient, n)
	for i := range out {
		out[i] = Recipient{CustomerID: primitive.NewObjectID(), Address: fmt.Sprintf("r%d@example.com", i)}
	}
	return out
}

func TestDispatcher_BatchesInOrder(t *testing.T) {
	d := NewDispatcher(10, time.Second, zap.NewNop())
	to := recipients(25)

	var sizes []int
	var seen []Recipient
	batches, err := d.Dispatch(context.Background(), to, "hi", vendorapi.NewMockGateway("T"), func(ctx context.Context, b BatchResult) error {
		assert.Equal(t, len(sizes), b.Index)
		sizes = append(sizes, len(b.Outcomes))
		for _, o := range b.Outcomes {
			assert.True(t, o.Success)
			seen = append(seen, o.Recipient)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, batches)
	assert.Equal(t, []int{10, 10, 5}, sizes)
	assert.Equal(t, to, seen)
}

func TestDispatcher_DefaultBatchSize(t *testing.T) {
	assert.Equal(t, 10, NewDispatcher(0, 0, zap.NewNop()).BatchSize())
}

func TestDispatcher_RecipientFailuresAreIsolated(t *testing.T) {
	d := NewDispatcher(4, 20*time.Millisecond, zap.NewNop())
	to := recipients(4)

	gw := gatewayFunc(func(ctx context.Context, addr, body string) (*vendorapi.Result, error) {
		switch addr {
		case to[0].Address:
			panic("boom")
		case to[1].Address:
			<-ctx.Done()
			return nil, ctx.Err()
		case to[2].Address:
			return nil, errors.New("connection refused")
		}
		return &vendorapi.Result{Success: true, MessageID: "ok"}, nil
	})

	var outcomes []Outcome
	_, err := d.Dispatch(context.Background(), to, "hi", gw, func(ctx context.Context, b BatchResult) error {
		outcomes = b.Outcomes
		return nil
	})
	require.NoError(t, err)
	require.Len(t, outcomes, 4)

	assert.False(t, outcomes[0].Success)
	assert.Contains(t, outcomes[0].Error, "panicked")
	assert.False(t, outcomes[1].Success)
	assert.Contains(t, outcomes[1].Error, "timed out")
	assert.Equal(t, "connection refused", outcomes[2].Error)
	assert.True(t, outcomes[3].Success)
}

// batchBarrier holds every vendor call until all members of its batch are
// in flight, failing the call if that does not happen in time
type batchBarrier struct {
	mu       sync.Mutex
	batchOf  map[string]int
	sizes    []int
	before   []int
	arrived  []int
	gates    []chan struct{}
	inFlight int
	peak     int
	done     int
	early    []string
}

func newBatchBarrier(to []Recipient, batchSize int) *batchBarrier {
	b := &batchBarrier{batchOf: make(map[string]int, len(to))}
	for i, r := range to {
		idx := i / batchSize
		if idx == len(b.sizes) {
			b.sizes = append(b.sizes, 0)
			b.arrived = append(b.arrived, 0)
			b.gates = append(b.gates, make(chan struct{}))
		}
		b.sizes[idx]++
		b.batchOf[r.Address] = idx
	}
	b.before = make([]int, len(b.sizes))
	for i := 1; i < len(b.sizes); i++ {
		b.before[i] = b.before[i-1] + b.sizes[i-1]
	}
	return b
}

func (b *batchBarrier) Send(ctx context.Context, to, body string) (*vendorapi.Result, error) {
	idx := b.batchOf[to]

	b.mu.Lock()
	if b.done != b.before[idx] {
		b.early = append(b.early, to)
	}
	b.inFlight++
	if b.inFlight > b.peak {
		b.peak = b.inFlight
	}
	b.arrived[idx]++
	if b.arrived[idx] == b.sizes[idx] {
		close(b.gates[idx])
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.done++
		b.mu.Unlock()
	}()

	select {
	case <-b.gates[idx]:
		return &vendorapi.Result{Success: true, MessageID: to}, nil
	case <-time.After(2 * time.Second):
		return nil, errors.New("batch members were not sent concurrently")
	}
}

func TestDispatcher_BatchMembersRunConcurrently(t *testing.T) {
	d := NewDispatcher(4, 5*time.Second, zap.NewNop())
	to := recipients(10)
	gw := newBatchBarrier(to, 4)

	var sizes []int
	batches, err := d.Dispatch(context.Background(), to, "hi", gw, func(ctx context.Context, b BatchResult) error {
		sizes = append(sizes, len(b.Outcomes))
		for _, o := range b.Outcomes {
			assert.True(t, o.Success, o.Error)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, batches)
	assert.Equal(t, []int{4, 4, 2}, sizes)

	// a full batch was in flight at once, and no batch overlapped the previous one
	assert.Equal(t, 4, gw.peak)
	assert.Empty(t, gw.early)
}

func TestDispatcher_HandlerErrorStops(t *testing.T) {
	d := NewDispatcher(2, time.Second, zap.NewNop())
	gw := vendorapi.NewMockGateway("T")

	batches, err := d.Dispatch(context.Background(), recipients(6), "hi", gw, func(ctx context.Context, b BatchResult) error {
		return errors.New("disk full")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, batches)
	assert.Equal(t, 2, gw.Calls())
}

func TestDispatcher_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batches, err := NewDispatcher(2, time.Second, zap.NewNop()).Dispatch(ctx, recipients(3), "hi", vendorapi.NewMockGateway("T"), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, batches)
}

func TestStatsAccumulator(t *testing.T) {
	acc := NewStatsAccumulator(3)
	acc.Add(BatchResult{Outcomes: []Outcome{{Success: true}, {Success: false}}})
	stats := acc.Add(BatchResult{Outcomes: []Outcome{{Success: true}}})

	assert.Equal(t, 3, stats.TotalAudience)
	assert.Equal(t, 3, stats.Sent)
	assert.Equal(t, 2, stats.Delivered)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, stats, acc.Stats())
}

func TestRatioEstimator_Floors(t *testing.T) {
	opened, clicked := RatioEstimator{Open: 0.8, Click: 0.4}.Estimate(9)
	assert.Equal(t, 7, opened)
	assert.Equal(t, 3, clicked)
}

func TestEngagementScheduler_ScheduleAndStop(t *testing.T) {
	f := newFixture(t, FixedDecider(true))
	id := primitive.NewObjectID()

	f.engagement.Schedule(id)
	f.engagement.Schedule(id)
	assert.Equal(t, 1, f.engagement.Pending())

	f.engagement.Stop()
	assert.Zero(t, f.engagement.Pending())

	f.engagement.Schedule(primitive.NewObjectID())
	assert.Zero(t, f.engagement.Pending())
}
