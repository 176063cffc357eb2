package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/minicrm/backend/pkg/vendorapi"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Recipient is one audience member addressed by the vendor
type Recipient struct {
	CustomerID primitive.ObjectID
	Address    string
}

// Outcome is the result of delivering to one recipient
type Outcome struct {
	Recipient
	Success   bool
	MessageID string
	Error     string
}

// BatchResult holds the outcomes of one batch in recipient order
type BatchResult struct {
	Index    int
	Outcomes []Outcome
}

// BatchHandler is called after each batch completes, before the next starts.
// A returned error stops the dispatch.
type BatchHandler func(ctx context.Context, batch BatchResult) error

// Dispatcher sends a message to an audience in sequential, fixed-size batches.
// Members of a batch are sent concurrently.
type Dispatcher struct {
	batchSize   int
	callTimeout time.Duration
	log         *zap.Logger
}

// NewDispatcher creates a dispatcher. A non-positive batch size means 10.
func NewDispatcher(batchSize int, callTimeout time.Duration, log *zap.Logger) *Dispatcher {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &Dispatcher{batchSize: batchSize, callTimeout: callTimeout, log: log}
}

// BatchSize returns the configured batch size
func (d *Dispatcher) BatchSize() int { return d.batchSize }

// Dispatch delivers body to every recipient through gateway and returns the
// number of batches processed. Per-recipient failures never stop the dispatch.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []Recipient, body string, gateway vendorapi.Gateway, onBatch BatchHandler) (int, error) {
	batches := 0
	for start := 0; start < len(recipients); start += d.batchSize {
		if err := ctx.Err(); err != nil {
			return batches, err
		}

		end := start + d.batchSize
		if end > len(recipients) {
			end = len(recipients)
		}

		result := BatchResult{Index: batches, Outcomes: d.sendBatch(ctx, recipients[start:end], body, gateway)}
		batches++

		if onBatch != nil {
			if err := onBatch(ctx, result); err != nil {
				return batches, fmt.Errorf("batch %d: %w", result.Index, err)
			}
		}
	}
	return batches, nil
}

func (d *Dispatcher) sendBatch(ctx context.Context, batch []Recipient, body string, gateway vendorapi.Gateway) []Outcome {
	outcomes := make([]Outcome, len(batch))

	var g errgroup.Group
	g.SetLimit(len(batch))
	for i := range batch {
		i := i
		g.Go(func() error {
			outcomes[i] = d.sendOne(ctx, batch[i], body, gateway)
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (d *Dispatcher) sendOne(ctx context.Context, to Recipient, body string, gateway vendorapi.Gateway) (out Outcome) {
	out = Outcome{Recipient: to}

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("vendor call panicked",
				zap.String("customerId", to.CustomerID.Hex()),
				zap.Any("panic", r))
			out = Outcome{Recipient: to, Error: fmt.Sprintf("vendor call panicked: %v", r)}
		}
	}()

	callCtx := ctx
	if d.callTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.callTimeout)
		defer cancel()
	}

	res, err := gateway.Send(callCtx, to.Address, body)
	switch {
	case err != nil:
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("vendor call timed out after %s", d.callTimeout)
		}
		d.log.Warn("vendor call failed",
			zap.String("customerId", to.CustomerID.Hex()),
			zap.Error(err))
		out.Error = err.Error()
	case res == nil:
		out.Error = "empty vendor response"
	default:
		out.Success = res.Success
		out.MessageID = res.MessageID
		out.Error = res.Error
		if !res.Success && out.Error == "" {
			out.Error = "Failed to deliver message"
		}
	}
	return out
}
