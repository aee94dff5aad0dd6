package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/Apurer/order-inventory-coordinator/internal/domains/orders/ports"
)

// Dispatcher answers a request with an encoded reply envelope.
type Dispatcher interface {
	Dispatch(ctx context.Context, pattern string, payload []byte) []byte
}

var _ Requester = (*InProcessRequester)(nil)

// InProcessRequester hands requests to a dispatcher on its own goroutine and waits for the reply.
// The reply channel is buffered so a handler finishing after the caller gave up never blocks;
// its reply is simply never read.
type InProcessRequester struct {
	dispatcher Dispatcher
}

func NewInProcessRequester(dispatcher Dispatcher) *InProcessRequester {
	return &InProcessRequester{dispatcher: dispatcher}
}

func (r *InProcessRequester) Request(ctx context.Context, pattern string, payload []byte) ([]byte, error) {
	if r == nil || r.dispatcher == nil {
		return nil, fmt.Errorf("%w: no dispatcher", ports.ErrTransportFailure)
	}
	if err := ctx.Err(); err != nil {
		return nil, contextError(err)
	}
	reply := make(chan []byte, 1)
	go func() {
		reply <- r.dispatcher.Dispatch(context.WithoutCancel(ctx), pattern, append([]byte(nil), payload...))
	}()
	select {
	case out := <-reply:
		return out, nil
	case <-ctx.Done():
		return nil, contextError(ctx.Err())
	}
}

func contextError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ports.ErrTransportTimeout, err)
	}
	return err
}
