package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	written []kafka.Message
	err     error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.written = append(w.written, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

type recordingHandler struct {
	names  []string
	cancel context.CancelFunc
	stopAt int
}

func (h *recordingHandler) HandleEvent(_ context.Context, name string, _ []byte) error {
	h.names = append(h.names, name)
	if len(h.names) == h.stopAt {
		h.cancel()
	}
	if name == "broken" {
		return errors.New("bad payload")
	}
	return nil
}

func TestProducer_KeysByOrderAndTagsEvent(t *testing.T) {
	w := &fakeWriter{}
	p := newProducer(w)

	require.NoError(t, p.Publish(context.Background(), "order_created", "order-1", []byte(`{}`)))
	require.Len(t, w.written, 1)
	require.Equal(t, []byte("order-1"), w.written[0].Key)
	require.Equal(t, "order_created", headerValue(w.written[0].Headers, EventTypeHeader))

	w.err = errors.New("leader not available")
	require.ErrorContains(t, p.Publish(context.Background(), "order_created", "order-2", nil), "leader not available")
}

func TestConsumer_CommitsEvenWhenHandlerFails(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		{Offset: 1, Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte("broken")}}},
		{Offset: 2, Headers: []kafka.Header{{Key: EventTypeHeader, Value: []byte("order_created")}}},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := &recordingHandler{cancel: cancel, stopAt: 2}

	require.NoError(t, newConsumer(r, nil).Run(ctx, h))
	require.Equal(t, []string{"broken", "order_created"}, h.names)
	require.Equal(t, []int64{1, 2}, r.committed)
}

func TestProducer_NewRequiresBrokers(t *testing.T) {
	_, err := NewProducer(nil, "order.events")
	require.Error(t, err)
	_, err = NewConsumer(nil, "order.events", "inventory", nil)
	require.Error(t, err)
}
