package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
)

type fakeWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	err    error
	block  chan struct{}
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.block != nil {
		select {
		case <-w.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func (w *fakeWriter) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

func sampleEvent() inventory.MovementRecordedEvent {
	return inventory.MovementRecordedEvent{
		EventID:       "evt-1",
		MovementID:    "mov-1",
		ProductID:     "prod-1",
		SKU:           "PEN-1",
		Type:          "in",
		Quantity:      20,
		QuantityAfter: 25,
		OccurredAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestPublisher_EscribeEventoConKeyDeProducto(t *testing.T) {
	w := &fakeWriter{}
	p := newPublisher(w, 4, nil)

	require.NoError(t, p.PublishMovementRecorded(context.Background(), sampleEvent()))
	require.NoError(t, p.Close(context.Background()))

	require.Len(t, w.msgs, 1)
	assert.Equal(t, "prod-1", string(w.msgs[0].Key))
	assert.True(t, w.closed)

	var got inventory.MovementRecordedEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, "PEN-1", got.SKU)
	assert.Equal(t, 25, got.QuantityAfter)
}

func TestPublisher_ColaLlena(t *testing.T) {
	w := &fakeWriter{block: make(chan struct{})}
	p := newPublisher(w, 1, nil)

	// el primero lo toma el loop (bloqueado en el writer), el segundo llena la cola
	require.NoError(t, p.PublishMovementRecorded(context.Background(), sampleEvent()))
	require.Eventually(t, func() bool { return len(p.inbox) == 0 }, time.Second, time.Millisecond)
	require.NoError(t, p.PublishMovementRecorded(context.Background(), sampleEvent()))

	err := p.PublishMovementRecorded(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, ErrQueueFull)

	close(w.block)
	require.NoError(t, p.Close(context.Background()))
	assert.Len(t, w.msgs, 2)
}

func TestPublisher_ErrorDeEscrituraNoDetieneElLoop(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker caído")}
	p := newPublisher(w, 4, nil)

	require.NoError(t, p.PublishMovementRecorded(context.Background(), sampleEvent()))
	require.NoError(t, p.PublishMovementRecorded(context.Background(), sampleEvent()))
	require.NoError(t, p.Close(context.Background()))
	assert.Empty(t, w.msgs)
}

func TestPublisher_CerradoRechazaEventos(t *testing.T) {
	p := newPublisher(&fakeWriter{}, 4, nil)
	require.NoError(t, p.Close(context.Background()))

	err := p.PublishMovementRecorded(context.Background(), sampleEvent())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestPublisher_CloseConPlazoVencidoCancelaYCierraWriter(t *testing.T) {
	// broker que nunca responde
	w := &fakeWriter{block: make(chan struct{})}
	p := newPublisher(w, 4, nil)
	require.NoError(t, p.PublishMovementRecorded(context.Background(), sampleEvent()))
	require.NoError(t, p.PublishMovementRecorded(context.Background(), sampleEvent()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Close(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, w.isClosed())

	// el loop termina: la escritura bloqueada se canceló y la cola se descarta
	select {
	case <-p.done:
	case <-time.After(time.Second):
		t.Fatal("el loop de envío sigue bloqueado tras Close")
	}
	assert.Empty(t, w.msgs)
}
