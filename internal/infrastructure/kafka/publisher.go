// Package kafka publica los eventos de inventario en Kafka (segmentio/kafka-go).
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/pkg/logger"
)

var _ inventory.EventPublisher = (*Publisher)(nil)

// ErrQueueFull la cola local está llena; el evento se descarta.
var ErrQueueFull = errors.New("kafka: cola de eventos llena")

// ErrClosed el publicador ya fue cerrado.
var ErrClosed = errors.New("kafka: publicador cerrado")

const eventTypeMovementRecorded = "inventory.movement_recorded"

// messageWriter lo que el publicador necesita de *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher encola eventos y los escribe desde una goroutine, para que publicar
// nunca bloquee la respuesta HTTP. La key es el product_id: los eventos de un mismo
// producto van a la misma partición y conservan el orden.
type Publisher struct {
	w     messageWriter
	inbox chan kafka.Message
	done  chan struct{}
	log   *logger.Logger

	// ctx de las escrituras; Close lo cancela si vence su plazo
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
}

// NewPublisher crea el writer para topic y arranca el loop de envío.
func NewPublisher(brokers []string, topic string, buf int, log *logger.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newPublisher(w, buf, log)
}

func newPublisher(w messageWriter, buf int, log *logger.Logger) *Publisher {
	if buf <= 0 {
		buf = 256
	}
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Publisher{
		w:      w,
		inbox:  make(chan kafka.Message, buf),
		done:   make(chan struct{}),
		log:    log.Component("kafka"),
		ctx:    ctx,
		cancel: cancel,
	}
	go p.loop()
	return p
}

func (p *Publisher) loop() {
	defer close(p.done)
	for m := range p.inbox {
		if err := p.w.WriteMessages(p.ctx, m); err != nil {
			p.log.Error().Err(err).Str("key", string(m.Key)).Msg("no se pudo escribir el evento en kafka")
		}
	}
}

// PublishMovementRecorded serializa el evento y lo encola sin bloquear.
func (p *Publisher) PublishMovementRecorded(_ context.Context, evt inventory.MovementRecordedEvent) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("kafka: serializar evento: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(evt.ProductID),
		Value: value,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventTypeMovementRecorded)},
			{Key: "event_id", Value: []byte(evt.EventID)},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close deja de aceptar eventos, envía los pendientes y cierra el writer.
// Si ctx vence antes de vaciar la cola se cancela la escritura en curso, los
// pendientes se pierden y el writer se cierra igualmente.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		p.cancel()
		return p.w.Close()
	case <-ctx.Done():
		p.cancel()
		return errors.Join(fmt.Errorf("kafka: vaciar cola: %w", ctx.Err()), p.w.Close())
	}
}
