package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Si fn devuelve error se hace Rollback; si no, Commit. Garantiza atomicidad para el motor.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		productRepo repository.ProductRepository,
		movRepo repository.MovementRepository,
	) error) error
}

// MovementRecordedEvent evento publicado tras confirmar un movimiento.
type MovementRecordedEvent struct {
	EventID        string    `json:"event_id"`
	MovementID     string    `json:"movement_id"`
	ProductID      string    `json:"product_id"`
	SKU            string    `json:"sku"`
	Type           string    `json:"type"`
	Quantity       int       `json:"quantity"`
	QuantityBefore int       `json:"quantity_before"`
	QuantityAfter  int       `json:"quantity_after"`
	LowStock       bool      `json:"low_stock"`
	OperatorID     string    `json:"operator_id"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// EventPublisher puerto de salida para eventos de inventario (Kafka o no-op).
type EventPublisher interface {
	PublishMovementRecorded(ctx context.Context, evt MovementRecordedEvent) error
}

// NopPublisher descarta los eventos; se usa cuando no hay brokers configurados.
type NopPublisher struct{}

func (NopPublisher) PublishMovementRecorded(context.Context, MovementRecordedEvent) error { return nil }
