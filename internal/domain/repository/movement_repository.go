package repository

import (
	"context"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// MovementRepository puerto del ledger de movimientos: solo inserción y lectura.
type MovementRepository interface {
	Create(ctx context.Context, movement *entity.Movement) error
	// GetRecord devuelve el movimiento enriquecido con producto y operador.
	GetRecord(ctx context.Context, id string) (*entity.MovementRecord, error)
	// List devuelve movimientos del más reciente al más antiguo.
	List(ctx context.Context, limit, offset int) ([]*entity.MovementRecord, error)
	ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.MovementRecord, error)
	Count(ctx context.Context) (int, error)
	CountByProduct(ctx context.Context, productID string) (int, error)
}
