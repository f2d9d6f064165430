package repository

import (
	"context"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id string) (*entity.Product, error)
	GetBySKU(ctx context.Context, sku string) (*entity.Product, error)
	// List devuelve todos los productos ordenados por nombre (y SKU como desempate).
	List(ctx context.Context) ([]*entity.Product, error)
	// ListLowStock devuelve los productos con current_quantity < min_quantity, mayor déficit primero.
	ListLowStock(ctx context.Context) ([]*entity.Product, error)
	// Update modifica nombre, descripción y mínimo. Nunca toca current_quantity.
	Update(ctx context.Context, product *entity.Product) error
	// GetForUpdate obtiene el producto y bloquea su fila hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Product, error)
	// AdjustQuantity aplica current_quantity += delta si el resultado no es negativo.
	// Devuelve la cantidad resultante. Solo debe usarse dentro de TxRunner.Run.
	AdjustQuantity(ctx context.Context, id string, delta int) (int, error)
}
