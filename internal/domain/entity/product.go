package entity

import (
	"math"
	"strings"
	"time"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
)

// Product representa un producto del catálogo.
// CurrentQuantity solo la modifica el motor de movimientos; nunca es negativa.
type Product struct {
	ID              string
	SKU             string // único, en mayúsculas
	Name            string
	Description     string
	MinQuantity     int // punto de reorden
	CurrentQuantity int
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// MaxQuantity tope de cualquier cantidad de stock: la columna es INTEGER en PostgreSQL.
const MaxQuantity = math.MaxInt32

// NormalizeSKU aplica la normalización del SKU (trim + mayúsculas).
func NormalizeSKU(sku string) string {
	return strings.ToUpper(strings.TrimSpace(sku))
}

// NewProduct valida los campos y construye el producto.
func NewProduct(id, sku, name, description string, minQty, currentQty int, now time.Time) (*Product, error) {
	sku = NormalizeSKU(sku)
	name = strings.TrimSpace(name)
	if id == "" || sku == "" || name == "" {
		return nil, domain.ErrInvalidInput
	}
	if minQty < 0 || currentQty < 0 || minQty > MaxQuantity || currentQty > MaxQuantity {
		return nil, domain.ErrInvalidQuantity
	}
	return &Product{
		ID:              id,
		SKU:             sku,
		Name:            name,
		Description:     strings.TrimSpace(description),
		MinQuantity:     minQty,
		CurrentQuantity: currentQty,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// IsLowStock indica si el stock actual está por debajo del mínimo.
func (p *Product) IsLowStock() bool {
	return p.CurrentQuantity < p.MinQuantity
}

// Deficit unidades que faltan para llegar al mínimo (0 si no hay déficit).
func (p *Product) Deficit() int {
	if p.CurrentQuantity >= p.MinQuantity {
		return 0
	}
	return p.MinQuantity - p.CurrentQuantity
}
