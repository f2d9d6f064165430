package dto

import (
	"time"

	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// RecordMovementRequest body para POST /api/movements.
type RecordMovementRequest struct {
	ProductID string `json:"product_id"`
	Type      string `json:"type"` // "in" | "out" (acepta "entrada" | "saida")
	Quantity  int    `json:"quantity"`
	Notes     string `json:"notes,omitempty"`
}

// MovementProductRef datos del producto embebidos en el movimiento.
type MovementProductRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	SKU  string `json:"sku"`
}

// MovementOperatorRef datos del operador embebidos en el movimiento.
type MovementOperatorRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// MovementResponse movimiento enriquecido (join con producto y operador).
type MovementResponse struct {
	ID             string              `json:"id"`
	Product        MovementProductRef  `json:"product"`
	Type           entity.MovementType `json:"type"`
	Quantity       int                 `json:"quantity"`
	QuantityBefore int                 `json:"quantity_before"`
	QuantityAfter  int                 `json:"quantity_after"`
	Operator       MovementOperatorRef `json:"operator"`
	Notes          string              `json:"notes"`
	CreatedAt      time.Time           `json:"created_at"`
}

// MovementListResponse página del ledger.
type MovementListResponse struct {
	Movements  []MovementResponse `json:"movements"`
	Pagination Pagination         `json:"pagination"`
}

// ToMovementResponse convierte el registro de dominio a DTO.
func ToMovementResponse(r *entity.MovementRecord) MovementResponse {
	return MovementResponse{
		ID:             r.ID,
		Product:        MovementProductRef{ID: r.ProductID, Name: r.ProductName, SKU: r.ProductSKU},
		Type:           r.Type,
		Quantity:       r.Quantity,
		QuantityBefore: r.QuantityBefore,
		QuantityAfter:  r.QuantityAfter,
		Operator:       MovementOperatorRef{ID: r.OperatorID, Name: r.OperatorName},
		Notes:          r.Notes,
		CreatedAt:      r.CreatedAt,
	}
}
