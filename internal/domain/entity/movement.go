package entity

import (
	"strings"
	"time"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
)

// MovementType dirección del movimiento. Enumeración cerrada.
type MovementType uint8

// Tipos de movimiento de inventario.
const (
	MovementIn  MovementType = iota + 1 // entrada
	MovementOut                         // salida
)

// ParseMovementType acepta "in"/"out" y los nombres heredados "entrada"/"saida"/"salida".
func ParseMovementType(s string) (MovementType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "in", "entrada":
		return MovementIn, nil
	case "out", "saida", "salida":
		return MovementOut, nil
	}
	return 0, domain.ErrInvalidInput
}

func (t MovementType) Valid() bool {
	return t == MovementIn || t == MovementOut
}

func (t MovementType) String() string {
	switch t {
	case MovementIn:
		return "in"
	case MovementOut:
		return "out"
	}
	return ""
}

func (t MovementType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return []byte(t.String()), nil
}

func (t *MovementType) UnmarshalText(b []byte) error {
	parsed, err := ParseMovementType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Delta devuelve la variación de stock que produce un movimiento de quantity unidades.
func (t MovementType) Delta(quantity int) int {
	if t == MovementOut {
		return -quantity
	}
	return quantity
}

// Movement registro inmutable de un cambio de stock (ledger append-only).
// QuantityBefore/QuantityAfter son la foto del stock leída bajo bloqueo.
type Movement struct {
	ID             string
	ProductID      string
	Type           MovementType
	Quantity       int // siempre >= 1
	OperatorID     string
	Notes          string
	QuantityBefore int
	QuantityAfter  int
	CreatedAt      time.Time
}

// NewMovement valida y construye un movimiento para el producto con stock actual before.
// No valida disponibilidad: eso es responsabilidad del motor.
func NewMovement(id, productID string, typ MovementType, quantity int, operatorID, notes string, before int, now time.Time) (*Movement, error) {
	if id == "" || productID == "" || operatorID == "" || !typ.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if quantity < 1 || quantity > MaxQuantity {
		return nil, domain.ErrInvalidQuantity
	}
	// una entrada no puede dejar el stock fuera de rango
	if typ == MovementIn && before > MaxQuantity-quantity {
		return nil, domain.ErrInvalidQuantity
	}
	return &Movement{
		ID:             id,
		ProductID:      productID,
		Type:           typ,
		Quantity:       quantity,
		OperatorID:     operatorID,
		Notes:          strings.TrimSpace(notes),
		QuantityBefore: before,
		QuantityAfter:  before + typ.Delta(quantity),
		CreatedAt:      now,
	}, nil
}

// MovementRecord movimiento enriquecido con datos de producto y operador (join de lectura).
type MovementRecord struct {
	Movement
	ProductName  string
	ProductSKU   string
	OperatorName string
}
