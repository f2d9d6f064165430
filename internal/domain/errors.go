package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrInvalidCredentials = errors.New("credenciales inválidas")
	ErrDuplicateIdentity  = errors.New("el email ya está registrado")
	ErrWeakCredential     = errors.New("la contraseña debe tener al menos 6 caracteres")
	ErrInvalidToken       = errors.New("token inválido o expirado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrInvalidInput       = errors.New("entrada inválida")
	ErrInvalidQuantity    = errors.New("la cantidad debe ser un entero positivo")
	ErrDuplicateSKU       = errors.New("el SKU ya existe")
	ErrInsufficientStock  = errors.New("stock insuficiente")
	ErrStorageUnavailable = errors.New("almacenamiento no disponible")
)

// InsufficientStockError detalla una salida rechazada: Available es la cantidad
// en stock leída bajo el mismo bloqueo que la validación.
// errors.Is(err, ErrInsufficientStock) es true.
type InsufficientStockError struct {
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente, disponible: %d", e.Available)
}

// Is permite comparar contra el sentinel ErrInsufficientStock.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
