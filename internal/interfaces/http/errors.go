package http

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
)

// errorMapping código HTTP y código estable de la API para cada error de dominio.
type errorMapping struct {
	target  error
	status  int
	code    string
	message string // vacío = err.Error()
}

var errorMappings = []errorMapping{
	{domain.ErrInvalidCredentials, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", ""},
	{domain.ErrDuplicateIdentity, fiber.StatusConflict, "EMAIL_EXISTS", ""},
	{domain.ErrWeakCredential, fiber.StatusBadRequest, "WEAK_PASSWORD", ""},
	{domain.ErrInvalidToken, fiber.StatusUnauthorized, "INVALID_TOKEN", ""},
	{domain.ErrForbidden, fiber.StatusForbidden, "FORBIDDEN", ""},
	{domain.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", ""},
	{domain.ErrInvalidQuantity, fiber.StatusBadRequest, "INVALID_QUANTITY", ""},
	{domain.ErrDuplicateSKU, fiber.StatusConflict, "DUPLICATE_SKU", ""},
	{domain.ErrInvalidInput, fiber.StatusBadRequest, "VALIDATION", ""},
	{domain.ErrStorageUnavailable, fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", domain.ErrStorageUnavailable.Error()},
	{context.DeadlineExceeded, fiber.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", domain.ErrStorageUnavailable.Error()},
}

// writeError traduce un error de los casos de uso a dto.ErrorResponse.
// Los errores no clasificados se registran y se responden como INTERNAL sin detalle.
func writeError(c *fiber.Ctx, err error) error {
	var stockErr *domain.InsufficientStockError
	if errors.As(err, &stockErr) {
		available := stockErr.Available
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code: "INSUFFICIENT_STOCK", Message: stockErr.Error(), Available: &available,
		})
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = m.target.Error()
			}
			if m.status >= fiber.StatusInternalServerError {
				log.Error().Err(err).Str("path", c.Path()).Msg("almacenamiento no disponible")
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Code: m.code, Message: msg})
		}
	}
	log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

// bodyError traduce un fallo de BodyParser. Una cantidad no entera es INVALID_QUANTITY.
func bodyError(c *fiber.Ctx, err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field == "quantity" {
		return writeError(c, domain.ErrInvalidQuantity)
	}
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "cuerpo inválido"})
}

// ErrorHandler manejador de errores de fiber: rutas inexistentes, panics recuperados, etc.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "INTERNAL"
		switch fe.Code {
		case fiber.StatusNotFound:
			code = "NOT_FOUND"
		case fiber.StatusMethodNotAllowed, fiber.StatusBadRequest, fiber.StatusRequestEntityTooLarge:
			code = "VALIDATION"
		}
		return c.Status(fe.Code).JSON(dto.ErrorResponse{Code: code, Message: fe.Message})
	}
	return writeError(c, err)
}
