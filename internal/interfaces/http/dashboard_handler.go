package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/inventario-movimientos/internal/application/analytics"
)

// DashboardHandler maneja los endpoints del módulo de Dashboard.
type DashboardHandler struct {
	uc *appanalytics.DashboardUseCase
}

// NewDashboardHandler construye el handler.
func NewDashboardHandler(uc *appanalytics.DashboardUseCase) *DashboardHandler {
	return &DashboardHandler{uc: uc}
}

// GetSummary devuelve el resumen de inventario.
// GET /api/dashboard/summary
//
// Respuesta: DashboardSummaryDTO (total_products, total_units, low_stock_count,
// low_stock[], last_30_days, recent_movements[5]).
func (h *DashboardHandler) GetSummary(c *fiber.Ctx) error {
	summary, err := h.uc.GetSummary(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(summary)
}

// GetLowStockPDF reporte PDF de productos bajo el mínimo.
// GET /api/dashboard/low-stock.pdf
func (h *DashboardHandler) GetLowStockPDF(c *fiber.Ctx) error {
	pdf, err := h.uc.LowStockPDF(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="faltantes.pdf"`)
	return c.Send(pdf)
}
