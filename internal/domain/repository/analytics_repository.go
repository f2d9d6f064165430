package repository

import (
	"context"
	"time"
)

// StockSummaryResult agregados del catálogo calculados por la base de datos.
type StockSummaryResult struct {
	TotalProducts int
	TotalUnits    int // suma de current_quantity
	LowStockCount int // productos con current_quantity < min_quantity
}

// MovementTotalsResult unidades que entraron y salieron en un período.
type MovementTotalsResult struct {
	MovementCount int
	UnitsIn       int
	UnitsOut      int
}

// AnalyticsRepository consultas de solo lectura para el dashboard.
type AnalyticsRepository interface {
	GetStockSummary(ctx context.Context) (StockSummaryResult, error)
	// GetMovementTotals agrega los movimientos con created_at en [from, to].
	GetMovementTotals(ctx context.Context, from, to time.Time) (MovementTotalsResult, error)
}
