package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

var _ repository.AnalyticsRepository = (*AnalyticsRepo)(nil)

// AnalyticsRepo consultas de solo lectura para el dashboard de inventario.
type AnalyticsRepo struct {
	pool *pgxpool.Pool
}

// NewAnalyticsRepository construye el adaptador de analítica.
func NewAnalyticsRepository(pool *pgxpool.Pool) *AnalyticsRepo {
	return &AnalyticsRepo{pool: pool}
}

// GetStockSummary totales del catálogo en una sola pasada.
func (r *AnalyticsRepo) GetStockSummary(ctx context.Context) (repository.StockSummaryResult, error) {
	const query = `
	SELECT
	    COUNT(*)                                                  AS total_products,
	    COALESCE(SUM(current_quantity), 0)                        AS total_units,
	    COUNT(*) FILTER (WHERE current_quantity < min_quantity)   AS low_stock_count
	FROM products`

	var res repository.StockSummaryResult
	if err := r.pool.QueryRow(ctx, query).Scan(&res.TotalProducts, &res.TotalUnits, &res.LowStockCount); err != nil {
		return repository.StockSummaryResult{}, wrapErr("analytics: stock summary", err)
	}
	return res, nil
}

// GetMovementTotals unidades que entraron y salieron entre from y to (inclusive).
func (r *AnalyticsRepo) GetMovementTotals(ctx context.Context, from, to time.Time) (repository.MovementTotalsResult, error) {
	const query = `
	SELECT
	    COUNT(*)                                                   AS movement_count,
	    COALESCE(SUM(quantity) FILTER (WHERE type = 'in'),  0)     AS units_in,
	    COALESCE(SUM(quantity) FILTER (WHERE type = 'out'), 0)     AS units_out
	FROM stock_movements
	WHERE created_at BETWEEN $1 AND $2`

	var res repository.MovementTotalsResult
	if err := r.pool.QueryRow(ctx, query, from, to).Scan(&res.MovementCount, &res.UnitsIn, &res.UnitsOut); err != nil {
		return repository.MovementTotalsResult{}, wrapErr("analytics: movement totals", err)
	}
	return res, nil
}
