// Package analytics contiene los casos de uso del dashboard de inventario:
// resumen de stock, alertas de reposición y reporte PDF de faltantes.
package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

const (
	dashboardRecentMovements = 5 // movimientos en el widget del dashboard
	dashboardWindow          = 30 * 24 * time.Hour
)

// LowStockPDFGenerator puerto para el reporte de productos bajo el mínimo.
type LowStockPDFGenerator interface {
	GenerateLowStockPDF(ctx context.Context, items []dto.LowStockItemDTO, generatedAt time.Time) ([]byte, error)
}

// DashboardUseCase genera el resumen de inventario.
//
// Fuente de datos: AnalyticsRepository (agregados), ProductRepository (faltantes)
// y MovementRepository (últimos movimientos). Solo lectura.
type DashboardUseCase struct {
	analyticsRepo repository.AnalyticsRepository
	productRepo   repository.ProductRepository
	movRepo       repository.MovementRepository
	pdfGen        LowStockPDFGenerator
	now           func() time.Time
}

// NewDashboardUseCase construye el caso de uso. pdfGen puede ser nil si no se sirve el PDF.
func NewDashboardUseCase(
	analyticsRepo repository.AnalyticsRepository,
	productRepo repository.ProductRepository,
	movRepo repository.MovementRepository,
	pdfGen LowStockPDFGenerator,
) *DashboardUseCase {
	return &DashboardUseCase{
		analyticsRepo: analyticsRepo,
		productRepo:   productRepo,
		movRepo:       movRepo,
		pdfGen:        pdfGen,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// GetSummary construye el DashboardSummaryDTO.
//
// Cuatro llamadas en paralelo:
//  1. GetStockSummary            → totales del catálogo
//  2. ListLowStock               → faltantes
//  3. GetMovementTotals(30 días) → entradas/salidas
//  4. List(5)                    → últimos movimientos
func (uc *DashboardUseCase) GetSummary(ctx context.Context) (*dto.DashboardSummaryDTO, error) {
	to := uc.now()
	from := to.Add(-dashboardWindow)

	type summaryResult struct {
		res repository.StockSummaryResult
		err error
	}
	type lowStockResult struct {
		list []*entity.Product
		err  error
	}
	type totalsResult struct {
		res repository.MovementTotalsResult
		err error
	}
	type recentResult struct {
		list []*entity.MovementRecord
		err  error
	}

	summaryCh := make(chan summaryResult, 1)
	lowCh := make(chan lowStockResult, 1)
	totalsCh := make(chan totalsResult, 1)
	recentCh := make(chan recentResult, 1)

	go func() {
		res, err := uc.analyticsRepo.GetStockSummary(ctx)
		summaryCh <- summaryResult{res, err}
	}()
	go func() {
		list, err := uc.productRepo.ListLowStock(ctx)
		lowCh <- lowStockResult{list, err}
	}()
	go func() {
		res, err := uc.analyticsRepo.GetMovementTotals(ctx, from, to)
		totalsCh <- totalsResult{res, err}
	}()
	go func() {
		list, err := uc.movRepo.List(ctx, dashboardRecentMovements, 0)
		recentCh <- recentResult{list, err}
	}()

	summary := <-summaryCh
	low := <-lowCh
	totals := <-totalsCh
	recent := <-recentCh

	if summary.err != nil {
		return nil, fmt.Errorf("dashboard: resumen de stock: %w", summary.err)
	}
	if low.err != nil {
		return nil, fmt.Errorf("dashboard: faltantes: %w", low.err)
	}
	if totals.err != nil {
		return nil, fmt.Errorf("dashboard: totales de movimientos: %w", totals.err)
	}
	if recent.err != nil {
		return nil, fmt.Errorf("dashboard: últimos movimientos: %w", recent.err)
	}

	movements := make([]dto.MovementResponse, 0, len(recent.list))
	for _, r := range recent.list {
		movements = append(movements, dto.ToMovementResponse(r))
	}

	return &dto.DashboardSummaryDTO{
		TotalProducts: summary.res.TotalProducts,
		TotalUnits:    summary.res.TotalUnits,
		LowStockCount: summary.res.LowStockCount,
		LowStock:      toLowStockItems(low.list),
		Last30Days: dto.MovementTotalsDTO{
			Movements: totals.res.MovementCount,
			UnitsIn:   totals.res.UnitsIn,
			UnitsOut:  totals.res.UnitsOut,
		},
		RecentMovements: movements,
	}, nil
}

// LowStockPDF genera el reporte de faltantes. Un catálogo sin faltantes produce
// un PDF con la tabla vacía.
func (uc *DashboardUseCase) LowStockPDF(ctx context.Context) ([]byte, error) {
	if uc.pdfGen == nil {
		return nil, fmt.Errorf("dashboard: generador PDF no configurado")
	}
	list, err := uc.productRepo.ListLowStock(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard: faltantes: %w", err)
	}
	return uc.pdfGen.GenerateLowStockPDF(ctx, toLowStockItems(list), uc.now())
}

func toLowStockItems(list []*entity.Product) []dto.LowStockItemDTO {
	items := make([]dto.LowStockItemDTO, 0, len(list))
	for _, p := range list {
		items = append(items, dto.LowStockItemDTO{
			ProductID:       p.ID,
			SKU:             p.SKU,
			Name:            p.Name,
			MinQuantity:     p.MinQuantity,
			CurrentQuantity: p.CurrentQuantity,
			Deficit:         p.Deficit(),
		})
	}
	return items
}
