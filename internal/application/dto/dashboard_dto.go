package dto

// DashboardSummaryDTO respuesta de GET /api/dashboard/summary.
type DashboardSummaryDTO struct {
	TotalProducts int `json:"total_products"`
	TotalUnits    int `json:"total_units"` // suma del stock actual de todos los productos
	LowStockCount int `json:"low_stock_count"`

	// Productos bajo el mínimo, mayor déficit primero
	LowStock []LowStockItemDTO `json:"low_stock"`

	// Movimientos de los últimos 30 días
	Last30Days MovementTotalsDTO `json:"last_30_days"`

	RecentMovements []MovementResponse `json:"recent_movements"`
}

// LowStockItemDTO producto bajo su punto de reorden.
type LowStockItemDTO struct {
	ProductID       string `json:"product_id"`
	SKU             string `json:"sku"`
	Name            string `json:"name"`
	MinQuantity     int    `json:"min_quantity"`
	CurrentQuantity int    `json:"current_quantity"`
	Deficit         int    `json:"deficit"`
}

// MovementTotalsDTO agregados de movimientos en un período.
type MovementTotalsDTO struct {
	Movements int `json:"movements"`
	UnitsIn   int `json:"units_in"`
	UnitsOut  int `json:"units_out"`
}
