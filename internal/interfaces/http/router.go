package http

import (
	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/inventario-movimientos/internal/application/analytics"
	"github.com/jhoicas/inventario-movimientos/internal/application/auth"
	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/application/usecase"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC         *auth.AuthUseCase
	ProductUC      *usecase.ProductUseCase
	RecordMovement *inventory.RecordMovementUseCase
	DashboardUC    *appanalytics.DashboardUseCase
	JWTSecret      string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Auth (público). /api/auth/* se mantiene como alias.
	authHandler := NewAuthHandler(deps.AuthUC)
	api.Post("/sessions", authHandler.Login)
	api.Post("/users", authHandler.Register)
	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/register", authHandler.Register)

	// Rutas protegidas (requieren Bearer Token)
	requireAuth := AuthMiddleware(deps.JWTSecret)
	managerOnly := RequireRole(entity.RoleNameManager)

	// Products
	products := api.Group("/products", requireAuth)
	productHandler := NewProductHandler(deps.ProductUC, deps.RecordMovement)
	products.Get("/", productHandler.List)
	products.Post("/", managerOnly, productHandler.Create)
	products.Get("/low-stock", productHandler.ListLowStock)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", managerOnly, productHandler.Update)
	products.Get("/:id/movements", productHandler.ListMovements)

	// Movements (cualquier rol)
	movements := api.Group("/movements", requireAuth)
	inventoryHandler := NewInventoryHandler(deps.RecordMovement)
	movements.Get("/", inventoryHandler.ListMovements)
	movements.Post("/", inventoryHandler.RecordMovement)

	// Dashboard
	if deps.DashboardUC != nil {
		dashboard := api.Group("/dashboard", requireAuth)
		dashboardHandler := NewDashboardHandler(deps.DashboardUC)
		dashboard.Get("/summary", dashboardHandler.GetSummary)
		dashboard.Get("/low-stock.pdf", dashboardHandler.GetLowStockPDF)
	}
}
