package dto

import "time"

// CreateProductRequest entrada para crear un producto.
type CreateProductRequest struct {
	SKU             string `json:"sku"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	MinQuantity     int    `json:"min_quantity"`
	CurrentQuantity int    `json:"current_quantity"`
}

// UpdateProductRequest entrada para actualizar un producto (sin stock: se maneja vía movimientos).
type UpdateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	MinQuantity *int    `json:"min_quantity"`
}

// ProductResponse salida de un producto.
type ProductResponse struct {
	ID              string    `json:"id"`
	SKU             string    `json:"sku"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	MinQuantity     int       `json:"min_quantity"`
	CurrentQuantity int       `json:"current_quantity"`
	LowStock        bool      `json:"low_stock"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}
