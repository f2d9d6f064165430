package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, sku, name, description, min_quantity, current_quantity, created_at, updated_at`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.q.Exec(ctx, query,
		product.ID, product.SKU, product.Name, product.Description,
		product.MinQuantity, product.CurrentQuantity, product.CreatedAt, product.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) && violatedConstraint(err) == constraintProductSKU {
			return domain.ErrDuplicateSKU
		}
		return wrapErr("insert product", err)
	}
	return nil
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	return r.getOne(ctx, "get product", `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetBySKU obtiene un producto por SKU normalizado.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*entity.Product, error) {
	return r.getOne(ctx, "get product by sku", `SELECT `+productColumns+` FROM products WHERE sku = $1`, entity.NormalizeSKU(sku))
}

// GetForUpdate SELECT ... FOR UPDATE: bloquea la fila hasta Commit/Rollback.
func (r *ProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.getOne(ctx, "lock product", `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProductRepo) getOne(ctx context.Context, op, query string, arg any) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// List lista todos los productos ordenados por nombre.
func (r *ProductRepo) List(ctx context.Context) ([]*entity.Product, error) {
	return r.list(ctx, "list products", `SELECT `+productColumns+` FROM products ORDER BY name ASC, sku ASC`)
}

// ListLowStock productos bajo el mínimo, mayor déficit primero.
func (r *ProductRepo) ListLowStock(ctx context.Context) ([]*entity.Product, error) {
	return r.list(ctx, "list low stock", `
		SELECT `+productColumns+` FROM products
		WHERE current_quantity < min_quantity
		ORDER BY (min_quantity - current_quantity) DESC, name ASC`)
}

func (r *ProductRepo) list(ctx context.Context, op, query string) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, wrapErr(op, err)
	}
	defer rows.Close()
	list := make([]*entity.Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrapErr("scan product", err)
		}
		list = append(list, p)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr(op, err)
	}
	return list, nil
}

// Update actualiza nombre, descripción y mínimo. El stock solo cambia con AdjustQuantity.
func (r *ProductRepo) Update(ctx context.Context, product *entity.Product) error {
	query := `
		UPDATE products SET name = $2, description = $3, min_quantity = $4, updated_at = $5
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		product.ID, product.Name, product.Description, product.MinQuantity, product.UpdatedAt,
	)
	if err != nil {
		return wrapErr("update product", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// AdjustQuantity UPDATE condicionado: nunca deja current_quantity negativa.
func (r *ProductRepo) AdjustQuantity(ctx context.Context, id string, delta int) (int, error) {
	var after int
	err := r.q.QueryRow(ctx, `
		UPDATE products SET current_quantity = current_quantity + $2, updated_at = now()
		WHERE id = $1 AND current_quantity + $2 >= 0
		RETURNING current_quantity`, id, delta,
	).Scan(&after)
	if err == nil {
		return after, nil
	}
	if isOutOfRange(err) {
		return 0, domain.ErrInvalidQuantity
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, wrapErr("adjust quantity", err)
	}
	// Sin filas: el producto no existe o la salida excede el stock.
	var current int
	err = r.q.QueryRow(ctx, `SELECT current_quantity FROM products WHERE id = $1`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrNotFound
		}
		return 0, wrapErr("adjust quantity", err)
	}
	return 0, &domain.InsufficientStockError{Available: current, Requested: -delta}
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	if err := row.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description,
		&p.MinQuantity, &p.CurrentQuantity, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
