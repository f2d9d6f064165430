package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementRecordSelect = `
	SELECT m.id, m.product_id, m.type, m.quantity, m.operator_id, m.notes,
	       m.quantity_before, m.quantity_after, m.created_at,
	       p.name, p.sku, u.name
	FROM stock_movements m
	JOIN products p ON p.id = m.product_id
	JOIN users    u ON u.id = m.operator_id`

// MovementRepo ledger de movimientos sobre PostgreSQL (usable con pool o tx).
// Solo INSERT y SELECT: los movimientos no se modifican ni se borran.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create persiste un movimiento.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO stock_movements (id, product_id, type, quantity, operator_id, notes, quantity_before, quantity_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.ProductID, m.Type.String(), m.Quantity, m.OperatorID, m.Notes,
		m.QuantityBefore, m.QuantityAfter, m.CreatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			// producto u operador inexistente
			return domain.ErrNotFound
		}
		return wrapErr("create movement", err)
	}
	return nil
}

// GetRecord obtiene un movimiento con nombre/SKU del producto y nombre del operador.
func (r *MovementRepo) GetRecord(ctx context.Context, id string) (*entity.MovementRecord, error) {
	rec, err := scanRecord(r.q.QueryRow(ctx, movementRecordSelect+` WHERE m.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get movement", err)
	}
	return rec, nil
}

// List movimientos del más reciente al más antiguo.
func (r *MovementRepo) List(ctx context.Context, limit, offset int) ([]*entity.MovementRecord, error) {
	return r.list(ctx, movementRecordSelect+`
		ORDER BY m.created_at DESC, m.id DESC LIMIT $1 OFFSET $2`, limit, offset)
}

// ListByProduct historial de un producto, más reciente primero.
func (r *MovementRepo) ListByProduct(ctx context.Context, productID string, limit, offset int) ([]*entity.MovementRecord, error) {
	return r.list(ctx, movementRecordSelect+`
		WHERE m.product_id = $1
		ORDER BY m.created_at DESC, m.id DESC LIMIT $2 OFFSET $3`, productID, limit, offset)
}

func (r *MovementRepo) list(ctx context.Context, query string, args ...any) ([]*entity.MovementRecord, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list movements", err)
	}
	defer rows.Close()
	list := make([]*entity.MovementRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, wrapErr("scan movement", err)
		}
		list = append(list, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list movements", err)
	}
	return list, nil
}

// Count total de movimientos del ledger.
func (r *MovementRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements`).Scan(&n); err != nil {
		return 0, wrapErr("count movements", err)
	}
	return n, nil
}

// CountByProduct total de movimientos de un producto.
func (r *MovementRepo) CountByProduct(ctx context.Context, productID string) (int, error) {
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM stock_movements WHERE product_id = $1`, productID).Scan(&n); err != nil {
		return 0, wrapErr("count movements by product", err)
	}
	return n, nil
}

func scanRecord(row pgx.Row) (*entity.MovementRecord, error) {
	var (
		rec entity.MovementRecord
		typ string
	)
	if err := row.Scan(
		&rec.ID, &rec.ProductID, &typ, &rec.Quantity, &rec.OperatorID, &rec.Notes,
		&rec.QuantityBefore, &rec.QuantityAfter, &rec.CreatedAt,
		&rec.ProductName, &rec.ProductSKU, &rec.OperatorName,
	); err != nil {
		return nil, err
	}
	t, err := entity.ParseMovementType(typ)
	if err != nil {
		return nil, err
	}
	rec.Type = t
	return &rec, nil
}
