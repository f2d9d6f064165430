package postgres

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
)

// fakeRow resultado de QueryRow: valores a copiar en Scan o un error.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("scan: %d destinos para %d valores", len(dest), len(r.values))
	}
	for i, d := range dest {
		reflect.ValueOf(d).Elem().Set(reflect.ValueOf(r.values[i]))
	}
	return nil
}

// fakeQuerier Querier que registra el SQL y responde con resultados preparados.
type fakeQuerier struct {
	execTag pgconn.CommandTag
	execErr error
	rows    []fakeRow // una por cada QueryRow, en orden
	sql     []string
}

func (q *fakeQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	q.sql = append(q.sql, sql)
	return q.execTag, q.execErr
}

func (q *fakeQuerier) Query(_ context.Context, sql string, _ ...any) (pgx.Rows, error) {
	q.sql = append(q.sql, sql)
	return nil, errors.New("fakeQuerier: Query no soportado")
}

func (q *fakeQuerier) QueryRow(_ context.Context, sql string, _ ...any) pgx.Row {
	q.sql = append(q.sql, sql)
	if len(q.rows) == 0 {
		return fakeRow{err: pgx.ErrNoRows}
	}
	row := q.rows[0]
	q.rows = q.rows[1:]
	return row
}

var repoNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func sampleProduct(t *testing.T) *entity.Product {
	t.Helper()
	p, err := entity.NewProduct("00000000-0000-0000-0000-0000000000b1", "PEN-1", "Bolígrafo", "", 10, 5, repoNow)
	require.NoError(t, err)
	return p
}

func TestProductRepo_CreateTraduceSKUDuplicado(t *testing.T) {
	ctx := context.Background()

	q := &fakeQuerier{execErr: &pgconn.PgError{Code: "23505", ConstraintName: constraintProductSKU}}
	err := NewProductRepository(q).Create(ctx, sampleProduct(t))
	assert.ErrorIs(t, err, domain.ErrDuplicateSKU)

	// Otra constraint única (p. ej. la PK) no es un SKU duplicado
	pkErr := &pgconn.PgError{Code: "23505", ConstraintName: "products_pkey"}
	q = &fakeQuerier{execErr: pkErr}
	err = NewProductRepository(q).Create(ctx, sampleProduct(t))
	assert.False(t, errors.Is(err, domain.ErrDuplicateSKU))
	assert.ErrorIs(t, err, pkErr)

	q = &fakeQuerier{}
	require.NoError(t, NewProductRepository(q).Create(ctx, sampleProduct(t)))
	require.Len(t, q.sql, 1)
	assert.Contains(t, q.sql[0], "INSERT INTO products")
}

func TestProductRepo_GetForUpdateBloqueaLaFila(t *testing.T) {
	p := sampleProduct(t)
	q := &fakeQuerier{rows: []fakeRow{{values: []any{
		p.ID, p.SKU, p.Name, p.Description, p.MinQuantity, p.CurrentQuantity, p.CreatedAt, p.UpdatedAt,
	}}}}
	repo := NewProductRepository(q)

	got, err := repo.GetForUpdate(context.Background(), p.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 5, got.CurrentQuantity)
	require.Len(t, q.sql, 1)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(q.sql[0]), "FOR UPDATE"))

	// Sin filas: producto inexistente, sin error
	got, err = repo.GetForUpdate(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProductRepo_AdjustQuantity(t *testing.T) {
	ctx := context.Background()
	id := "00000000-0000-0000-0000-0000000000b1"

	q := &fakeQuerier{rows: []fakeRow{{values: []any{8}}}}
	after, err := NewProductRepository(q).AdjustQuantity(ctx, id, 3)
	require.NoError(t, err)
	assert.Equal(t, 8, after)
	assert.Contains(t, q.sql[0], "current_quantity + $2 >= 0")

	// El UPDATE no afectó filas y el producto existe: stock insuficiente
	q = &fakeQuerier{rows: []fakeRow{{err: pgx.ErrNoRows}, {values: []any{3}}}}
	_, err = NewProductRepository(q).AdjustQuantity(ctx, id, -7)
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 7, stockErr.Requested)

	// Tampoco existe el producto
	q = &fakeQuerier{rows: []fakeRow{{err: pgx.ErrNoRows}, {err: pgx.ErrNoRows}}}
	_, err = NewProductRepository(q).AdjustQuantity(ctx, id, -1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Desborde de la columna INTEGER
	q = &fakeQuerier{rows: []fakeRow{{err: &pgconn.PgError{Code: "22003"}}}}
	_, err = NewProductRepository(q).AdjustQuantity(ctx, id, 10)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	// Bloqueo vencido
	q = &fakeQuerier{rows: []fakeRow{{err: &pgconn.PgError{Code: "55P03"}}}}
	_, err = NewProductRepository(q).AdjustQuantity(ctx, id, 1)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestProductRepo_UpdateSinFilasEsNoEncontrado(t *testing.T) {
	q := &fakeQuerier{execTag: pgconn.NewCommandTag("UPDATE 0")}
	err := NewProductRepository(q).Update(context.Background(), sampleProduct(t))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	q = &fakeQuerier{execTag: pgconn.NewCommandTag("UPDATE 1")}
	require.NoError(t, NewProductRepository(q).Update(context.Background(), sampleProduct(t)))
	assert.NotContains(t, q.sql[0], "current_quantity")
}

func TestUserRepo_CreateTraduceEmailDuplicado(t *testing.T) {
	u, err := entity.NewUser("00000000-0000-0000-0000-0000000000a1", "Oli", "oli@x.com", "hash", entity.RoleOperator, repoNow)
	require.NoError(t, err)

	q := &fakeQuerier{execErr: &pgconn.PgError{Code: "23505", ConstraintName: constraintUserEmail}}
	assert.ErrorIs(t, NewUserRepository(q).Create(context.Background(), u), domain.ErrDuplicateIdentity)

	q = &fakeQuerier{execErr: &timeoutErr{}}
	err = NewUserRepository(q).Create(context.Background(), u)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
}

func TestMovementRepo_CreateYGetRecord(t *testing.T) {
	ctx := context.Background()
	m, err := entity.NewMovement("00000000-0000-0000-0000-0000000000c1", "00000000-0000-0000-0000-0000000000b1",
		entity.MovementIn, 2, "00000000-0000-0000-0000-0000000000a1", "", 5, repoNow)
	require.NoError(t, err)

	// producto u operador inexistente
	q := &fakeQuerier{execErr: &pgconn.PgError{Code: "23503", ConstraintName: "stock_movements_operator_id_fkey"}}
	assert.ErrorIs(t, NewMovementRepository(q).Create(ctx, m), domain.ErrNotFound)

	q = &fakeQuerier{rows: []fakeRow{{values: []any{
		m.ID, m.ProductID, "in", 2, m.OperatorID, "", 5, 7, repoNow, "Bolígrafo", "PEN-1", "Oli",
	}}}}
	rec, err := NewMovementRepository(q).GetRecord(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, entity.MovementIn, rec.Type)
	assert.Equal(t, 7, rec.QuantityAfter)
	assert.Equal(t, "PEN-1", rec.ProductSKU)
	assert.Equal(t, "Oli", rec.OperatorName)

	rec, err = NewMovementRepository(&fakeQuerier{}).GetRecord(ctx, m.ID)
	require.NoError(t, err)
	assert.Nil(t, rec)
}

// timeoutErr cumple net.Error con Timeout() = true.
type timeoutErr struct{}

func (*timeoutErr) Error() string   { return "i/o timeout" }
func (*timeoutErr) Timeout() bool   { return true }
func (*timeoutErr) Temporary() bool { return true }
