package inventory_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-movimientos/internal/application/auth"
	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/infrastructure/memory"
)

type fixture struct {
	store    *memory.Store
	uc       *inventory.RecordMovementUseCase
	session  auth.Session
	products map[string]*entity.Product
}

// newFixture crea un operador y los productos sku→cantidad inicial (mínimo 10).
func newFixture(t *testing.T, publisher inventory.EventPublisher, stock map[string]int) *fixture {
	t.Helper()
	ctx := context.Background()
	now := time.Now().UTC()
	store := memory.NewStore()

	user, err := entity.NewUser(uuid.New().String(), "Oli", "oli@x.com", "hash", entity.RoleOperator, now)
	require.NoError(t, err)
	require.NoError(t, store.Users().Create(ctx, user))

	products := make(map[string]*entity.Product, len(stock))
	for sku, qty := range stock {
		p, err := entity.NewProduct(uuid.New().String(), sku, "Producto "+sku, "", 10, qty, now)
		require.NoError(t, err)
		require.NoError(t, store.Products().Create(ctx, p))
		products[sku] = p
	}

	return &fixture{
		store:    store,
		uc:       inventory.NewRecordMovementUseCase(store, store.Products(), store.Movements(), publisher, nil),
		session:  auth.Session{UserID: user.ID, Email: user.Email, Role: user.Role},
		products: products,
	}
}

func (f *fixture) quantity(t *testing.T, sku string) int {
	t.Helper()
	p, err := f.store.Products().GetByID(context.Background(), f.products[sku].ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	return p.CurrentQuantity
}

func (f *fixture) ledgerSize(t *testing.T) int {
	t.Helper()
	n, err := f.store.Movements().Count(context.Background())
	require.NoError(t, err)
	return n
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []inventory.MovementRecordedEvent
	err    error
}

func (p *recordingPublisher) PublishMovementRecorded(_ context.Context, evt inventory.MovementRecordedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func TestRecordMovement_EntradaSumaStock(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, pub, map[string]int{"PEN-1": 5})
	pen := f.products["PEN-1"]

	out, err := f.uc.RecordMovement(context.Background(), f.session, dto.RecordMovementRequest{
		ProductID: pen.ID, Type: "in", Quantity: 20, Notes: "  compra  ",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementIn, out.Type)
	assert.Equal(t, 20, out.Quantity)
	assert.Equal(t, 5, out.QuantityBefore)
	assert.Equal(t, 25, out.QuantityAfter)
	assert.Equal(t, "compra", out.Notes)
	assert.Equal(t, "PEN-1", out.Product.SKU)
	assert.Equal(t, f.session.UserID, out.Operator.ID)
	assert.Equal(t, "Oli", out.Operator.Name)

	assert.Equal(t, 25, f.quantity(t, "PEN-1"))
	assert.Equal(t, 1, f.ledgerSize(t))

	require.Len(t, pub.events, 1)
	evt := pub.events[0]
	assert.Equal(t, out.ID, evt.MovementID)
	assert.Equal(t, pen.ID, evt.ProductID)
	assert.Equal(t, "in", evt.Type)
	assert.False(t, evt.LowStock)
}

func TestRecordMovement_SalidaInsuficienteNoModificaNada(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, pub, map[string]int{"PEN-1": 3})

	_, err := f.uc.RecordMovement(context.Background(), f.session, dto.RecordMovementRequest{
		ProductID: f.products["PEN-1"].ID, Type: "out", Quantity: 4,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 3, stockErr.Available)
	assert.Equal(t, 4, stockErr.Requested)

	assert.Equal(t, 3, f.quantity(t, "PEN-1"))
	assert.Equal(t, 0, f.ledgerSize(t))
	assert.Empty(t, pub.events)
}

func TestRecordMovement_SalidaExactaDejaCeroYMarcaBajoStock(t *testing.T) {
	pub := &recordingPublisher{}
	f := newFixture(t, pub, map[string]int{"PEN-1": 3})

	out, err := f.uc.RecordMovement(context.Background(), f.session, dto.RecordMovementRequest{
		ProductID: f.products["PEN-1"].ID, Type: "out", Quantity: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, out.QuantityAfter)
	assert.Equal(t, 0, f.quantity(t, "PEN-1"))
	require.Len(t, pub.events, 1)
	assert.True(t, pub.events[0].LowStock)
}

func TestRecordMovement_Validaciones(t *testing.T) {
	f := newFixture(t, nil, map[string]int{"PEN-1": 5})
	id := f.products["PEN-1"].ID

	cases := []struct {
		name    string
		session auth.Session
		in      dto.RecordMovementRequest
		want    error
	}{
		{"sin sesión", auth.Session{}, dto.RecordMovementRequest{ProductID: id, Type: "in", Quantity: 1}, domain.ErrInvalidToken},
		{"sin producto", f.session, dto.RecordMovementRequest{Type: "in", Quantity: 1}, domain.ErrInvalidInput},
		{"sin tipo", f.session, dto.RecordMovementRequest{ProductID: id, Quantity: 1}, domain.ErrInvalidInput},
		{"tipo desconocido", f.session, dto.RecordMovementRequest{ProductID: id, Type: "ajuste", Quantity: 1}, domain.ErrInvalidInput},
		{"cantidad cero", f.session, dto.RecordMovementRequest{ProductID: id, Type: "in"}, domain.ErrInvalidQuantity},
		{"cantidad negativa", f.session, dto.RecordMovementRequest{ProductID: id, Type: "out", Quantity: -1}, domain.ErrInvalidQuantity},
		{"cantidad fuera de rango", f.session, dto.RecordMovementRequest{ProductID: id, Type: "in", Quantity: math.MaxInt}, domain.ErrInvalidQuantity},
		{"id no uuid", f.session, dto.RecordMovementRequest{ProductID: "abc", Type: "in", Quantity: 1}, domain.ErrNotFound},
		{"producto inexistente", f.session, dto.RecordMovementRequest{ProductID: uuid.New().String(), Type: "in", Quantity: 1}, domain.ErrNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.uc.RecordMovement(context.Background(), tc.session, tc.in)
			assert.ErrorIs(t, err, tc.want)
		})
	}
	assert.Equal(t, 5, f.quantity(t, "PEN-1"))
	assert.Equal(t, 0, f.ledgerSize(t))
}

func TestRecordMovement_EntradaQueDesbordaElStock(t *testing.T) {
	f := newFixture(t, nil, map[string]int{"PEN-1": entity.MaxQuantity - 1})
	id := f.products["PEN-1"].ID

	_, err := f.uc.RecordMovement(context.Background(), f.session, dto.RecordMovementRequest{ProductID: id, Type: "in", Quantity: 2})
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.False(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Equal(t, entity.MaxQuantity-1, f.quantity(t, "PEN-1"))
	assert.Equal(t, 0, f.ledgerSize(t))

	out, err := f.uc.RecordMovement(context.Background(), f.session, dto.RecordMovementRequest{ProductID: id, Type: "in", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, entity.MaxQuantity, out.QuantityAfter)
}

func TestRecordMovement_OperadorInexistenteNoDejaRastro(t *testing.T) {
	f := newFixture(t, nil, map[string]int{"PEN-1": 5})
	ghost := auth.Session{UserID: uuid.New().String(), Role: entity.RoleOperator}

	_, err := f.uc.RecordMovement(context.Background(), ghost, dto.RecordMovementRequest{
		ProductID: f.products["PEN-1"].ID, Type: "in", Quantity: 2,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 5, f.quantity(t, "PEN-1"))
	assert.Equal(t, 0, f.ledgerSize(t))
}

func TestRecordMovement_TiposHeredados(t *testing.T) {
	f := newFixture(t, nil, map[string]int{"PEN-1": 5})
	id := f.products["PEN-1"].ID

	out, err := f.uc.RecordMovement(context.Background(), f.session, dto.RecordMovementRequest{ProductID: id, Type: "entrada", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementIn, out.Type)

	out, err = f.uc.RecordMovement(context.Background(), f.session, dto.RecordMovementRequest{ProductID: id, Type: "SAIDA", Quantity: 6})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementOut, out.Type)
	assert.Equal(t, 0, out.QuantityAfter)
}

func TestRecordMovement_SalidasConcurrentesNuncaDejanStockNegativo(t *testing.T) {
	const (
		stock   = 10
		workers = 40
	)
	f := newFixture(t, nil, map[string]int{"PEN-1": stock})
	id := f.products["PEN-1"].ID

	var (
		wg           sync.WaitGroup
		ok, rejected atomic.Int32
		start        = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := f.uc.RecordMovement(context.Background(), f.session, dto.RecordMovementRequest{ProductID: id, Type: "out", Quantity: 1})
			switch {
			case err == nil:
				ok.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				rejected.Add(1)
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(stock), ok.Load())
	assert.Equal(t, int32(workers-stock), rejected.Load())
	assert.Equal(t, 0, f.quantity(t, "PEN-1"))
	assert.Equal(t, stock, f.ledgerSize(t))

	// Cada movimiento encadena con el anterior: before(n) = after(n-1).
	page, err := f.uc.ListProductMovements(context.Background(), id, dto.PageRequest{Limit: 100})
	require.NoError(t, err)
	require.Len(t, page.Movements, stock)
	for i := 0; i < len(page.Movements)-1; i++ {
		newer, older := page.Movements[i], page.Movements[i+1]
		assert.Equal(t, older.QuantityAfter, newer.QuantityBefore)
	}
}

func TestRecordMovement_ProductosDistintosNoSeBloquean(t *testing.T) {
	f := newFixture(t, nil, map[string]int{"A-1": 0, "B-1": 0})

	var wg sync.WaitGroup
	for _, sku := range []string{"A-1", "B-1"} {
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := f.uc.RecordMovement(context.Background(), f.session, dto.RecordMovementRequest{ProductID: id, Type: "in", Quantity: 2})
				assert.NoError(t, err)
			}(f.products[sku].ID)
		}
	}
	wg.Wait()

	assert.Equal(t, 50, f.quantity(t, "A-1"))
	assert.Equal(t, 50, f.quantity(t, "B-1"))
	assert.Equal(t, 50, f.ledgerSize(t))
}

func TestRecordMovement_FalloAlPublicarNoSeDevuelve(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker caído")}
	f := newFixture(t, pub, map[string]int{"PEN-1": 5})

	out, err := f.uc.RecordMovement(context.Background(), f.session, dto.RecordMovementRequest{
		ProductID: f.products["PEN-1"].ID, Type: "out", Quantity: 2,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, out.QuantityAfter)
	assert.Equal(t, 3, f.quantity(t, "PEN-1"))
	assert.Len(t, pub.events, 1)
}

func TestRecordMovement_ContextoCanceladoNoAplica(t *testing.T) {
	f := newFixture(t, nil, map[string]int{"PEN-1": 5})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.uc.RecordMovement(ctx, f.session, dto.RecordMovementRequest{
		ProductID: f.products["PEN-1"].ID, Type: "in", Quantity: 1,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, f.quantity(t, "PEN-1"))
	assert.Equal(t, 0, f.ledgerSize(t))
}

func TestListMovements_PaginacionYOrden(t *testing.T) {
	f := newFixture(t, nil, map[string]int{"PEN-1": 0, "CAP-1": 0})
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_, err := f.uc.RecordMovement(ctx, f.session, dto.RecordMovementRequest{ProductID: f.products["PEN-1"].ID, Type: "in", Quantity: i})
		require.NoError(t, err)
	}
	_, err := f.uc.RecordMovement(ctx, f.session, dto.RecordMovementRequest{ProductID: f.products["CAP-1"].ID, Type: "in", Quantity: 9})
	require.NoError(t, err)

	all, err := f.uc.ListMovements(ctx, dto.PageRequest{Page: -3, Limit: 0})
	require.NoError(t, err)
	assert.Equal(t, dto.Pagination{Page: 1, Limit: 50, Total: 4, Pages: 1}, all.Pagination)
	require.Len(t, all.Movements, 4)
	assert.Equal(t, "CAP-1", all.Movements[0].Product.SKU)
	assert.Equal(t, 3, all.Movements[1].Quantity)

	second, err := f.uc.ListMovements(ctx, dto.PageRequest{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Pagination.Pages)
	require.Len(t, second.Movements, 1)
	assert.Equal(t, 1, second.Movements[0].Quantity)

	beyond, err := f.uc.ListMovements(ctx, dto.PageRequest{Page: 9, Limit: 500})
	require.NoError(t, err)
	assert.Equal(t, dto.MaxLimit, beyond.Pagination.Limit)
	assert.Empty(t, beyond.Movements)

	// Una página enorme no desborda el offset
	huge, err := f.uc.ListMovements(ctx, dto.PageRequest{Page: math.MaxInt, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, huge.Movements)
	assert.Equal(t, 4, huge.Pagination.Total)
	assert.Equal(t, 1, huge.Pagination.Pages)

	hugePen, err := f.uc.ListProductMovements(ctx, f.products["PEN-1"].ID, dto.PageRequest{Page: math.MaxInt, Limit: 1})
	require.NoError(t, err)
	assert.Empty(t, hugePen.Movements)
	assert.Equal(t, 3, hugePen.Pagination.Total)

	pen, err := f.uc.ListProductMovements(ctx, f.products["PEN-1"].ID, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, pen.Pagination.Total)

	_, err = f.uc.ListProductMovements(ctx, uuid.New().String(), dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.uc.ListProductMovements(ctx, "no-es-uuid", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
