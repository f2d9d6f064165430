// Package memory implementa los puertos de persistencia en memoria (DATABASE_URL=memory://).
// Ofrece las mismas garantías que PostgreSQL para el motor de movimientos: bloqueo
// por producto hasta Commit/Rollback y escrituras atómicas al confirmar.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jhoicas/inventario-movimientos/internal/application/inventory"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store almacén en memoria. Seguro para uso concurrente.
type Store struct {
	mu            sync.RWMutex
	users         map[string]*entity.User
	usersByEmail  map[string]string
	products      map[string]*entity.Product
	productsBySKU map[string]string
	movements     []*entity.Movement // orden de confirmación

	locksMu sync.Mutex
	locks   map[string]chan struct{} // un semáforo por producto
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		users:         make(map[string]*entity.User),
		usersByEmail:  make(map[string]string),
		products:      make(map[string]*entity.Product),
		productsBySKU: make(map[string]string),
		locks:         make(map[string]chan struct{}),
	}
}

// Users repositorio de usuarios.
func (s *Store) Users() repository.UserRepository { return &userRepo{s: s} }

// Products repositorio de productos fuera de transacción.
func (s *Store) Products() repository.ProductRepository { return &productRepo{s: s} }

// Movements repositorio del ledger fuera de transacción.
func (s *Store) Movements() repository.MovementRepository { return &movementRepo{s: s} }

// Analytics repositorio de agregados del dashboard.
func (s *Store) Analytics() repository.AnalyticsRepository { return &analyticsRepo{s: s} }

// Run ejecuta fn en una transacción. Los productos bloqueados con GetForUpdate se
// liberan al terminar; las escrituras se aplican solo si fn no devuelve error.
func (s *Store) Run(ctx context.Context, fn func(
	productRepo repository.ProductRepository,
	movRepo repository.MovementRepository,
) error) error {
	t := &tx{s: s, held: make(map[string]bool), quantities: make(map[string]int)}
	defer t.release()

	if err := fn(&txProductRepo{productRepo: productRepo{s: s}, t: t}, &txMovementRepo{movementRepo: movementRepo{s: s}, t: t}); err != nil {
		return err
	}
	return t.commit(ctx)
}

func (s *Store) hasProduct(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.products[id]
	return ok
}

func (s *Store) productLock(id string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[id] = ch
	}
	return ch
}

// tx escrituras pendientes de una transacción.
type tx struct {
	s          *Store
	held       map[string]bool
	quantities map[string]int // cantidad resultante por producto
	movements  []*entity.Movement
}

func (t *tx) lock(ctx context.Context, id string) error {
	if t.held[id] {
		return nil
	}
	select {
	case t.s.productLock(id) <- struct{}{}:
		t.held[id] = true
		return nil
	case <-ctx.Done():
		return fmt.Errorf("memory: esperar bloqueo de %s: %w", id, ctx.Err())
	}
}

func (t *tx) release() {
	for id := range t.held {
		<-t.s.productLock(id)
	}
	t.held = nil
}

func (t *tx) commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("memory: commit: %w", err)
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for id := range t.quantities {
		if _, ok := t.s.products[id]; !ok {
			return domain.ErrNotFound
		}
	}
	for id, q := range t.quantities {
		t.s.products[id].CurrentQuantity = q
	}
	for _, m := range t.movements {
		if p, ok := t.s.products[m.ProductID]; ok && m.CreatedAt.After(p.UpdatedAt) {
			p.UpdatedAt = m.CreatedAt
		}
	}
	t.s.movements = append(t.s.movements, t.movements...)
	return nil
}

// ── productos ────────────────────────────────────────────────────────────────

type productRepo struct {
	s *Store
}

func (r *productRepo) Create(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, dup := r.s.productsBySKU[p.SKU]; dup {
		return domain.ErrDuplicateSKU
	}
	cp := *p
	r.s.products[p.ID] = &cp
	r.s.productsBySKU[p.SKU] = p.ID
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyProduct(r.s.products[id]), nil
}

func (r *productRepo) GetBySKU(_ context.Context, sku string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.productsBySKU[entity.NormalizeSKU(sku)]
	if !ok {
		return nil, nil
	}
	return copyProduct(r.s.products[id]), nil
}

func (r *productRepo) List(_ context.Context) ([]*entity.Product, error) {
	list := r.snapshot(func(*entity.Product) bool { return true })
	sort.Slice(list, func(i, j int) bool {
		if list[i].Name != list[j].Name {
			return list[i].Name < list[j].Name
		}
		return list[i].SKU < list[j].SKU
	})
	return list, nil
}

func (r *productRepo) ListLowStock(_ context.Context) ([]*entity.Product, error) {
	list := r.snapshot((*entity.Product).IsLowStock)
	sort.Slice(list, func(i, j int) bool {
		if di, dj := list[i].Deficit(), list[j].Deficit(); di != dj {
			return di > dj
		}
		return list[i].Name < list[j].Name
	})
	return list, nil
}

func (r *productRepo) snapshot(keep func(*entity.Product) bool) []*entity.Product {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	list := make([]*entity.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		if keep(p) {
			list = append(list, copyProduct(p))
		}
	}
	return list
}

func (r *productRepo) Update(_ context.Context, p *entity.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.products[p.ID]
	if !ok {
		return domain.ErrNotFound
	}
	cur.Name = p.Name
	cur.Description = p.Description
	cur.MinQuantity = p.MinQuantity
	cur.UpdatedAt = p.UpdatedAt
	return nil
}

// GetForUpdate fuera de transacción no bloquea.
func (r *productRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	return r.GetByID(ctx, id)
}

// AdjustQuantity fuera de transacción se aplica de inmediato.
func (r *productRepo) AdjustQuantity(_ context.Context, id string, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return 0, domain.ErrNotFound
	}
	after, err := applyDelta(p.CurrentQuantity, delta)
	if err != nil {
		return 0, err
	}
	p.CurrentQuantity = after
	return after, nil
}

// applyDelta aplica las mismas restricciones que la columna current_quantity.
func applyDelta(current, delta int) (int, error) {
	if current+delta < 0 {
		return 0, &domain.InsufficientStockError{Available: current, Requested: -delta}
	}
	if delta > 0 && current > entity.MaxQuantity-delta {
		return 0, domain.ErrInvalidQuantity
	}
	return current + delta, nil
}

type txProductRepo struct {
	productRepo
	t *tx
}

// GetByID ve las cantidades pendientes de la propia transacción.
func (r *txProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := r.productRepo.GetByID(ctx, id)
	if err != nil || p == nil {
		return p, err
	}
	if q, ok := r.t.quantities[id]; ok {
		p.CurrentQuantity = q
	}
	return p, nil
}

// GetForUpdate solo crea el semáforo de productos existentes; los productos no se borran.
func (r *txProductRepo) GetForUpdate(ctx context.Context, id string) (*entity.Product, error) {
	if !r.s.hasProduct(id) {
		return nil, nil
	}
	if err := r.t.lock(ctx, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *txProductRepo) AdjustQuantity(ctx context.Context, id string, delta int) (int, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if p == nil {
		return 0, domain.ErrNotFound
	}
	after, err := applyDelta(p.CurrentQuantity, delta)
	if err != nil {
		return 0, err
	}
	r.t.quantities[id] = after
	return after, nil
}

func copyProduct(p *entity.Product) *entity.Product {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}

// ── usuarios ─────────────────────────────────────────────────────────────────

type userRepo struct {
	s *Store
}

func (r *userRepo) Create(_ context.Context, u *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	email := entity.NormalizeEmail(u.Email)
	if _, dup := r.s.usersByEmail[email]; dup {
		return domain.ErrDuplicateIdentity
	}
	cp := *u
	r.s.users[u.ID] = &cp
	r.s.usersByEmail[email] = u.ID
	return nil
}

func (r *userRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return copyUser(r.s.users[id]), nil
}

func (r *userRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.usersByEmail[entity.NormalizeEmail(email)]
	if !ok {
		return nil, nil
	}
	return copyUser(r.s.users[id]), nil
}

func copyUser(u *entity.User) *entity.User {
	if u == nil {
		return nil
	}
	cp := *u
	return &cp
}
