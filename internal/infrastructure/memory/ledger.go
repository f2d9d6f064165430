package memory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
)

type movementRepo struct {
	s *Store
}

// Create fuera de transacción agrega directamente al ledger.
func (r *movementRepo) Create(_ context.Context, m *entity.Movement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.checkRefs(m); err != nil {
		return err
	}
	cp := *m
	r.s.movements = append(r.s.movements, &cp)
	return nil
}

// checkRefs equivalente a las llaves foráneas. Requiere r.s.mu tomado.
func (r *movementRepo) checkRefs(m *entity.Movement) error {
	if _, ok := r.s.products[m.ProductID]; !ok {
		return domain.ErrNotFound
	}
	if _, ok := r.s.users[m.OperatorID]; !ok {
		return domain.ErrNotFound
	}
	return nil
}

func (r *movementRepo) GetRecord(_ context.Context, id string) (*entity.MovementRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, m := range r.s.movements {
		if m.ID == id {
			return r.record(m), nil
		}
	}
	return nil, nil
}

func (r *movementRepo) List(_ context.Context, limit, offset int) ([]*entity.MovementRecord, error) {
	return r.page(func(*entity.Movement) bool { return true }, limit, offset), nil
}

func (r *movementRepo) ListByProduct(_ context.Context, productID string, limit, offset int) ([]*entity.MovementRecord, error) {
	return r.page(func(m *entity.Movement) bool { return m.ProductID == productID }, limit, offset), nil
}

// page recorre el ledger del más reciente al más antiguo.
func (r *movementRepo) page(keep func(*entity.Movement) bool, limit, offset int) []*entity.MovementRecord {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.MovementRecord, 0)
	skipped := 0
	for i := len(r.s.movements) - 1; i >= 0 && len(out) < limit; i-- {
		m := r.s.movements[i]
		if !keep(m) {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, r.record(m))
	}
	return out
}

func (r *movementRepo) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.movements), nil
}

func (r *movementRepo) CountByProduct(_ context.Context, productID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, m := range r.s.movements {
		if m.ProductID == productID {
			n++
		}
	}
	return n, nil
}

// record join con producto y operador. Requiere r.s.mu tomado.
func (r *movementRepo) record(m *entity.Movement) *entity.MovementRecord {
	rec := &entity.MovementRecord{Movement: *m}
	if p, ok := r.s.products[m.ProductID]; ok {
		rec.ProductName = p.Name
		rec.ProductSKU = p.SKU
	}
	if u, ok := r.s.users[m.OperatorID]; ok {
		rec.OperatorName = u.Name
	}
	return rec
}

type txMovementRepo struct {
	movementRepo
	t *tx
}

// Create deja el movimiento pendiente hasta el commit.
func (r *txMovementRepo) Create(_ context.Context, m *entity.Movement) error {
	r.s.mu.RLock()
	err := r.checkRefs(m)
	r.s.mu.RUnlock()
	if err != nil {
		return err
	}
	cp := *m
	r.t.movements = append(r.t.movements, &cp)
	return nil
}

// GetRecord ve también los movimientos pendientes de la transacción.
func (r *txMovementRepo) GetRecord(ctx context.Context, id string) (*entity.MovementRecord, error) {
	for _, m := range r.t.movements {
		if m.ID == id {
			r.s.mu.RLock()
			defer r.s.mu.RUnlock()
			return r.record(m), nil
		}
	}
	return r.movementRepo.GetRecord(ctx, id)
}

// ── analítica ────────────────────────────────────────────────────────────────

type analyticsRepo struct {
	s *Store
}

func (r *analyticsRepo) GetStockSummary(_ context.Context) (repository.StockSummaryResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var res repository.StockSummaryResult
	for _, p := range r.s.products {
		res.TotalProducts++
		res.TotalUnits += p.CurrentQuantity
		if p.IsLowStock() {
			res.LowStockCount++
		}
	}
	return res, nil
}

func (r *analyticsRepo) GetMovementTotals(_ context.Context, from, to time.Time) (repository.MovementTotalsResult, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var res repository.MovementTotalsResult
	for _, m := range r.s.movements {
		if m.CreatedAt.Before(from) || m.CreatedAt.After(to) {
			continue
		}
		res.MovementCount++
		switch m.Type {
		case entity.MovementIn:
			res.UnitsIn += m.Quantity
		case entity.MovementOut:
			res.UnitsOut += m.Quantity
		}
	}
	return res, nil
}
