package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-movimientos/internal/application/auth"
	"github.com/jhoicas/inventario-movimientos/internal/application/dto"
	"github.com/jhoicas/inventario-movimientos/internal/domain"
	"github.com/jhoicas/inventario-movimientos/internal/domain/entity"
	"github.com/jhoicas/inventario-movimientos/internal/domain/repository"
	"github.com/jhoicas/inventario-movimientos/pkg/logger"
)

// RecordMovementUseCase es la única vía para modificar el stock de un producto.
// Cada movimiento se aplica en una transacción con la fila del producto bloqueada
// (SELECT FOR UPDATE): validar, ajustar y registrar usan la misma lectura del stock.
type RecordMovementUseCase struct {
	txRunner    TxRunner
	productRepo repository.ProductRepository
	movRepo     repository.MovementRepository
	publisher   EventPublisher
	log         *logger.Logger
	now         func() time.Time
}

// NewRecordMovementUseCase construye el caso de uso. publisher puede ser nil.
func NewRecordMovementUseCase(
	txRunner TxRunner,
	productRepo repository.ProductRepository,
	movRepo repository.MovementRepository,
	publisher EventPublisher,
	log *logger.Logger,
) *RecordMovementUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &RecordMovementUseCase{
		txRunner:    txRunner,
		productRepo: productRepo,
		movRepo:     movRepo,
		publisher:   publisher,
		log:         log.Component("inventory"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// RecordMovement valida la petición, bloquea el producto, verifica disponibilidad en
// salidas, ajusta la cantidad y agrega el movimiento al ledger, todo en una transacción.
//
// Errores:
//   - domain.ErrInvalidInput / domain.ErrInvalidQuantity antes de tocar el almacenamiento.
//   - domain.ErrInvalidQuantity si una entrada deja el stock por encima de entity.MaxQuantity.
//   - domain.ErrNotFound si el producto no existe.
//   - *domain.InsufficientStockError (errors.Is ErrInsufficientStock) con la cantidad disponible.
func (uc *RecordMovementUseCase) RecordMovement(ctx context.Context, s auth.Session, in dto.RecordMovementRequest) (*dto.MovementResponse, error) {
	if s.UserID == "" {
		return nil, domain.ErrInvalidToken
	}
	if in.ProductID == "" || in.Type == "" {
		return nil, domain.ErrInvalidInput
	}
	typ, err := entity.ParseMovementType(in.Type)
	if err != nil {
		return nil, err
	}
	if in.Quantity <= 0 || in.Quantity > entity.MaxQuantity {
		return nil, domain.ErrInvalidQuantity
	}
	if _, err := uuid.Parse(in.ProductID); err != nil {
		return nil, domain.ErrNotFound
	}

	var (
		record *entity.MovementRecord
		minQty int
		movID  = uuid.New().String()
	)
	err = uc.txRunner.Run(ctx, func(productRepo repository.ProductRepository, movRepo repository.MovementRepository) error {
		// Bloquea la fila del producto hasta Commit/Rollback
		product, err := productRepo.GetForUpdate(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.ErrNotFound
		}
		if typ == entity.MovementOut && product.CurrentQuantity < in.Quantity {
			return &domain.InsufficientStockError{Available: product.CurrentQuantity, Requested: in.Quantity}
		}
		if typ == entity.MovementIn && product.CurrentQuantity > entity.MaxQuantity-in.Quantity {
			return domain.ErrInvalidQuantity
		}

		mov, err := entity.NewMovement(movID, product.ID, typ, in.Quantity, s.UserID, in.Notes, product.CurrentQuantity, uc.now())
		if err != nil {
			return err
		}
		after, err := productRepo.AdjustQuantity(ctx, product.ID, typ.Delta(in.Quantity))
		if err != nil {
			return err
		}
		if after != mov.QuantityAfter {
			return fmt.Errorf("inventario: stock de %s cambió durante la transacción (%d != %d)", product.ID, after, mov.QuantityAfter)
		}
		if err := movRepo.Create(ctx, mov); err != nil {
			return err
		}
		record, err = movRepo.GetRecord(ctx, mov.ID)
		if err != nil {
			return err
		}
		if record == nil {
			return fmt.Errorf("inventario: movimiento %s no legible tras insertar", mov.ID)
		}
		minQty = product.MinQuantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info().
		Str("movement_id", record.ID).
		Str("product_id", record.ProductID).
		Str("sku", record.ProductSKU).
		Str("type", record.Type.String()).
		Int("quantity", record.Quantity).
		Int("quantity_after", record.QuantityAfter).
		Str("operator_id", record.OperatorID).
		Msg("movimiento registrado")

	// El movimiento ya es durable: un fallo al publicar solo se registra.
	evt := MovementRecordedEvent{
		EventID:        uuid.New().String(),
		MovementID:     record.ID,
		ProductID:      record.ProductID,
		SKU:            record.ProductSKU,
		Type:           record.Type.String(),
		Quantity:       record.Quantity,
		QuantityBefore: record.QuantityBefore,
		QuantityAfter:  record.QuantityAfter,
		LowStock:       record.QuantityAfter < minQty,
		OperatorID:     record.OperatorID,
		OccurredAt:     record.CreatedAt,
	}
	if err := uc.publisher.PublishMovementRecorded(ctx, evt); err != nil {
		uc.log.Warn().Err(err).Str("movement_id", record.ID).Msg("no se pudo publicar el evento de movimiento")
	}

	out := dto.ToMovementResponse(record)
	return &out, nil
}

// ListMovements devuelve el ledger paginado, del más reciente al más antiguo.
// Page/limit inválidos se normalizan (1 y 50).
func (uc *RecordMovementUseCase) ListMovements(ctx context.Context, page dto.PageRequest) (*dto.MovementListResponse, error) {
	page.Normalize()
	list, err := uc.movRepo.List(ctx, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	total, err := uc.movRepo.Count(ctx)
	if err != nil {
		return nil, err
	}
	return toListResponse(list, page, total), nil
}

// ListProductMovements historial de un producto. ErrNotFound si el producto no existe.
func (uc *RecordMovementUseCase) ListProductMovements(ctx context.Context, productID string, page dto.PageRequest) (*dto.MovementListResponse, error) {
	if _, err := uuid.Parse(productID); err != nil {
		return nil, domain.ErrNotFound
	}
	product, err := uc.productRepo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.ErrNotFound
	}
	page.Normalize()
	list, err := uc.movRepo.ListByProduct(ctx, productID, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	total, err := uc.movRepo.CountByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return toListResponse(list, page, total), nil
}

func toListResponse(list []*entity.MovementRecord, page dto.PageRequest, total int) *dto.MovementListResponse {
	items := make([]dto.MovementResponse, 0, len(list))
	for _, r := range list {
		items = append(items, dto.ToMovementResponse(r))
	}
	return &dto.MovementListResponse{
		Movements:  items,
		Pagination: dto.NewPagination(page, total),
	}
}
