package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stocksync/backend/internal/domain/inventory"
	"github.com/stocksync/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// PurchaseService handles the purchase ledger: manual entry, quantity and
// price edits, and the two-phase deletion workflow. Every quantity-bearing
// operation runs in one transaction so the purchase row, the item quantity,
// the audit history and the movement ledger never drift apart.
type PurchaseService struct {
	purchaseRepo inventory.PurchaseRepository
	itemRepo     inventory.InventoryItemRepository
	scope        TransactionScope
	eventBus     shared.EventPublisher
	logger       *zap.Logger
}

// NewPurchaseService creates a new PurchaseService
func NewPurchaseService(
	purchaseRepo inventory.PurchaseRepository,
	itemRepo inventory.InventoryItemRepository,
	scope TransactionScope,
	logger *zap.Logger,
) *PurchaseService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseService{
		purchaseRepo: purchaseRepo,
		itemRepo:     itemRepo,
		scope:        scope,
		logger:       logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PurchaseService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventBus = publisher
}

// CreatePurchase appends a purchase batch and books its quantity onto the
// item. The item is referenced by ID, or by name for items not yet in the
// catalog; a missing ID is an error, an unknown name creates the item.
func (s *PurchaseService) CreatePurchase(ctx context.Context, actor string, req CreatePurchaseRequest) (*PurchaseResponse, error) {
	var resp *PurchaseResponse
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		item, err := resolveItem(ctx, repos, req.ItemID, req.ItemName)
		if err != nil {
			return err
		}

		purchasedAt := time.Time{}
		if req.PurchasedAt != nil {
			purchasedAt = *req.PurchasedAt
		}
		purchase, err := inventory.NewPurchase(item.ID, item.Name, req.Quantity, req.PurchasePrice, req.SellingPrice, req.Supplier, purchasedAt)
		if err != nil {
			return err
		}
		if err := repos.PurchaseRepo().Save(ctx, purchase); err != nil {
			return err
		}

		entry, err := item.ApplyStockDelta(req.Quantity, inventory.ReasonPurchaseCreated, actor)
		if err != nil {
			return err
		}
		entry.WithRef(inventory.RefTypePurchase, purchase.ID.String())

		selling := req.SellingPrice
		if selling.IsZero() {
			selling = item.SellingPrice
		}
		if err := item.UpdatePrices(req.PurchasePrice, selling); err != nil {
			return err
		}
		if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
			return err
		}
		if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
			return err
		}

		movement, err := inventory.NewStockMovement(item.SKU, inventory.MovementIn, req.Quantity, inventory.RefTypePurchase, purchase.ID.String(), actor)
		if err != nil {
			return err
		}
		movement.WithOccurredAt(purchase.PurchasedAt)
		if err := repos.MovementRepo().Append(ctx, movement); err != nil {
			return err
		}

		resp = ToPurchaseResponse(purchase)
		events = drainEvents(purchase, item)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, events)

	s.logger.Info("Purchase created",
		zap.String("purchase_id", resp.ID.String()),
		zap.String("item", resp.ItemName),
		zap.String("quantity", resp.Quantity.String()),
		zap.String("actor", actor))
	return resp, nil
}

func resolveItem(ctx context.Context, repos TransactionalRepositories, itemID *uuid.UUID, itemName string) (*inventory.InventoryItem, error) {
	if itemID != nil && *itemID != uuid.Nil {
		return repos.ItemRepo().FindByID(ctx, *itemID)
	}
	if itemName == "" {
		return nil, shared.NewDomainError("INVALID_ITEM", "Item ID or item name is required")
	}
	return repos.ItemRepo().GetOrCreate(ctx, inventory.SKUFromName(itemName), itemName)
}

// UpdatePurchase edits a purchase's quantity and prices. The stock delta is
// the change in ordered quantity, never computed against remaining, so a
// partially consumed batch adjusts by exactly what the edit changed. Price
// edits alone touch no quantity.
func (s *PurchaseService) UpdatePurchase(ctx context.Context, actor string, id uuid.UUID, req UpdatePurchaseRequest) (*PurchaseResponse, error) {
	var resp *PurchaseResponse
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		purchase, err := repos.PurchaseRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}

		if req.PurchasePrice != nil || req.SellingPrice != nil {
			pp := purchase.PurchasePrice
			sp := purchase.SellingPrice
			if req.PurchasePrice != nil {
				pp = *req.PurchasePrice
			}
			if req.SellingPrice != nil {
				sp = *req.SellingPrice
			}
			if err := purchase.UpdatePrices(pp, sp); err != nil {
				return err
			}
		}
		if req.Supplier != nil {
			purchase.Supplier = *req.Supplier
		}

		if req.Quantity != nil {
			delta, err := purchase.AdjustOrderedQuantity(*req.Quantity)
			if err != nil {
				return err
			}
			if !delta.IsZero() {
				item, err := repos.ItemRepo().FindByID(ctx, purchase.InventoryItemID)
				if err != nil {
					return err
				}
				entry, err := item.ApplyStockDelta(delta, inventory.ReasonPurchaseAdjusted, actor)
				if err != nil {
					return err
				}
				entry.WithRef(inventory.RefTypePurchase, purchase.ID.String())
				if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
					return err
				}
				if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
					return err
				}
				movement, err := inventory.NewStockMovement(item.SKU, inventory.MovementAdjust, delta, inventory.RefTypePurchase, purchase.ID.String(), actor)
				if err != nil {
					return err
				}
				if err := repos.MovementRepo().Append(ctx, movement); err != nil {
					return err
				}
				events = drainEvents(item)
			}
		}

		if err := repos.PurchaseRepo().Save(ctx, purchase); err != nil {
			return err
		}
		resp = ToPurchaseResponse(purchase)
		events = append(events, drainEvents(purchase)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publishEvents(ctx, events)

	s.logger.Info("Purchase updated",
		zap.String("purchase_id", id.String()),
		zap.String("actor", actor))
	return resp, nil
}

// RequestDeletion opens a deletion request for admin review. Quantity is
// untouched until an admin approves; the request itself is audited on the
// purchase row.
func (s *PurchaseService) RequestDeletion(ctx context.Context, actor string, id uuid.UUID, reason string) (*PurchaseResponse, error) {
	purchase, err := s.findPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := purchase.RequestDeletion(actor, reason); err != nil {
		return nil, err
	}
	if err := s.purchaseRepo.Save(ctx, purchase); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, drainEvents(purchase))

	s.logger.Info("Purchase deletion requested",
		zap.String("purchase_id", id.String()),
		zap.String("actor", actor),
		zap.String("reason", reason))
	return ToPurchaseResponse(purchase), nil
}

// ApproveDeletion executes an approved deletion in one transaction: the
// pending state is re-validated, the purchase's full quantity is reversed
// off the item, the reversal is audited, and the row is removed. Either
// every effect commits or none do.
func (s *PurchaseService) ApproveDeletion(ctx context.Context, actor string, id uuid.UUID) error {
	var events []shared.DomainEvent
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		purchase, err := repos.PurchaseRepo().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := purchase.ApproveDeletion(actor); err != nil {
			return err
		}

		item, err := repos.ItemRepo().FindByID(ctx, purchase.InventoryItemID)
		if err != nil {
			return err
		}
		reversal := purchase.Quantity.Neg()
		entry, err := item.ApplyStockDelta(reversal, inventory.ReasonDeletionApproved, actor)
		if err != nil {
			return err
		}
		entry.WithRef(inventory.RefTypePurchase, purchase.ID.String()).WithNote(purchase.DeletionReason)
		if err := repos.ItemRepo().SaveWithLock(ctx, item); err != nil {
			return err
		}
		if err := repos.HistoryRepo().Append(ctx, entry); err != nil {
			return err
		}

		movement, err := inventory.NewStockMovement(item.SKU, inventory.MovementAdjust, reversal, inventory.RefTypePurchase, purchase.ID.String(), actor)
		if err != nil {
			return err
		}
		if err := repos.MovementRepo().Append(ctx, movement); err != nil {
			return err
		}

		events = drainEvents(purchase, item)
		return repos.PurchaseRepo().Delete(ctx, purchase.ID)
	})
	if err != nil {
		return err
	}
	s.publishEvents(ctx, events)

	s.logger.Info("Purchase deletion approved",
		zap.String("purchase_id", id.String()),
		zap.String("actor", actor))
	return nil
}

// RejectDeletion declines a pending deletion request; the purchase stays
// active and may be re-submitted later
func (s *PurchaseService) RejectDeletion(ctx context.Context, actor string, id uuid.UUID, reason string) (*PurchaseResponse, error) {
	purchase, err := s.findPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := purchase.RejectDeletion(actor, reason); err != nil {
		return nil, err
	}
	if err := s.purchaseRepo.Save(ctx, purchase); err != nil {
		return nil, err
	}
	s.publishEvents(ctx, drainEvents(purchase))

	s.logger.Info("Purchase deletion rejected",
		zap.String("purchase_id", id.String()),
		zap.String("actor", actor))
	return ToPurchaseResponse(purchase), nil
}

// GetPurchase returns one purchase by ID
func (s *PurchaseService) GetPurchase(ctx context.Context, id uuid.UUID) (*PurchaseResponse, error) {
	purchase, err := s.findPurchase(ctx, id)
	if err != nil {
		return nil, err
	}
	return ToPurchaseResponse(purchase), nil
}

// ListPurchases returns purchases matching the filter with a total count
func (s *PurchaseService) ListPurchases(ctx context.Context, filter PurchaseListFilter) ([]PurchaseResponse, int64, error) {
	domainFilter := inventory.PurchaseFilter{
		InventoryItemID: filter.ItemID,
		Supplier:        filter.Supplier,
		PurchasedAfter:  filter.PurchasedAfter,
		Page:            filter.Page,
		PageSize:        filter.PageSize,
	}
	if filter.DeletionStatus != "" {
		status := inventory.DeletionStatus(filter.DeletionStatus)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("INVALID_STATUS", "Unknown deletion status")
		}
		domainFilter.DeletionStatus = &status
	}
	if domainFilter.Page <= 0 {
		domainFilter.Page = 1
	}
	if domainFilter.PageSize <= 0 {
		domainFilter.PageSize = 20
	}

	total, err := s.purchaseRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	purchases, err := s.purchaseRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToPurchaseResponses(purchases), total, nil
}

// CountPendingDeletions returns how many purchases await an admin decision
func (s *PurchaseService) CountPendingDeletions(ctx context.Context) (int64, error) {
	return s.purchaseRepo.CountPendingDeletion(ctx)
}

func (s *PurchaseService) findPurchase(ctx context.Context, id uuid.UUID) (*inventory.Purchase, error) {
	purchase, err := s.purchaseRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError("PURCHASE_NOT_FOUND", "Purchase not found")
		}
		return nil, err
	}
	return purchase, nil
}

// publishEvents publishes events collected during a committed write. Handler
// failures are the bus's problem; the write has already committed.
func (s *PurchaseService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventBus == nil || len(events) == 0 {
		return
	}
	_ = s.eventBus.Publish(ctx, events...)
}

// drainEvents collects and clears the pending domain events of the given
// aggregates, in order. Drained events are published only after the
// surrounding transaction commits.
func drainEvents(aggregates ...shared.AggregateRoot) []shared.DomainEvent {
	var events []shared.DomainEvent
	for _, agg := range aggregates {
		events = append(events, agg.GetDomainEvents()...)
		agg.ClearDomainEvents()
	}
	return events
}
