package fulfillment

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/partner"
	"github.com/dropship/backend/internal/domain/shared"
)

// FanoutService splits a paid customer order into per-supplier supplier
// orders. Each supplier group is committed independently: one supplier
// failing never blocks the others.
type FanoutService struct {
	orderRepo         fulfillment.OrderRepository
	supplierOrderRepo fulfillment.SupplierOrderRepository
	supplierRepo      partner.SupplierRepository
	costFactor        decimal.Decimal
	logger            *zap.Logger
}

// NewFanoutService creates a new FanoutService. costFactor is the fraction
// of the sale price assumed as supplier cost for items without a known
// cost price.
func NewFanoutService(
	orderRepo fulfillment.OrderRepository,
	supplierOrderRepo fulfillment.SupplierOrderRepository,
	supplierRepo partner.SupplierRepository,
	costFactor decimal.Decimal,
	logger *zap.Logger,
) *FanoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FanoutService{
		orderRepo:         orderRepo,
		supplierOrderRepo: supplierOrderRepo,
		supplierRepo:      supplierRepo,
		costFactor:        costFactor,
		logger:            logger,
	}
}

// ProcessNewOrder groups the order's supplier-assigned items by supplier and
// creates one PENDING supplier order per group. Items without a supplier are
// skipped; items already linked to a supplier order are left alone, so a
// repeated call converges instead of duplicating.
func (s *FanoutService) ProcessNewOrder(ctx context.Context, orderID uuid.UUID) (*FanoutResult, error) {
	order, err := s.orderRepo.FindByIDWithItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.IsPaid() {
		return nil, shared.NewDomainError("ORDER_NOT_PAID", "Order has not been paid, refusing to fan out")
	}

	result := &FanoutResult{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
	}

	// Group assignable items by supplier, preserving first-seen order
	groups := make(map[uuid.UUID][]*fulfillment.OrderItem)
	var supplierIDs []uuid.UUID
	for i := range order.Items {
		item := &order.Items[i]
		if item.SupplierID == nil {
			result.SkippedItems++
			continue
		}
		if item.SupplierOrderID != nil {
			// Already fanned out in a previous run
			continue
		}
		sid := *item.SupplierID
		if _, seen := groups[sid]; !seen {
			supplierIDs = append(supplierIDs, sid)
		}
		groups[sid] = append(groups[sid], item)
	}

	if len(supplierIDs) == 0 {
		s.logger.Info("order has no items to fan out",
			zap.String("order_number", order.OrderNumber),
			zap.Int("skipped_items", result.SkippedItems))
		return result, nil
	}

	suppliers, err := s.supplierRepo.FindByIDs(ctx, supplierIDs)
	if err != nil {
		return nil, err
	}
	supplierByID := make(map[uuid.UUID]*partner.Supplier, len(suppliers))
	for i := range suppliers {
		supplierByID[suppliers[i].ID] = &suppliers[i]
	}

	for _, sid := range supplierIDs {
		items := groups[sid]
		outcome := s.fanOutGroup(ctx, order, supplierByID[sid], sid, items)
		result.Outcomes = append(result.Outcomes, outcome)
	}

	s.logger.Info("order fanned out",
		zap.String("order_number", order.OrderNumber),
		zap.Int("supplier_orders", result.CreatedCount()),
		zap.Int("skipped_items", result.SkippedItems))

	return result, nil
}

// fanOutGroup creates one supplier order for one supplier's item group.
// Failures are reported in the outcome, not returned, so siblings proceed.
func (s *FanoutService) fanOutGroup(ctx context.Context, order *fulfillment.Order, supplier *partner.Supplier, supplierID uuid.UUID, items []*fulfillment.OrderItem) SupplierOutcome {
	outcome := SupplierOutcome{
		SupplierID: supplierID,
		ItemCount:  len(items),
		TotalCost:  decimal.Zero,
	}

	if supplier == nil {
		outcome.Error = "supplier not found"
		s.logger.Warn("fan-out skipping unknown supplier",
			zap.String("order_number", order.OrderNumber),
			zap.String("supplier_id", supplierID.String()))
		return outcome
	}
	outcome.SupplierCode = supplier.Code

	if !supplier.IsActive() {
		outcome.Error = "supplier inactive"
		s.logger.Warn("fan-out skipping inactive supplier",
			zap.String("order_number", order.OrderNumber),
			zap.String("supplier", supplier.Code))
		return outcome
	}

	for _, item := range items {
		outcome.TotalCost = outcome.TotalCost.Add(item.CostBasis(s.costFactor))
	}
	outcome.ShippingCost = supplier.AverageShipping

	supplierOrder, err := fulfillment.NewSupplierOrder(order.ID, supplier.ID, outcome.TotalCost, outcome.ShippingCost, supplier.Currency)
	if err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	for _, item := range items {
		profit := item.LineTotal().Sub(item.CostBasis(s.costFactor))
		if err := item.AssignToSupplierOrder(supplierOrder.ID, profit); err != nil {
			outcome.Error = err.Error()
			return outcome
		}
	}

	// One transaction per supplier group: a failed item link must not
	// leave an orphaned supplier order that a re-run would duplicate
	if err := s.supplierOrderRepo.SaveWithItems(ctx, supplierOrder, items); err != nil {
		outcome.Error = err.Error()
		s.logger.Error("failed to save supplier order with items",
			zap.String("order_number", order.OrderNumber),
			zap.String("supplier", supplier.Code),
			zap.Error(err))
		return outcome
	}

	outcome.SupplierOrderID = supplierOrder.ID
	return outcome
}
