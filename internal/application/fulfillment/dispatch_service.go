package fulfillment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/domain/partner"
	"github.com/dropship/backend/internal/domain/shared"
)

// DispatchService hands a PENDING supplier order to its supplier's API.
// A failed attempt is recorded on the order and leaves it PENDING, so the
// caller can retry once the underlying problem clears.
type DispatchService struct {
	orderRepo         fulfillment.OrderRepository
	itemRepo          fulfillment.OrderItemRepository
	supplierOrderRepo fulfillment.SupplierOrderRepository
	supplierRepo      partner.SupplierRepository
	gateways          integration.GatewayRegistry
	logger            *zap.Logger
}

// NewDispatchService creates a new DispatchService
func NewDispatchService(
	orderRepo fulfillment.OrderRepository,
	itemRepo fulfillment.OrderItemRepository,
	supplierOrderRepo fulfillment.SupplierOrderRepository,
	supplierRepo partner.SupplierRepository,
	gateways integration.GatewayRegistry,
	logger *zap.Logger,
) *DispatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DispatchService{
		orderRepo:         orderRepo,
		itemRepo:          itemRepo,
		supplierOrderRepo: supplierOrderRepo,
		supplierRepo:      supplierRepo,
		gateways:          gateways,
		logger:            logger,
	}
}

// SendOrderToSupplier dispatches one supplier order. Misconfigured suppliers
// fail fast before any network traffic; API failures are annotated on the
// order and returned.
func (s *DispatchService) SendOrderToSupplier(ctx context.Context, supplierOrderID uuid.UUID) (*DispatchResult, error) {
	supplierOrder, err := s.supplierOrderRepo.FindByID(ctx, supplierOrderID)
	if err != nil {
		return nil, err
	}
	if !supplierOrder.IsDispatchable() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Supplier order is %s, only PENDING orders can be dispatched", supplierOrder.Status))
	}

	supplier, err := s.supplierRepo.FindByID(ctx, supplierOrder.SupplierID)
	if err != nil {
		return nil, err
	}
	if !supplier.IsCallable() {
		return nil, fmt.Errorf("%w: supplier %s is inactive or has no credentials", integration.ErrConfiguration, supplier.Code)
	}

	order, err := s.orderRepo.FindByID(ctx, supplierOrder.OrderID)
	if err != nil {
		return nil, err
	}
	items, err := s.itemRepo.FindBySupplierOrder(ctx, supplierOrder.ID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, shared.NewDomainError("EMPTY_SUPPLIER_ORDER", "Supplier order has no items to dispatch")
	}

	gateway, err := s.gateways.GatewayFor(ctx, supplier)
	if err != nil {
		return nil, err
	}

	req := buildCreateOrderRequest(order, supplierOrder, items)
	result, err := gateway.CreateOrder(ctx, req)
	if err != nil {
		supplierOrder.RecordDispatchFailure(err.Error())
		if saveErr := s.supplierOrderRepo.Save(ctx, supplierOrder); saveErr != nil {
			s.logger.Error("failed to record dispatch failure",
				zap.String("supplier_order_id", supplierOrder.ID.String()),
				zap.Error(saveErr))
		}
		s.logger.Warn("dispatch to supplier failed",
			zap.String("order_number", order.OrderNumber),
			zap.String("supplier", supplier.Code),
			zap.Error(err))
		return nil, err
	}

	if err := supplierOrder.MarkDispatched(result.ExternalOrderID, result.Tracking); err != nil {
		return nil, err
	}
	if err := s.supplierOrderRepo.Save(ctx, supplierOrder); err != nil {
		return nil, err
	}
	s.mirrorToItems(ctx, supplierOrder, items)

	s.logger.Info("supplier order dispatched",
		zap.String("order_number", order.OrderNumber),
		zap.String("supplier", supplier.Code),
		zap.String("external_order_id", result.ExternalOrderID))

	return &DispatchResult{
		SupplierOrderID: supplierOrder.ID,
		SupplierCode:    supplier.Code,
		ExternalOrderID: result.ExternalOrderID,
		Status:          supplierOrder.Status,
		TrackingNumber:  result.Tracking.TrackingNumber,
	}, nil
}

// buildCreateOrderRequest maps the customer order's shipping block and the
// supplier order's items onto the outbound API shape
func buildCreateOrderRequest(order *fulfillment.Order, supplierOrder *fulfillment.SupplierOrder, items []fulfillment.OrderItem) *integration.CreateOrderRequest {
	req := &integration.CreateOrderRequest{
		OrderNumber: order.OrderNumber,
		Recipient: integration.ShippingRecipient{
			Name:     order.ShippingName,
			Phone:    order.ShippingPhone,
			Email:    order.BuyerEmail,
			Address:  order.ShippingAddress,
			City:     order.ShippingCity,
			Province: order.ShippingProvince,
			Country:  order.ShippingCountry,
			Postcode: order.ShippingPostcode,
		},
		Remark: fmt.Sprintf("supplier order %s", supplierOrder.ID),
	}
	for _, item := range items {
		req.Items = append(req.Items, integration.CreateOrderItem{
			ExternalProductID: item.ExternalProductID,
			Quantity:          item.Quantity,
		})
	}
	return req
}

// mirrorToItems copies the supplier order's fresh status onto its items.
// Mirror failures are logged, not returned: the supplier order itself is
// already persisted and the next reconciliation pass repairs the items.
func (s *DispatchService) mirrorToItems(ctx context.Context, supplierOrder *fulfillment.SupplierOrder, items []fulfillment.OrderItem) {
	batch := make([]*fulfillment.OrderItem, 0, len(items))
	for i := range items {
		items[i].MirrorSupplierStatus(supplierOrder.Status, supplierOrder.TrackingNumber, supplierOrder.TrackingURL)
		batch = append(batch, &items[i])
	}
	if err := s.itemRepo.SaveBatch(ctx, batch); err != nil {
		s.logger.Error("failed to mirror supplier status to items",
			zap.String("supplier_order_id", supplierOrder.ID.String()),
			zap.Error(err))
	}
}
