package fulfillment

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dropship/backend/internal/domain/fulfillment"
	"github.com/dropship/backend/internal/domain/integration"
	"github.com/dropship/backend/internal/domain/partner"
)

// ReconcileService polls suppliers for the current state of open supplier
// orders and folds the answers back into the local model. Suppliers are
// swept concurrently; orders within one supplier sequentially, so the
// per-supplier request pacing is the only throttle in play.
type ReconcileService struct {
	orderRepo         fulfillment.OrderRepository
	itemRepo          fulfillment.OrderItemRepository
	supplierOrderRepo fulfillment.SupplierOrderRepository
	supplierRepo      partner.SupplierRepository
	gateways          integration.GatewayRegistry
	logger            *zap.Logger
	now               func() time.Time
}

// NewReconcileService creates a new ReconcileService
func NewReconcileService(
	orderRepo fulfillment.OrderRepository,
	itemRepo fulfillment.OrderItemRepository,
	supplierOrderRepo fulfillment.SupplierOrderRepository,
	supplierRepo partner.SupplierRepository,
	gateways integration.GatewayRegistry,
	logger *zap.Logger,
) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{
		orderRepo:         orderRepo,
		itemRepo:          itemRepo,
		supplierOrderRepo: supplierOrderRepo,
		supplierRepo:      supplierRepo,
		gateways:          gateways,
		logger:            logger,
		now:               time.Now,
	}
}

// CheckOrderUpdates sweeps every callable supplier's open supplier orders.
// Individual failures are counted in the result, never escalated: a broken
// supplier must not starve the others of their sweep.
func (s *ReconcileService) CheckOrderUpdates(ctx context.Context) (*ReconcileResult, error) {
	started := s.now()

	suppliers, err := s.supplierRepo.FindActive(ctx)
	if err != nil {
		return nil, err
	}

	result := &ReconcileResult{StartedAt: started}

	var wg sync.WaitGroup
	var mu sync.Mutex
	for i := range suppliers {
		supplier := &suppliers[i]
		if !supplier.IsCallable() {
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			sweep := s.sweepSupplier(ctx, supplier)
			mu.Lock()
			result.Suppliers = append(result.Suppliers, sweep)
			mu.Unlock()
		}()
	}
	wg.Wait()

	result.Duration = s.now().Sub(started)

	checked, updated, failed := result.Totals()
	s.logger.Info("reconciliation sweep finished",
		zap.Int("suppliers", len(result.Suppliers)),
		zap.Int("checked", checked),
		zap.Int("updated", updated),
		zap.Int("failed", failed),
		zap.Duration("duration", result.Duration))

	return result, nil
}

// sweepSupplier polls the open supplier orders of one supplier in sequence.
// A rate-limit answer aborts the rest of this supplier's list: the supplier
// has told us to back off, so the remaining orders wait for the next sweep.
func (s *ReconcileService) sweepSupplier(ctx context.Context, supplier *partner.Supplier) SupplierSweep {
	sweep := SupplierSweep{
		SupplierID:   supplier.ID,
		SupplierCode: supplier.Code,
	}

	open, err := s.supplierOrderRepo.FindOpenBySupplier(ctx, supplier.ID)
	if err != nil {
		sweep.Error = err.Error()
		return sweep
	}
	if len(open) == 0 {
		return sweep
	}

	gateway, err := s.gateways.GatewayFor(ctx, supplier)
	if err != nil {
		sweep.Error = err.Error()
		s.logger.Warn("no gateway for supplier, skipping sweep",
			zap.String("supplier", supplier.Code),
			zap.Error(err))
		return sweep
	}

	for i := range open {
		if ctx.Err() != nil {
			sweep.Error = ctx.Err().Error()
			return sweep
		}
		supplierOrder := &open[i]
		sweep.Checked++

		updated, err := s.reconcileOne(ctx, gateway, supplierOrder)
		if err != nil {
			sweep.Failed++
			if errors.Is(err, integration.ErrRateLimited) {
				sweep.RateLimited = true
				s.logger.Warn("supplier rate limited, aborting sweep",
					zap.String("supplier", supplier.Code),
					zap.Int("remaining", len(open)-i-1))
				return sweep
			}
			continue
		}
		if updated {
			sweep.Updated++
		}
	}

	return sweep
}

// reconcileOne polls one supplier order and applies the reported status.
// Returns true when the stored status advanced.
func (s *ReconcileService) reconcileOne(ctx context.Context, gateway integration.SupplierGateway, supplierOrder *fulfillment.SupplierOrder) (bool, error) {
	if supplierOrder.ExternalOrderID == nil {
		return false, nil
	}

	remote, err := gateway.GetOrderStatus(ctx, *supplierOrder.ExternalOrderID)
	if err != nil {
		supplierOrder.RecordReconcileFailure(err.Error())
		if saveErr := s.supplierOrderRepo.Save(ctx, supplierOrder); saveErr != nil {
			s.logger.Error("failed to record reconcile failure",
				zap.String("supplier_order_id", supplierOrder.ID.String()),
				zap.Error(saveErr))
		}
		return false, err
	}

	if remote.Status == fulfillment.SupplierOrderStatusUnknown {
		s.logger.Warn("unrecognized supplier status, leaving order untouched",
			zap.String("supplier_order_id", supplierOrder.ID.String()),
			zap.String("vendor_status", remote.VendorStatus))
		return false, nil
	}

	changed, err := supplierOrder.ApplyRemoteStatus(remote.Status, remote.Tracking)
	if err != nil {
		supplierOrder.RecordReconcileFailure(err.Error())
		if saveErr := s.supplierOrderRepo.Save(ctx, supplierOrder); saveErr != nil {
			s.logger.Error("failed to record reconcile failure",
				zap.String("supplier_order_id", supplierOrder.ID.String()),
				zap.Error(saveErr))
		}
		return false, err
	}

	if err := s.supplierOrderRepo.Save(ctx, supplierOrder); err != nil {
		return false, err
	}
	if !changed {
		return false, nil
	}

	s.logger.Info("supplier order status advanced",
		zap.String("supplier_order_id", supplierOrder.ID.String()),
		zap.String("status", supplierOrder.Status.String()))

	s.propagate(ctx, supplierOrder)
	return true, nil
}

// propagate mirrors a changed supplier order onto its items and rederives
// the customer order's fulfillment status. Failures here are logged and
// left for the next sweep; the supplier order itself is already saved.
func (s *ReconcileService) propagate(ctx context.Context, supplierOrder *fulfillment.SupplierOrder) {
	items, err := s.itemRepo.FindBySupplierOrder(ctx, supplierOrder.ID)
	if err != nil {
		s.logger.Error("failed to load items for supplier order",
			zap.String("supplier_order_id", supplierOrder.ID.String()),
			zap.Error(err))
		return
	}
	batch := make([]*fulfillment.OrderItem, 0, len(items))
	for i := range items {
		items[i].MirrorSupplierStatus(supplierOrder.Status, supplierOrder.TrackingNumber, supplierOrder.TrackingURL)
		batch = append(batch, &items[i])
	}
	if err := s.itemRepo.SaveBatch(ctx, batch); err != nil {
		s.logger.Error("failed to mirror supplier status to items",
			zap.String("supplier_order_id", supplierOrder.ID.String()),
			zap.Error(err))
		return
	}

	order, err := s.orderRepo.FindByID(ctx, supplierOrder.OrderID)
	if err != nil {
		s.logger.Error("failed to load order for fulfillment recompute",
			zap.String("order_id", supplierOrder.OrderID.String()),
			zap.Error(err))
		return
	}
	allItems, err := s.itemRepo.FindByOrder(ctx, order.ID)
	if err != nil {
		s.logger.Error("failed to load order items for fulfillment recompute",
			zap.String("order_id", order.ID.String()),
			zap.Error(err))
		return
	}
	if order.RecomputeFulfillment(allItems) {
		if err := s.orderRepo.UpdateFulfillmentStatus(ctx, order.ID, order.FulfillmentStatus); err != nil {
			s.logger.Error("failed to persist fulfillment status",
				zap.String("order_id", order.ID.String()),
				zap.Error(err))
			return
		}
		s.logger.Info("order fulfillment status changed",
			zap.String("order_number", order.OrderNumber),
			zap.String("fulfillment_status", order.FulfillmentStatus.String()))
	}
}
