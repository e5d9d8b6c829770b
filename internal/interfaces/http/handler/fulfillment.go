package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appfulfillment "github.com/dropship/backend/internal/application/fulfillment"
	"github.com/dropship/backend/internal/infrastructure/scheduler"
	"github.com/dropship/backend/internal/interfaces/http/dto"
)

// FulfillmentHandler handles order fan-out, dispatch and reconciliation
// API endpoints
type FulfillmentHandler struct {
	BaseHandler
	fanoutService   *appfulfillment.FanoutService
	dispatchService *appfulfillment.DispatchService
	reconcileSched  *scheduler.ReconcileScheduler
}

// NewFulfillmentHandler creates a new FulfillmentHandler
func NewFulfillmentHandler(
	fanoutService *appfulfillment.FanoutService,
	dispatchService *appfulfillment.DispatchService,
	reconcileSched *scheduler.ReconcileScheduler,
) *FulfillmentHandler {
	return &FulfillmentHandler{
		fanoutService:   fanoutService,
		dispatchService: dispatchService,
		reconcileSched:  reconcileSched,
	}
}

// RegisterRoutes registers the fulfillment routes
func (h *FulfillmentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	fulfillment := rg.Group("/fulfillment")
	{
		fulfillment.POST("/orders/:id/process", h.ProcessOrder)
		fulfillment.POST("/supplier-orders/:id/dispatch", h.DispatchSupplierOrder)
		fulfillment.POST("/reconcile", h.TriggerReconcile)
		fulfillment.GET("/reconcile/history", h.ReconcileHistory)
	}
}

// ProcessOrder fans a paid customer order out into per-supplier orders
func (h *FulfillmentHandler) ProcessOrder(c *gin.Context) {
	orderID, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.fanoutService.ProcessNewOrder(c.Request.Context(), orderID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	h.Success(c, result)
}

// DispatchSupplierOrder sends one PENDING supplier order to its supplier.
// Safe to call again after a failed attempt.
func (h *FulfillmentHandler) DispatchSupplierOrder(c *gin.Context) {
	supplierOrderID, ok := h.parseID(c)
	if !ok {
		return
	}

	result, err := h.dispatchService.SendOrderToSupplier(c.Request.Context(), supplierOrderID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	h.Success(c, result)
}

// TriggerReconcile runs one reconciliation sweep outside the schedule
func (h *FulfillmentHandler) TriggerReconcile(c *gin.Context) {
	result, err := h.reconcileSched.RunNow(c.Request.Context())
	if err != nil {
		if errors.Is(err, scheduler.ErrSweepInProgress) {
			h.Conflict(c, err.Error())
			return
		}
		h.RespondError(c, err)
		return
	}
	h.Success(c, result)
}

// ReconcileHistory returns the retained sweep results, newest last
func (h *FulfillmentHandler) ReconcileHistory(c *gin.Context) {
	h.Success(c, h.reconcileSched.History())
}

func (h *BaseHandler) parseID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BindError(c, err)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "invalid id")
		return uuid.Nil, false
	}
	return id, true
}
