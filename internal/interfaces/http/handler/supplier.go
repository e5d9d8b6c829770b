package handler

import (
	"github.com/gin-gonic/gin"

	appintegration "github.com/dropship/backend/internal/application/integration"
)

// SupplierHandler handles supplier catalog API endpoints
type SupplierHandler struct {
	BaseHandler
	catalogService *appintegration.CatalogService
}

// NewSupplierHandler creates a new SupplierHandler
func NewSupplierHandler(catalogService *appintegration.CatalogService) *SupplierHandler {
	return &SupplierHandler{catalogService: catalogService}
}

// RegisterRoutes registers the supplier routes
func (h *SupplierHandler) RegisterRoutes(rg *gin.RouterGroup) {
	suppliers := rg.Group("/suppliers")
	{
		suppliers.GET("/:id/categories", h.GetCategories)
		suppliers.GET("/:id/products/:productId", h.GetProduct)
	}
}

// GetCategories returns a supplier's category tree. Check the stale flag:
// under a supplier rate limit the last good list is served instead of an
// error.
func (h *SupplierHandler) GetCategories(c *gin.Context) {
	supplierID, ok := h.parseID(c)
	if !ok {
		return
	}

	list, err := h.catalogService.GetSupplierCategories(c.Request.Context(), supplierID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	h.Success(c, list)
}

// GetProduct looks up one supplier product by its external id
func (h *SupplierHandler) GetProduct(c *gin.Context) {
	supplierID, ok := h.parseID(c)
	if !ok {
		return
	}

	detail, err := h.catalogService.GetSupplierProduct(c.Request.Context(), supplierID, c.Param("productId"))
	if err != nil {
		h.RespondError(c, err)
		return
	}
	h.Success(c, detail)
}
