package controllers

import (
	"net/http"

	"medicine-marketplace/services"

	"github.com/gin-gonic/gin"
)

// AdminController exposes operator actions over the whole marketplace.
type AdminController struct {
	orders *services.OrderService
}

func NewAdminController(orders *services.OrderService) *AdminController {
	return &AdminController{orders: orders}
}

// ListOrders returns every order in the system.
// GET /admin/orders
func (ac *AdminController) ListOrders(c *gin.Context) {
	orders, serr := ac.orders.AllOrders(c.Request.Context())
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// ReleaseStock frees the reservations held by an abandoned rejected
// order after operator review.
// POST /admin/orders/:orderId/release_stock
func (ac *AdminController) ReleaseStock(c *gin.Context) {
	if serr := ac.orders.ReleaseAbandonedReservations(c.Request.Context(), c.Param("orderId")); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Reserved stock released"})
}
