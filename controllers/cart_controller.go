package controllers

import (
	"net/http"

	"medicine-marketplace/middleware"
	"medicine-marketplace/services"

	"github.com/gin-gonic/gin"
)

// CartController handles the buyer's cart mutations.
type CartController struct {
	cart *services.CartService
}

func NewCartController(cart *services.CartService) *CartController {
	return &CartController{cart: cart}
}

type addToCartRequest struct {
	MedicineID string `json:"medicine_id" binding:"required"`
	Quantity   int    `json:"quantity" binding:"required"`
}

// AddToCart merges an item into the buyer's open order for that pharmacy.
// POST /buyer/cart
func (cc *CartController) AddToCart(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	result, serr := cc.cart.AddToCart(c.Request.Context(), actor.ID, req.MedicineID, req.Quantity)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}

	message := "Created a new order for this pharmacy."
	if result.Merged {
		message = "Updated your existing order for this pharmacy."
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  message,
		"order_id": result.OrderID,
		"merged":   result.Merged,
	})
}

type updateItemRequest struct {
	MedicineID string `json:"medicine_id" binding:"required"`
	Delta      int    `json:"delta" binding:"required"`
}

// UpdateItem adjusts a line's quantity by a signed delta.
// POST /buyer/orders/:orderId/items
func (cc *CartController) UpdateItem(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req updateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	serr := cc.cart.UpdateLineQuantity(c.Request.Context(), actor.ID, c.Param("orderId"), req.MedicineID, req.Delta)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order updated"})
}

// Cancel deletes an open order and releases its reservations.
// POST /buyer/orders/:orderId/cancel
func (cc *CartController) Cancel(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if serr := cc.cart.CancelOrder(c.Request.Context(), actor.ID, c.Param("orderId")); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order cancelled"})
}
