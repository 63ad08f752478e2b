package controllers

import (
	"net/http"

	"medicine-marketplace/middleware"
	"medicine-marketplace/services"

	"github.com/gin-gonic/gin"
)

// OrderController handles the buyer side of the order lifecycle.
type OrderController struct {
	orders *services.OrderService
}

func NewOrderController(orders *services.OrderService) *OrderController {
	return &OrderController{orders: orders}
}

// ListOrders returns the buyer's orders with optional q/status/sort filters.
// GET /buyer/orders
func (oc *OrderController) ListOrders(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orders, serr := oc.orders.BuyerOrders(c.Request.Context(), actor.ID,
		c.Query("q"), c.Query("status"), c.Query("sort"))
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// OrderDetail returns the full order view for the buyer.
// GET /buyer/orders/:orderId
func (oc *OrderController) OrderDetail(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, serr := oc.orders.BuyerOrderDetail(c.Request.Context(), actor.ID, c.Param("orderId"))
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Submit uploads the payment proof with the shipping address and moves the
// order to pending review. Multipart form: payment_id, address_line, city,
// file.
// POST /buyer/orders/:orderId/submit
func (oc *OrderController) Submit(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Payment proof file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}
	defer file.Close()

	req := services.SubmitOrderRequest{
		PaymentID:   c.PostForm("payment_id"),
		AddressLine: c.PostForm("address_line"),
		City:        c.PostForm("city"),
		Filename:    fileHeader.Filename,
		File:        file,
	}
	if serr := oc.orders.SubmitOrder(c.Request.Context(), actor.ID, c.Param("orderId"), req); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order submitted for review"})
}

// ReuploadPayment replaces the payment proof on a submitted order, e.g.
// after a rejection. Multipart form: payment_id, file.
// POST /buyer/orders/:orderId/payment
func (oc *OrderController) ReuploadPayment(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Payment proof file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Could not read uploaded file"})
		return
	}
	defer file.Close()

	serr := oc.orders.ReuploadPayment(c.Request.Context(), actor.ID, c.Param("orderId"),
		c.PostForm("payment_id"), fileHeader.Filename, file)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment proof uploaded"})
}
