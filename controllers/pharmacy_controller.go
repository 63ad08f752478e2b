package controllers

import (
	"net/http"
	"strings"

	"medicine-marketplace/middleware"
	"medicine-marketplace/services"

	"github.com/gin-gonic/gin"
)

// PharmacyController exposes the seller side of the order lifecycle:
// payment review, dispatch and delivery confirmation.
type PharmacyController struct {
	orders *services.OrderService
}

func NewPharmacyController(orders *services.OrderService) *PharmacyController {
	return &PharmacyController{orders: orders}
}

// ListOrders returns the pharmacy's orders, optionally filtered by
// order and payment status.
// GET /pharmacy/orders
func (pc *PharmacyController) ListOrders(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orders, serr := pc.orders.PharmacyOrders(c.Request.Context(), actor.ID,
		c.Query("status"), c.Query("payment"))
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// ReviewQueue lists orders waiting on payment verification.
// GET /pharmacy/orders/review
func (pc *PharmacyController) ReviewQueue(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orders, serr := pc.orders.PharmacyReviewQueue(c.Request.Context(), actor.ID)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// OrderDetail returns the full order view for the pharmacy.
// GET /pharmacy/orders/:orderId
func (pc *PharmacyController) OrderDetail(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	order, serr := pc.orders.PharmacyOrderDetail(c.Request.Context(), actor.ID, c.Param("orderId"))
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": order})
}

// Verify accepts the uploaded payment proof, committing the stock holds.
// POST /pharmacy/orders/:orderId/verify
func (pc *PharmacyController) Verify(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if serr := pc.orders.VerifyPayment(c.Request.Context(), actor.ID, c.Param("orderId")); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment verified"})
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Reject turns the payment proof down with a reason; the buyer may
// resubmit against the same order.
// POST /pharmacy/orders/:orderId/reject
func (pc *PharmacyController) Reject(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Reason) == "" {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "A rejection reason is required"})
		return
	}

	if serr := pc.orders.RejectPayment(c.Request.Context(), actor.ID, c.Param("orderId"), req.Reason); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment rejected"})
}

type dispatchRequest struct {
	TrackingNo string `json:"tracking_no"`
}

// Dispatch marks a confirmed order as handed to the courier.
// POST /pharmacy/orders/:orderId/dispatch
func (pc *PharmacyController) Dispatch(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req dispatchRequest
	_ = c.ShouldBindJSON(&req)

	if serr := pc.orders.Dispatch(c.Request.Context(), actor.ID, c.Param("orderId"), req.TrackingNo); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order dispatched"})
}

// MarkDelivered closes the order once the voucher has been issued.
// POST /pharmacy/orders/:orderId/delivered
func (pc *PharmacyController) MarkDelivered(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if serr := pc.orders.MarkDelivered(c.Request.Context(), actor.ID, c.Param("orderId")); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order marked as delivered"})
}

// ReissueVoucher regenerates the pickup voucher for a confirmed order.
// POST /pharmacy/orders/:orderId/voucher
func (pc *PharmacyController) ReissueVoucher(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if serr := pc.orders.ReissueVoucher(c.Request.Context(), actor.ID, c.Param("orderId")); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Voucher reissued"})
}
