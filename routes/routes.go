package routes

import (
	"medicine-marketplace/controllers"
	"medicine-marketplace/middleware"
	"medicine-marketplace/models"

	"github.com/gin-gonic/gin"
)

// Controllers bundles every handler group the router mounts.
type Controllers struct {
	Cart          *controllers.CartController
	Orders        *controllers.OrderController
	Pharmacy      *controllers.PharmacyController
	Medicines     *controllers.MedicineController
	Notifications *controllers.NotificationController
	Admin         *controllers.AdminController
}

// RegisterRoutes mounts all marketplace routes with role-scoped auth.
func RegisterRoutes(r *gin.Engine, jwtSecret []byte, ctrl Controllers) {
	// Public catalog
	r.GET("/medicines", ctrl.Medicines.Browse)

	buyer := r.Group("/buyer")
	buyer.Use(middleware.RequireRole(jwtSecret, models.RoleBuyer))
	{
		buyer.POST("/cart", ctrl.Cart.AddToCart)
		buyer.GET("/orders", ctrl.Orders.ListOrders)
		buyer.GET("/orders/:orderId", ctrl.Orders.OrderDetail)
		buyer.POST("/orders/:orderId/items", ctrl.Cart.UpdateItem)
		buyer.POST("/orders/:orderId/cancel", ctrl.Cart.Cancel)
		buyer.POST("/orders/:orderId/submit", ctrl.Orders.Submit)
		buyer.POST("/orders/:orderId/payment", ctrl.Orders.ReuploadPayment)
	}

	pharmacy := r.Group("/pharmacy")
	pharmacy.Use(middleware.RequireRole(jwtSecret, models.RoleSeller))
	{
		pharmacy.GET("/orders", ctrl.Pharmacy.ListOrders)
		pharmacy.GET("/orders/review", ctrl.Pharmacy.ReviewQueue)
		pharmacy.GET("/orders/:orderId", ctrl.Pharmacy.OrderDetail)
		pharmacy.POST("/orders/:orderId/verify", ctrl.Pharmacy.Verify)
		pharmacy.POST("/orders/:orderId/reject", ctrl.Pharmacy.Reject)
		pharmacy.POST("/orders/:orderId/dispatch", ctrl.Pharmacy.Dispatch)
		pharmacy.POST("/orders/:orderId/delivered", ctrl.Pharmacy.MarkDelivered)
		pharmacy.POST("/orders/:orderId/voucher", ctrl.Pharmacy.ReissueVoucher)

		pharmacy.GET("/medicines", ctrl.Medicines.Inventory)
		pharmacy.POST("/medicines", ctrl.Medicines.Create)
		pharmacy.POST("/medicines/:medicineId/restock", ctrl.Medicines.Restock)
		pharmacy.PATCH("/medicines/:medicineId", ctrl.Medicines.Update)
	}

	notifications := r.Group("/notifications")
	notifications.Use(middleware.RequireRole(jwtSecret, models.RoleBuyer, models.RoleSeller, models.RoleAdmin))
	{
		notifications.GET("", ctrl.Notifications.List)
		notifications.GET("/unread_count", ctrl.Notifications.UnreadCount)
		notifications.POST("/mark_read", ctrl.Notifications.MarkRead)
	}

	admin := r.Group("/admin")
	admin.Use(middleware.RequireRole(jwtSecret, models.RoleAdmin))
	{
		admin.GET("/orders", ctrl.Admin.ListOrders)
		admin.POST("/orders/:orderId/release_stock", ctrl.Admin.ReleaseStock)
	}
}
