package controllers

import (
	"net/http"
	"strconv"

	"medicine-marketplace/middleware"
	"medicine-marketplace/services"

	"github.com/gin-gonic/gin"
)

type NotificationController struct {
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService) *NotificationController {
	return &NotificationController{notifications: notifications}
}

// List returns the actor's most recent notifications.
// GET /notifications
func (nc *NotificationController) List(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	notifs, serr := nc.notifications.List(c.Request.Context(), actor.ID, limit)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": notifs})
}

// UnreadCount returns the badge count for the actor.
// GET /notifications/unread_count
func (nc *NotificationController) UnreadCount(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	count, serr := nc.notifications.UnreadCount(c.Request.Context(), actor.ID)
	if serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

type markReadRequest struct {
	IDs []string `json:"ids"`
}

// MarkRead marks the given notifications read, or all of them when no
// ids are sent.
// POST /notifications/mark_read
func (nc *NotificationController) MarkRead(c *gin.Context) {
	actor, err := middleware.GetActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req markReadRequest
	_ = c.ShouldBindJSON(&req)

	if serr := nc.notifications.MarkRead(c.Request.Context(), actor.ID, req.IDs); serr != nil {
		c.JSON(serr.StatusCode, gin.H{"error": serr.Message})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notifications marked as read"})
}
