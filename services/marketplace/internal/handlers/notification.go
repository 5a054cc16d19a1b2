package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/middlewares"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/service"
)

// NotificationHandler always scopes to the caller's own address.
type NotificationHandler struct {
	svc *service.NotificationSvc
}

func NewNotificationHandler(svc *service.NotificationSvc) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

func (h *NotificationHandler) Unread(c *gin.Context) {
	out, err := h.svc.Unread(c.Request.Context(), middlewares.Principal(c).Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), middlewares.Principal(c).Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": n})
}

func (h *NotificationHandler) UnreadStream(c *gin.Context) {
	ch, err := h.svc.WatchUnread(c.Request.Context(), middlewares.Principal(c).Email)
	if err != nil {
		writeError(c, err)
		return
	}
	stream(c, "notifications", ch)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.svc.MarkAllRead(c.Request.Context(), middlewares.Principal(c).Email)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	if err := h.svc.MarkRead(c.Request.Context(), middlewares.Principal(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
