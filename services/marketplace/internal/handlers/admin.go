package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/middlewares"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/service"
)

type AdminHandler struct {
	svc *service.AdminSvc
}

func NewAdminHandler(svc *service.AdminSvc) *AdminHandler {
	return &AdminHandler{svc: svc}
}

func (h *AdminHandler) Stats(c *gin.Context) {
	st, err := h.svc.Stats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *AdminHandler) StatsStream(c *gin.Context) {
	ch, err := h.svc.WatchStats(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	stream(c, "stats", ch)
}

func (h *AdminHandler) ListUsers(c *gin.Context) {
	page, err := h.svc.ListUsers(c.Request.Context(),
		queryInt(c, "page", 1)-1,
		queryInt(c, "page_size", 20),
		c.Query("q"),
		domain.Role(c.Query("role")),
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *AdminHandler) SetRole(c *gin.Context) {
	var in struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.svc.SetRole(c.Request.Context(), c.Param("id"), domain.Role(in.Role))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *AdminHandler) DeleteUser(c *gin.Context) {
	if err := h.svc.DeleteUser(c.Request.Context(), middlewares.Principal(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
