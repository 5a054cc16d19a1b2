package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/middlewares"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/service"
)

type UserHandler struct {
	svc *service.IdentitySvc
}

func NewUserHandler(svc *service.IdentitySvc) *UserHandler {
	return &UserHandler{svc: svc}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	u, err := h.svc.Profile(c.Request.Context(), middlewares.Principal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var in struct {
		CurrentPassword string `json:"currentPassword" binding:"required"`
		DisplayName     string `json:"displayName"`
		Email           string `json:"email"`
		Phone           string `json:"phone"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.svc.UpdateAccount(c.Request.Context(), middlewares.Principal(c), service.UpdateAccountInput{
		CurrentPassword: in.CurrentPassword,
		DisplayName:     in.DisplayName,
		Email:           in.Email,
		Phone:           in.Phone,
		NewPassword:     in.NewPassword,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
