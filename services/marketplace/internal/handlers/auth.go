package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/middlewares"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/service"
)

type AuthHandler struct {
	svc *service.IdentitySvc
}

func NewAuthHandler(svc *service.IdentitySvc) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Register(c *gin.Context) {
	// any role sent by the client is ignored: there is no field for it
	var in struct {
		Email       string `json:"email" binding:"required"`
		Password    string `json:"password" binding:"required"`
		DisplayName string `json:"displayName"`
		Phone       string `json:"phone"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	u, err := h.svc.Register(c.Request.Context(), service.RegisterInput{
		Email:       in.Email,
		Password:    in.Password,
		DisplayName: in.DisplayName,
		Phone:       in.Phone,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) Login(c *gin.Context) {
	var in struct {
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	toks, err := h.svc.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toks)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var in struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	toks, err := h.svc.Refresh(c.Request.Context(), in.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toks)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), middlewares.Principal(c)); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Session reports the current session or null; it never fails for a bad token.
func (h *AuthHandler) Session(c *gin.Context) {
	p, err := h.svc.CurrentSession(c.Request.Context(), middlewares.BearerToken(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if p == nil {
		c.JSON(http.StatusOK, gin.H{"session": nil})
		return
	}
	role, _, err := h.svc.Role(c.Request.Context(), p.UserID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": gin.H{
		"userId":    p.UserID,
		"email":     p.Email,
		"sessionId": p.SessionID,
		"role":      role,
	}})
}

func (h *AuthHandler) SessionStream(c *gin.Context) {
	ch, err := h.svc.WatchSession(c.Request.Context(), middlewares.Principal(c))
	if err != nil {
		writeError(c, err)
		return
	}
	stream(c, "session", ch)
}

func (h *AuthHandler) RequestPasswordReset(c *gin.Context) {
	var in struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.RequestPasswordReset(c.Request.Context(), in.Email); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "if the address exists, a reset link was sent"})
}

func (h *AuthHandler) ConfirmPasswordReset(c *gin.Context) {
	var in struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.svc.ResetPassword(c.Request.Context(), in.Token, in.NewPassword); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
