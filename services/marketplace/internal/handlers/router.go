package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/guard"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/middlewares"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/service"
)

type Services struct {
	Identity      *service.IdentitySvc
	Listings      *service.ListingSvc
	Reservations  *service.ReservationSvc
	Notifications *service.NotificationSvc
	Admin         *service.AdminSvc
}

// NewRouter mounts the /v1 API on r.
func NewRouter(r *gin.Engine, s Services) *gin.Engine {
	g := guard.New(s.Identity, s.Identity)
	authed := middlewares.RequireAuth(g)
	owner := middlewares.RequireRole(g, domain.RoleOwner)
	admin := middlewares.RequireRole(g, domain.RoleAdmin)

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	v1 := r.Group("/v1")
	{
		a := NewAuthHandler(s.Identity)
		v1.POST("/auth/register", a.Register)
		v1.POST("/auth/login", a.Login)
		v1.POST("/auth/refresh", a.Refresh)
		v1.POST("/auth/password-reset", a.RequestPasswordReset)
		v1.POST("/auth/password-reset/confirm", a.ConfirmPasswordReset)
		v1.GET("/auth/session", a.Session)
		v1.POST("/auth/logout", authed, a.Logout)
		v1.GET("/auth/session/stream", authed, a.SessionStream)

		uh := NewUserHandler(s.Identity)
		me := v1.Group("/users/me")
		me.Use(authed)
		me.GET("", uh.GetMe)
		me.PUT("", uh.UpdateMe)

		lh := NewListingHandler(s.Listings)
		v1.GET("/listings", lh.List)
		v1.GET("/listings/stream", lh.Stream)
		v1.GET("/listings/:id", lh.Get)
		v1.POST("/listings", owner, lh.Create)

		rh := NewReservationHandler(s.Reservations)
		res := v1.Group("/reservations")
		res.Use(authed)
		{
			res.POST("", rh.Create)
			res.GET("", rh.List)
			res.GET("/stream", rh.Stream)
			res.GET("/:id", rh.Get)
		}
		v1.POST("/reservations/:id/approve", owner, rh.Approve)
		v1.POST("/reservations/:id/deny", owner, rh.Deny)

		nh := NewNotificationHandler(s.Notifications)
		notes := v1.Group("/notifications")
		notes.Use(authed)
		{
			notes.GET("/unread", nh.Unread)
			notes.GET("/unread/count", nh.UnreadCount)
			notes.GET("/unread/stream", nh.UnreadStream)
			notes.POST("/read-all", nh.MarkAllRead)
			notes.POST("/:id/read", nh.MarkRead)
		}

		ah := NewAdminHandler(s.Admin)
		adm := v1.Group("/admin")
		adm.Use(admin)
		{
			adm.GET("/stats", ah.Stats)
			adm.GET("/stats/stream", ah.StatsStream)
			adm.GET("/users", ah.ListUsers)
			adm.PUT("/users/:id/role", ah.SetRole)
			adm.DELETE("/users/:id", ah.DeleteUser)
		}
	}
	return r
}
