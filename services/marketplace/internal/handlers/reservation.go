package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/middlewares"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/service"
)

type ReservationHandler struct {
	svc *service.ReservationSvc
}

func NewReservationHandler(svc *service.ReservationSvc) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

func (h *ReservationHandler) Create(c *gin.Context) {
	var in struct {
		ListingID string `json:"listingId" binding:"required"`
		StartDate string `json:"startDate" binding:"required"`
		EndDate   string `json:"endDate" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	res, err := h.svc.Request(c.Request.Context(), middlewares.Principal(c), service.RequestInput{
		ListingID: in.ListingID,
		StartDate: in.StartDate,
		EndDate:   in.EndDate,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *ReservationHandler) List(c *gin.Context) {
	out, err := h.svc.List(c.Request.Context(), middlewares.Principal(c), service.Box(c.DefaultQuery("box", "mine")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

func (h *ReservationHandler) Stream(c *gin.Context) {
	ch, err := h.svc.Watch(c.Request.Context(), middlewares.Principal(c), service.Box(c.DefaultQuery("box", "mine")))
	if err != nil {
		writeError(c, err)
		return
	}
	stream(c, "reservations", ch)
}

func (h *ReservationHandler) Get(c *gin.Context) {
	res, err := h.svc.Get(c.Request.Context(), middlewares.Principal(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReservationHandler) Approve(c *gin.Context) {
	res, err := h.svc.Approve(c.Request.Context(), middlewares.Principal(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *ReservationHandler) Deny(c *gin.Context) {
	var in struct {
		Confirm bool `json:"confirm"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err)
			return
		}
	}
	res, err := h.svc.Deny(c.Request.Context(), middlewares.Principal(c), c.Param("id"), in.Confirm)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
