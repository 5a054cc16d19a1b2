package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/domain"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/middlewares"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/repository"
	"github.com/nawar-b-tek/booking-app/services/marketplace/internal/service"
)

type ListingHandler struct {
	svc *service.ListingSvc
}

func NewListingHandler(svc *service.ListingSvc) *ListingHandler {
	return &ListingHandler{svc: svc}
}

type listingResponse struct {
	*domain.Listing
	Photos       []string `json:"photos"`
	UnitPrice    float64  `json:"unitPricePerDay"`
	MonthlyPrice float64  `json:"monthlyPrice"`
}

func toListingResponse(l *domain.Listing) listingResponse {
	return listingResponse{
		Listing:      l,
		Photos:       l.PhotoURLs(),
		UnitPrice:    l.UnitPricePerDay(),
		MonthlyPrice: l.MonthlyPrice(),
	}
}

func toListingResponses(ls []domain.Listing) []listingResponse {
	out := make([]listingResponse, len(ls))
	for i := range ls {
		out[i] = toListingResponse(&ls[i])
	}
	return out
}

func listingFilter(c *gin.Context) repository.ListingFilter {
	return repository.ListingFilter{
		Destination: c.Query("q"),
		MinRooms:    queryInt(c, "min_rooms", 0),
		OwnerEmail:  c.Query("owner"),
		Page:        queryInt(c, "page", 1) - 1,
		Size:        queryInt(c, "page_size", 0),
	}
}

func (h *ListingHandler) Create(c *gin.Context) {
	var in struct {
		Title         string          `json:"title" binding:"required"`
		Description   string          `json:"description"`
		PricePerDay   float64         `json:"pricePerDay"`
		PricePerMonth float64         `json:"pricePerMonth"`
		Currency      string          `json:"currency"`
		Photos        []string        `json:"photos"`
		Address       domain.Address  `json:"address"`
		Contact       domain.Contact  `json:"contact"`
		Location      domain.Location `json:"location"`
		Bedrooms      int             `json:"bedrooms"`
		Bathrooms     int             `json:"bathrooms"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	l, err := h.svc.Create(c.Request.Context(), middlewares.Principal(c), service.CreateListingInput{
		Title:         in.Title,
		Description:   in.Description,
		PricePerDay:   in.PricePerDay,
		PricePerMonth: in.PricePerMonth,
		Currency:      in.Currency,
		Photos:        in.Photos,
		Address:       in.Address,
		Contact:       in.Contact,
		Location:      in.Location,
		Bedrooms:      in.Bedrooms,
		Bathrooms:     in.Bathrooms,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, toListingResponse(l))
}

func (h *ListingHandler) Get(c *gin.Context) {
	l, err := h.svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, toListingResponse(l))
}

func (h *ListingHandler) List(c *gin.Context) {
	ls, err := h.svc.List(c.Request.Context(), listingFilter(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toListingResponses(ls)})
}

func (h *ListingHandler) Stream(c *gin.Context) {
	ch, err := h.svc.Watch(c.Request.Context(), listingFilter(c))
	if err != nil {
		writeError(c, err)
		return
	}
	out := make(chan []listingResponse)
	go func() {
		defer close(out)
		for ls := range ch {
			select {
			case out <- toListingResponses(ls):
			case <-c.Request.Context().Done():
				return
			}
		}
	}()
	stream(c, "listings", out)
}
