package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/communal/backend/internal/application/housing"
)

// ApartmentHandler handles apartment endpoints
type ApartmentHandler struct {
	BaseHandler
	housing *housing.HousingService
	bills   *housing.BillQueryService
}

// NewApartmentHandler creates a new ApartmentHandler
func NewApartmentHandler(housingService *housing.HousingService, bills *housing.BillQueryService) *ApartmentHandler {
	return &ApartmentHandler{housing: housingService, bills: bills}
}

// Create godoc
// @Summary      Add an apartment to a house
// @Tags         apartments
// @Accept       json
// @Param        request body housing.CreateApartmentRequest true "Apartment"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /apartments [post]
func (h *ApartmentHandler) Create(c *gin.Context) {
	var req housing.CreateApartmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	apartment, err := h.housing.CreateApartment(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, apartment)
}

// Get returns one apartment with its meters
func (h *ApartmentHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	apartment, err := h.housing.GetApartment(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apartment)
}

// List returns the apartments of the house given by ?house_id=
func (h *ApartmentHandler) List(c *gin.Context) {
	houseID, ok := h.parseQueryID(c, "house_id")
	if !ok {
		return
	}

	apartments, err := h.housing.ListApartments(c.Request.Context(), houseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apartments)
}

// Bills returns the stored bills of an apartment, newest month first
func (h *ApartmentHandler) Bills(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	bills, err := h.bills.ListBills(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bills)
}
