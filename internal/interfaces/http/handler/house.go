package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/communal/backend/internal/application/housing"
	"github.com/communal/backend/internal/interfaces/http/dto"
)

// HouseHandler handles house endpoints
type HouseHandler struct {
	BaseHandler
	housing *housing.HousingService
}

// NewHouseHandler creates a new HouseHandler
func NewHouseHandler(housingService *housing.HousingService) *HouseHandler {
	return &HouseHandler{housing: housingService}
}

// Create godoc
// @Summary      Register a house
// @Tags         houses
// @Accept       json
// @Param        request body housing.CreateHouseRequest true "House"
// @Success      201 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /houses [post]
func (h *HouseHandler) Create(c *gin.Context) {
	var req housing.CreateHouseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	house, err := h.housing.CreateHouse(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, house)
}

// List godoc
// @Summary      List houses
// @Tags         houses
// @Param        search    query string false "Address substring"
// @Param        page      query int    false "Page"
// @Param        page_size query int    false "Page size"
// @Success      200 {object} dto.Response
// @Router       /houses [get]
func (h *HouseHandler) List(c *gin.Context) {
	var filter housing.HouseListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	page, err := h.housing.ListHouses(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(200, dto.NewPaginatedResponse(page))
}

// Get returns a house with its apartments and their meters
func (h *HouseHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	house, err := h.housing.GetHouse(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, house)
}
