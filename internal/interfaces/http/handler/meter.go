package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/communal/backend/internal/application/housing"
)

// MeterHandler handles meter, reading and meter type endpoints
type MeterHandler struct {
	BaseHandler
	housing *housing.HousingService
}

// NewMeterHandler creates a new MeterHandler
func NewMeterHandler(housingService *housing.HousingService) *MeterHandler {
	return &MeterHandler{housing: housingService}
}

// List returns the meters of the apartment given by ?apartment_id=
func (h *MeterHandler) List(c *gin.Context) {
	apartmentID, ok := h.parseQueryID(c, "apartment_id")
	if !ok {
		return
	}

	meters, err := h.housing.ListMetersByApartment(c.Request.Context(), apartmentID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, meters)
}

// ListByHouse returns every meter installed in a house
func (h *MeterHandler) ListByHouse(c *gin.Context) {
	houseID, ok := h.parseID(c, "house_id")
	if !ok {
		return
	}

	meters, err := h.housing.ListMetersByHouse(c.Request.Context(), houseID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, meters)
}

// Get returns one meter with its readings
func (h *MeterHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	meter, err := h.housing.GetMeter(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, meter)
}

// Create godoc
// @Summary      Install a meter
// @Tags         meters
// @Accept       json
// @Param        request body housing.CreateMeterRequest true "Meter"
// @Success      201 {object} dto.Response
// @Router       /meters [post]
func (h *MeterHandler) Create(c *gin.Context) {
	var req housing.CreateMeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	meter, err := h.housing.CreateMeter(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, meter)
}

// AddReading godoc
// @Summary      Append a reading to a meter
// @Description  Readings are append-only by period and never earlier than the first one
// @Tags         meters
// @Accept       json
// @Param        id      path int                         true "Meter ID"
// @Param        request body housing.AddReadingRequest   true "Reading"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Router       /meters/{id}/readings [post]
func (h *MeterHandler) AddReading(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var req housing.AddReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	meter, err := h.housing.AddReading(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, meter)
}

// ListTypes returns all meter types
func (h *MeterHandler) ListTypes(c *gin.Context) {
	types, err := h.housing.ListMeterTypes(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, types)
}

// CreateType adds a meter type
func (h *MeterHandler) CreateType(c *gin.Context) {
	var req housing.CreateMeterTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	mt, err := h.housing.CreateMeterType(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, mt)
}
