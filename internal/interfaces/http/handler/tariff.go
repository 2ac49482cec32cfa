package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/communal/backend/internal/application/housing"
)

// TariffHandler handles tariff endpoints
type TariffHandler struct {
	BaseHandler
	tariffs *housing.TariffService
}

// NewTariffHandler creates a new TariffHandler
func NewTariffHandler(tariffs *housing.TariffService) *TariffHandler {
	return &TariffHandler{tariffs: tariffs}
}

// Create godoc
// @Summary      Create a tariff
// @Description  Either meter_type_id, or custom_name with unit. A meter type has at most one tariff.
// @Tags         tariffs
// @Accept       json
// @Param        request body housing.CreateTariffRequest true "Tariff"
// @Success      201 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      409 {object} dto.Response
// @Router       /tariffs [post]
func (h *TariffHandler) Create(c *gin.Context) {
	var req housing.CreateTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	tariff, err := h.tariffs.CreateTariff(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, tariff)
}

// List returns all tariffs
func (h *TariffHandler) List(c *gin.Context) {
	tariffs, err := h.tariffs.ListTariffs(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tariffs)
}

// Get returns one tariff
func (h *TariffHandler) Get(c *gin.Context) {
	id, ok := h.parseID(c, "id")
	if !ok {
		return
	}

	tariff, err := h.tariffs.GetTariff(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, tariff)
}
