package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/communal/backend/internal/application/housing"
	"github.com/communal/backend/internal/domain/billing"
	"github.com/communal/backend/internal/infrastructure/export"
	"github.com/communal/backend/internal/infrastructure/logger"
)

// StatementHandler renders the stored bills of a house as a document
type StatementHandler struct {
	BaseHandler
	bills *housing.BillQueryService
}

// NewStatementHandler creates a new StatementHandler
func NewStatementHandler(bills *housing.BillQueryService) *StatementHandler {
	return &StatementHandler{bills: bills}
}

// StatementQuery selects the period and document format
type StatementQuery struct {
	Period string `form:"period" binding:"required,period"`
	Format string `form:"format" binding:"omitempty,oneof=xlsx pdf XLSX PDF"`
}

// Download godoc
// @Summary      Download a house statement
// @Tags         billing
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet,application/pdf
// @Param        id     path  int    true  "House ID"
// @Param        period query string true  "YYYY-MM"
// @Param        format query string false "xlsx (default) or pdf"
// @Success      200 {file} binary
// @Failure      404 {object} dto.Response
// @Router       /houses/{id}/statement [get]
func (h *StatementHandler) Download(c *gin.Context) {
	houseID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	var q StatementQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	period, err := billing.ParsePeriod(q.Period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	format, err := export.ParseFormat(q.Format)
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	stmt, err := h.bills.HouseStatement(c.Request.Context(), houseID, period)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	data, err := export.Build(format, stmt)
	if err != nil {
		h.HandleError(c, fmt.Errorf("render %s statement: %w", format, err))
		return
	}

	logger.GetGinLogger(c).Debug("Statement rendered",
		zap.Int64("house_id", houseID),
		zap.String("period", period.String()),
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)),
	)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, format.FileName(stmt)))
	c.Data(http.StatusOK, format.ContentType(), data)
}
