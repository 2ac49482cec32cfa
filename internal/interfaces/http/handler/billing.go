package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	appbilling "github.com/communal/backend/internal/application/billing"
	"github.com/communal/backend/internal/interfaces/http/dto"
)

// BillingHandler handles bill computation and job polling endpoints
type BillingHandler struct {
	BaseHandler
	jobs    *appbilling.JobService
	billing *appbilling.BillingService
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(jobs *appbilling.JobService, billing *appbilling.BillingService) *BillingHandler {
	return &BillingHandler{jobs: jobs, billing: billing}
}

// billingParams is accepted from the query string, a JSON body, or both;
// body fields win
type billingParams struct {
	Year  int `form:"year" json:"year"`
	Month int `form:"month" json:"month"`
	Delay int `form:"delay" json:"delay"`
}

func (h *BillingHandler) bindParams(c *gin.Context) (billingParams, bool) {
	var p billingParams
	if err := c.ShouldBindQuery(&p); err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidInput, "year, month and delay must be integers")
		return p, false
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&p); err != nil {
			h.BindError(c, err)
			return p, false
		}
	}
	return p, true
}

// CalculateBills godoc
// @Summary      Submit a billing job
// @Description  Queues the monthly bill computation of a house and returns the job id to poll
// @Tags         billing
// @Param        id    path  int  true  "House ID"
// @Param        year  query int  false "Year"
// @Param        month query int  false "Month"
// @Param        delay query int  false "Seconds to wait before computing"
// @Success      202 {object} dto.Response
// @Failure      400 {object} dto.Response
// @Failure      404 {object} dto.Response
// @Router       /houses/{id}/calculate_bills [post]
func (h *BillingHandler) CalculateBills(c *gin.Context) {
	houseID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	p, ok := h.bindParams(c)
	if !ok {
		return
	}

	resp, err := h.jobs.SubmitBillingJob(c.Request.Context(), appbilling.SubmitBillingJobRequest{
		HouseID:      houseID,
		Year:         p.Year,
		Month:        p.Month,
		DelaySeconds: p.Delay,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.Header("Location", "/api/v1/billing/jobs/"+resp.JobID)
	h.Accepted(c, resp)
}

// ComputeBills godoc
// @Summary      Compute bills synchronously
// @Tags         billing
// @Param        id  path int true "House ID"
// @Success      200 {object} dto.Response
// @Router       /houses/{id}/bills/compute [post]
func (h *BillingHandler) ComputeBills(c *gin.Context) {
	houseID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	p, ok := h.bindParams(c)
	if !ok {
		return
	}

	bills, err := h.billing.ComputeBills(c.Request.Context(), houseID, p.Year, p.Month)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, bills)
}

// PollJob godoc
// @Summary      Poll a billing job
// @Description  Unknown job ids report state "unknown" with status 200
// @Tags         billing
// @Param        job_id path string true "Job ID"
// @Success      200 {object} dto.Response
// @Router       /billing/jobs/{job_id} [get]
func (h *BillingHandler) PollJob(c *gin.Context) {
	view, err := h.jobs.PollJob(c.Request.Context(), c.Param("job_id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, view)
}

// Progress lists the calculation progress records of a house, newest first
func (h *BillingHandler) Progress(c *gin.Context) {
	houseID, ok := h.parseID(c, "id")
	if !ok {
		return
	}
	limit := appbilling.DefaultProgressLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.BadRequest(c, "limit must be a positive integer")
			return
		}
		limit = n
	}

	records, err := h.jobs.Progress(c.Request.Context(), houseID, limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, records)
}
