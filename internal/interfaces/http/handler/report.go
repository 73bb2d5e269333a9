package handler

import (
	"github.com/gin-gonic/gin"
	reportapp "github.com/grocery/backend/internal/application/report"
)

// ReportHandler serves the admin dashboard
type ReportHandler struct {
	BaseHandler
	dashboardService *reportapp.DashboardService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(dashboardService *reportapp.DashboardService) *ReportHandler {
	return &ReportHandler{
		dashboardService: dashboardService,
	}
}

// GetDashboardStats godoc
// @ID           getDashboardStats
// @Summary      Dashboard statistics
// @Description  Totals, revenue, inventory value, recent invoices, top products and the nutrition score breakdown. Admin only.
// @Tags         dashboard
// @Produce      json
// @Success      200 {object} APIResponse[reportapp.DashboardStats]
// @Failure      401 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /dashboard/stats [get]
func (h *ReportHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.dashboardService.GetStats(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, stats)
}
