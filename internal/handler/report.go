package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ReportSummary — агрегированная сводка: счётчики тикетов, заработок и
// топ агентов по числу решённых обращений.
func (h *SupportHandler) ReportSummary(c *gin.Context) {
	summary, err := h.reports.Summary(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
