package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type agentRequestBody struct {
	UserID       int64  `json:"user_id" binding:"required"`
	FullName     string `json:"full_name" binding:"required"`
	Languages    string `json:"languages" binding:"required"`
	Availability string `json:"availability"`
}

// SubmitAgentRequest — заявка на роль агента (ждёт решения админа).
func (h *SupportHandler) SubmitAgentRequest(c *gin.Context) {
	var req agentRequestBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	pending, err := h.agents.SubmitRequest(c.Request.Context(), req.UserID, req.FullName, req.Languages, req.Availability)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, pending)
}

func (h *SupportHandler) PendingAgentRequests(c *gin.Context) {
	pending, err := h.agents.PendingRequests(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"requests": pending, "total": len(pending)})
}

func (h *SupportHandler) ApproveAgent(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	agent, err := h.agents.Approve(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agent)
}

func (h *SupportHandler) RejectAgent(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.agents.Reject(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "rejected"})
}

type setLanguagesRequest struct {
	Languages string `json:"languages" binding:"required"`
}

// SetAgentLanguages обновляет языки агента; принимает свободный текст.
func (h *SupportHandler) SetAgentLanguages(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req setLanguagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	codes, err := h.agents.SetLanguages(c.Request.Context(), id, req.Languages)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"languages": codes})
}

type setCommissionRequest struct {
	Rate float64 `json:"rate"`
}

func (h *SupportHandler) SetCommissionRate(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req setCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.agents.SetCommissionRate(c.Request.Context(), id, req.Rate); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}

func (h *SupportHandler) AgentProfile(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	profile, err := h.agents.Profile(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

func (h *SupportHandler) AgentTickets(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	tickets, err := h.agents.ActiveTickets(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "total": len(tickets)})
}

func parseID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
