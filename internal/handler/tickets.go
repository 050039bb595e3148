package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/support-engine/internal/service"
)

// ticketRef адресует тикет по id либо по владельцу; нужно хотя бы одно.
type ticketRef struct {
	TicketID uint64 `json:"ticket_id"`
	UserID   int64  `json:"user_id"`
}

func (r ticketRef) empty() bool {
	return r.TicketID == 0 && r.UserID == 0
}

func (r ticketRef) ref() service.TicketRef {
	return service.TicketRef{TicketID: r.TicketID, UserID: r.UserID}
}

type claimRequest struct {
	ticketRef
	AgentID int64 `json:"agent_id" binding:"required"`
}

// ClaimTicket — попытка агента закрепить тикет за собой.
func (h *SupportHandler) ClaimTicket(c *gin.Context) {
	var req claimRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket_id or user_id is required"})
		return
	}
	ticket, err := h.lifecycle.ResolveRef(c.Request.Context(), req.ref())
	if err != nil {
		h.respondError(c, err)
		return
	}
	status, err := h.arbiter.Claim(c.Request.Context(), ticket, req.AgentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "ticket_id": ticket.ID})
}

type actorRequest struct {
	ticketRef
	ActorID int64 `json:"actor_id" binding:"required"`
}

// ResolveTicket помечает закреплённый тикет решённым.
func (h *SupportHandler) ResolveTicket(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket_id or user_id is required"})
		return
	}
	ticket, err := h.lifecycle.MarkResolved(c.Request.Context(), req.ref(), req.ActorID, h.cfg.IsAdmin(req.ActorID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

// CloseTicket закрывает решённый тикет; админ может force-close нерешённый.
func (h *SupportHandler) CloseTicket(c *gin.Context) {
	var req actorRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticket_id or user_id is required"})
		return
	}
	ticket, err := h.lifecycle.Close(c.Request.Context(), req.ref(), req.ActorID, h.cfg.IsAdmin(req.ActorID))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticket)
}

type releaseRequest struct {
	TicketID uint64 `json:"ticket_id" binding:"required"`
}

// ReleaseTicket снимает закрепление (путь восстановления после ошибок).
func (h *SupportHandler) ReleaseTicket(c *gin.Context) {
	var req releaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.arbiter.Release(c.Request.Context(), req.TicketID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "released"})
}

// OpenTickets — текущая очередь с флагом залежалости.
func (h *SupportHandler) OpenTickets(c *gin.Context) {
	tickets, err := h.reports.OpenTickets(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tickets": tickets, "total": len(tickets)})
}
