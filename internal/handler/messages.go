package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type userMessageRequest struct {
	UserID       int64  `json:"user_id" binding:"required"`
	LanguageHint string `json:"language_hint"`
	MessageLink  string `json:"message_link"`
}

// UserMessage — входящее сообщение пользователя; возвращает решение
// маршрутизации для транспортного слоя.
func (h *SupportHandler) UserMessage(c *gin.Context) {
	var req userMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	decision, err := h.dispatcher.OnUserMessage(c.Request.Context(), req.UserID, req.LanguageHint, req.MessageLink)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, decision)
}

type agentMessageRequest struct {
	AgentID int64 `json:"agent_id" binding:"required"`
}

// AgentMessage — личное сообщение агента; возвращает пользователя его
// закреплённого тикета.
func (h *SupportHandler) AgentMessage(c *gin.Context) {
	var req agentMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	userID, err := h.dispatcher.OnAgentMessage(c.Request.Context(), req.AgentID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID})
}

type queueReplyRequest struct {
	ActorID int64 `json:"actor_id" binding:"required"`
	UserID  int64 `json:"user_id" binding:"required"`
}

// QueueReply — ответ агента по незакреплённому тикету из общей очереди.
func (h *SupportHandler) QueueReply(c *gin.Context) {
	var req queueReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	res, err := h.dispatcher.OnQueueReply(c.Request.Context(), req.ActorID, req.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type issueChoiceRequest struct {
	UserID int64 `json:"user_id" binding:"required"`
	// RelateTicketID == 0 — "новая проблема".
	RelateTicketID uint64 `json:"relate_ticket_id"`
}

// IssueChoice фиксирует выбор пользователя "new issue / related".
func (h *SupportHandler) IssueChoice(c *gin.Context) {
	var req issueChoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if err := h.dispatcher.RecordIssueChoice(c.Request.Context(), req.UserID, req.RelateTicketID); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "recorded"})
}
