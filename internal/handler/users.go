package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/support-engine/internal/language"
)

// BanUser идемпотентно банит пользователя и сбрасывает его тикетное состояние.
func (h *SupportHandler) BanUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.lifecycle.BanUser(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "banned"})
}

func (h *SupportHandler) UnbanUser(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.lifecycle.UnbanUser(c.Request.Context(), id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "unbanned"})
}

type setUserLanguageRequest struct {
	Code string `json:"code" binding:"required"`
}

// SetUserLanguage сохраняет явный выбор языка пользователя.
func (h *SupportHandler) SetUserLanguage(c *gin.Context) {
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var req setUserLanguageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}
	if !language.Supported(req.Code) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported language", "options": language.Codes()})
		return
	}
	if err := h.dispatcher.SaveUserLanguage(c.Request.Context(), id, req.Code); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "code": req.Code})
}

// LanguageOptions — поддерживаемые языки с отображаемыми названиями.
func (h *SupportHandler) LanguageOptions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"options": language.Options, "default": language.Default})
}
