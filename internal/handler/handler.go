package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/support-engine/internal/config"
	"github.com/psds-microservice/support-engine/internal/errs"
	"github.com/psds-microservice/support-engine/internal/service"
	"github.com/sirupsen/logrus"
)

// SupportHandler — HTTP-обвязка ядра для транспортного слоя (бот, CLI).
type SupportHandler struct {
	cfg        *config.Config
	dispatcher *service.Dispatcher
	arbiter    *service.ClaimArbiter
	lifecycle  *service.TicketLifecycle
	agents     *service.AgentService
	reports    *service.ReportService
	logger     *logrus.Logger
}

func NewSupportHandler(
	cfg *config.Config,
	dispatcher *service.Dispatcher,
	arbiter *service.ClaimArbiter,
	lifecycle *service.TicketLifecycle,
	agents *service.AgentService,
	reports *service.ReportService,
	logger *logrus.Logger,
) *SupportHandler {
	if logger == nil {
		logger = logrus.New()
	}
	return &SupportHandler{
		cfg:        cfg,
		dispatcher: dispatcher,
		arbiter:    arbiter,
		lifecycle:  lifecycle,
		agents:     agents,
		reports:    reports,
		logger:     logger,
	}
}

// respondError переводит доменные ошибки в HTTP-статусы. Contention и
// authorization — ожидаемые отказы (4xx); всё незнакомое — 500 с логом.
func (h *SupportHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errs.ErrTicketNotFound),
		errors.Is(err, errs.ErrUserNotFound),
		errors.Is(err, errs.ErrAgentNotFound),
		errors.Is(err, errs.ErrNoOpenTicket),
		errors.Is(err, errs.ErrNoClaimedTicket):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrNotEligible),
		errors.Is(err, errs.ErrUnauthorized):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, errs.ErrAlreadyClaimedByOther),
		errors.Is(err, errs.ErrAlreadyClaimedBySelf),
		errors.Is(err, errs.ErrNotResolved),
		errors.Is(err, errs.ErrNoClaimant),
		errors.Is(err, errs.ErrInvalidTransition):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
