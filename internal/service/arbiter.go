package service

import (
	"context"

	"github.com/psds-microservice/support-engine/internal/errs"
	"github.com/psds-microservice/support-engine/internal/kafka"
	"github.com/psds-microservice/support-engine/internal/model"
	"github.com/psds-microservice/support-engine/internal/repository"
	"github.com/sirupsen/logrus"
)

// ClaimStatus — исход попытки закрепить тикет.
type ClaimStatus string

const (
	ClaimStatusClaimed      ClaimStatus = "claimed"
	ClaimStatusAlreadySelf  ClaimStatus = "already_claimed_by_self"
	ClaimStatusAlreadyOther ClaimStatus = "already_claimed_by_other"
)

// ClaimArbiter обеспечивает не-больше-одного-владельца на тикет. Сам замков
// не держит: предикат "claimed_by IS NULL" проверяется и записывается одной
// операцией хранилища (repository.ClaimTicket).
type ClaimArbiter struct {
	store       *repository.Store
	eligibility *EligibilityResolver
	producer    kafka.TicketEventProducer
	logger      *logrus.Logger
}

func NewClaimArbiter(store *repository.Store, eligibility *EligibilityResolver, producer kafka.TicketEventProducer, logger *logrus.Logger) *ClaimArbiter {
	if logger == nil {
		logger = logrus.New()
	}
	return &ClaimArbiter{store: store, eligibility: eligibility, producer: producer, logger: logger}
}

// Claim закрепляет открытый тикет за агентом. Повторный claim того же агента
// идемпотентен: без мутаций и без двойного счёта tickets_claimed.
// Eligibility перепроверяется здесь, в момент claim.
func (a *ClaimArbiter) Claim(ctx context.Context, ticket *model.Ticket, agentID int64) (ClaimStatus, error) {
	if !ticket.Open() {
		return "", errs.ErrNoOpenTicket
	}
	if ticket.ClaimedByAgent(agentID) {
		return ClaimStatusAlreadySelf, nil
	}
	if err := a.eligibility.Check(ctx, ticket, agentID); err != nil {
		return "", err
	}

	claimed, err := a.store.ClaimTicket(ctx, ticket.ID, agentID)
	if err != nil {
		return "", err
	}
	if claimed {
		a.logger.WithFields(logrus.Fields{
			"ticket_id": ticket.ID,
			"agent_id":  agentID,
		}).Info("ticket claimed")
		a.emit(ctx, "ticket.claimed", ticket.ID, ticket.UserID, agentID)
		return ClaimStatusClaimed, nil
	}

	// Предикат не сработал: между чтением и UPDATE тикет взял кто-то другой
	// либо его закрыли. Перечитываем, чтобы назвать исход.
	current, err := a.store.TicketByID(ctx, ticket.ID)
	if err != nil {
		return "", err
	}
	switch {
	case !current.Open():
		return "", errs.ErrNoOpenTicket
	case current.ClaimedByAgent(agentID):
		return ClaimStatusAlreadySelf, nil
	default:
		return ClaimStatusAlreadyOther, nil
	}
}

// Release снимает закрепление без побочных эффектов на счётчики. Путь
// восстановления после ошибок, не нормальное разрешение тикета.
func (a *ClaimArbiter) Release(ctx context.Context, ticketID uint64) error {
	if err := a.store.ReleaseTicket(ctx, ticketID); err != nil {
		return err
	}
	a.logger.WithField("ticket_id", ticketID).Info("ticket claim released")
	a.emit(ctx, "ticket.released", ticketID, 0, 0)
	return nil
}

// Authorized — правило авторизации для resolve/close/force-close: по
// закреплённому тикету действует только закрепивший агент или админ,
// по незакреплённому — любой агент.
func Authorized(ticket *model.Ticket, actorID int64, isAdmin bool) bool {
	if isAdmin || ticket.ClaimedBy == nil {
		return true
	}
	return *ticket.ClaimedBy == actorID
}

func (a *ClaimArbiter) emit(ctx context.Context, event string, ticketID uint64, userID, agentID int64) {
	if a.producer == nil {
		return
	}
	payload := map[string]interface{}{"ticket_id": ticketID}
	if userID != 0 {
		payload["user_id"] = userID
	}
	if agentID != 0 {
		payload["agent_id"] = agentID
	}
	a.producer.ProduceTicketEvent(ctx, event, payload)
}
