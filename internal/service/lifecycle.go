package service

import (
	"context"

	"github.com/psds-microservice/support-engine/internal/errs"
	"github.com/psds-microservice/support-engine/internal/kafka"
	"github.com/psds-microservice/support-engine/internal/model"
	"github.com/psds-microservice/support-engine/internal/repository"
	"github.com/sirupsen/logrus"
)

// TicketRef адресует тикет либо по его id, либо по владельцу (тогда берётся
// текущий открытый тикет пользователя).
type TicketRef struct {
	TicketID uint64
	UserID   int64
}

// TicketLifecycle — машина состояний тикета: создание, resolve, закрытие,
// бан владельца. Каждый переход применяется к хранилищу атомарно; переход из
// неверного состояния — ErrInvalidTransition без частичных мутаций.
type TicketLifecycle struct {
	store          *repository.Store
	producer       kafka.TicketEventProducer
	logger         *logrus.Logger
	commissionBase float64
}

func NewTicketLifecycle(store *repository.Store, producer kafka.TicketEventProducer, logger *logrus.Logger, commissionBase float64) *TicketLifecycle {
	if logger == nil {
		logger = logrus.New()
	}
	return &TicketLifecycle{store: store, producer: producer, logger: logger, commissionBase: commissionBase}
}

// Resolve разрешает ссылку на открытый тикет.
func (l *TicketLifecycle) ResolveRef(ctx context.Context, ref TicketRef) (*model.Ticket, error) {
	if ref.TicketID != 0 {
		t, err := l.store.TicketByID(ctx, ref.TicketID)
		if err != nil {
			return nil, err
		}
		if !t.Open() {
			return nil, errs.ErrNoOpenTicket
		}
		return t, nil
	}
	t, err := l.store.CurrentTicket(ctx, ref.UserID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errs.ErrNoOpenTicket
	}
	return t, nil
}

// MarkResolved переводит OPEN_CLAIMED -> RESOLVED_CLAIMED. Незакреплённый
// тикет разрешить нельзя: resolution подразумевает ответственного агента.
// Разрешить может только закрепивший агент или админ.
func (l *TicketLifecycle) MarkResolved(ctx context.Context, ref TicketRef, actorID int64, isAdmin bool) (*model.Ticket, error) {
	t, err := l.ResolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if t.ClaimedBy == nil {
		return nil, errs.ErrNoClaimant
	}
	if !Authorized(t, actorID, isAdmin) {
		return nil, errs.ErrUnauthorized
	}
	if t.Resolved {
		// RESOLVED_CLAIMED не является исходным состоянием для resolve.
		l.logger.WithFields(logrus.Fields{
			"ticket_id": t.ID,
			"actor_id":  actorID,
		}).Warn("resolve attempted on already resolved ticket")
		return nil, errs.ErrInvalidTransition
	}
	if err := l.store.MarkResolved(ctx, t.ID); err != nil {
		return nil, err
	}
	t.Resolved = true
	l.emit(ctx, "ticket.resolved", map[string]interface{}{
		"ticket_id": t.ID,
		"user_id":   t.UserID,
		"agent_id":  *t.ClaimedBy,
	})
	return t, nil
}

// Close закрывает тикет: RESOLVED_CLAIMED -> CLOSED для закрепившего агента
// или админа; админ может force-close и нерешённый тикет (из любого
// открытого состояния, без начисления если claimant отсутствует).
// Закрытие закреплённого тикета начисляет комиссию ровно один раз —
// привязано к наличию claimant в момент закрытия, не к флагу resolved.
func (l *TicketLifecycle) Close(ctx context.Context, ref TicketRef, actorID int64, isAdmin bool) (*model.Ticket, error) {
	t, err := l.ResolveRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !t.Resolved && !isAdmin {
		return nil, errs.ErrNotResolved
	}
	if !Authorized(t, actorID, isAdmin) {
		return nil, errs.ErrUnauthorized
	}

	closed, err := l.store.CloseTicket(ctx, t.ID, l.commissionBase)
	if err != nil {
		return nil, err
	}
	l.logger.WithFields(logrus.Fields{
		"ticket_id": closed.ID,
		"user_id":   closed.UserID,
		"actor_id":  actorID,
		"forced":    !closed.Resolved,
	}).Info("ticket closed")

	payload := map[string]interface{}{
		"ticket_id": closed.ID,
		"user_id":   closed.UserID,
		"resolved":  closed.Resolved,
	}
	if closed.ClaimedBy != nil {
		payload["agent_id"] = *closed.ClaimedBy
	}
	l.emit(ctx, "ticket.closed", payload)
	if closed.ClaimedBy != nil {
		l.emit(ctx, "commission.accrued", map[string]interface{}{
			"ticket_id": closed.ID,
			"agent_id":  *closed.ClaimedBy,
			"base":      l.commissionBase,
		})
	}
	return closed, nil
}

// BanUser идемпотентно банит пользователя и сбрасывает его тикетное
// состояние: закрепление снимается (release, без начисления), открытый
// тикет force-закрывается, счётчик анти-спама возвращается к 1.
func (l *TicketLifecycle) BanUser(ctx context.Context, userID int64) error {
	if _, err := l.store.EnsureUser(ctx, userID); err != nil {
		return err
	}
	t, err := l.store.CurrentTicket(ctx, userID)
	if err != nil {
		return err
	}
	if t != nil {
		if t.ClaimedBy != nil {
			if err := l.store.ReleaseTicket(ctx, t.ID); err != nil {
				return err
			}
		}
		if _, err := l.store.CloseTicket(ctx, t.ID, l.commissionBase); err != nil {
			return err
		}
	}
	if err := l.store.SetBanned(ctx, userID, true); err != nil {
		return err
	}
	if err := l.store.ResetUserTicketState(ctx, userID); err != nil {
		return err
	}
	l.logger.WithField("user_id", userID).Info("user banned")
	l.emit(ctx, "user.banned", map[string]interface{}{"user_id": userID})
	return nil
}

// UnbanUser идемпотентно снимает бан; тикетное состояние не трогается —
// после анбана маршрутизация ведёт себя как до бана.
func (l *TicketLifecycle) UnbanUser(ctx context.Context, userID int64) error {
	if _, err := l.store.EnsureUser(ctx, userID); err != nil {
		return err
	}
	if err := l.store.SetBanned(ctx, userID, false); err != nil {
		return err
	}
	l.logger.WithField("user_id", userID).Info("user unbanned")
	l.emit(ctx, "user.unbanned", map[string]interface{}{"user_id": userID})
	return nil
}

func (l *TicketLifecycle) emit(ctx context.Context, event string, payload map[string]interface{}) {
	if l.producer == nil {
		return
	}
	l.producer.ProduceTicketEvent(ctx, event, payload)
}
