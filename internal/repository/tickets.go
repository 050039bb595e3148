package repository

import (
	"context"
	"errors"
	"time"

	"github.com/psds-microservice/support-engine/internal/errs"
	"github.com/psds-microservice/support-engine/internal/model"
	"gorm.io/gorm"
)

// CreateTicket открывает тикет и привязывает его к пользователю одной транзакцией.
// Счётчик анти-спама сбрасывается на 1: сообщение, открывшее тикет, уже учтено.
func (s *Store) CreateTicket(ctx context.Context, userID int64, firstLink string) (*model.Ticket, error) {
	t := &model.Ticket{
		UserID:           userID,
		FirstMessageLink: firstLink,
		LastMessageLink:  firstLink,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(t).Error; err != nil {
			return err
		}
		return tx.Model(&model.User{}).
			Where("id = ?", userID).
			Updates(map[string]interface{}{
				"current_ticket_id": t.ID,
				"spam_counter":      1,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) TicketByID(ctx context.Context, id uint64) (*model.Ticket, error) {
	var t model.Ticket
	if err := s.db.WithContext(ctx).First(&t, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrTicketNotFound
		}
		return nil, err
	}
	return &t, nil
}

// CurrentTicket — открытый тикет, на который указывает current_ticket_id
// пользователя. nil без ошибки, если открытого тикета нет.
func (s *Store) CurrentTicket(ctx context.Context, userID int64) (*model.Ticket, error) {
	var t model.Ticket
	err := s.db.WithContext(ctx).
		Joins("JOIN users ON users.current_ticket_id = tickets.id").
		Where("users.id = ? AND tickets.closed_at IS NULL", userID).
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// LastUnresolvedClosedTicket — самый свежий закрытый, но не решённый тикет
// пользователя (кандидат для "related issue"). nil, если такого нет.
func (s *Store) LastUnresolvedClosedTicket(ctx context.Context, userID int64) (*model.Ticket, error) {
	var t model.Ticket
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND resolved = ? AND closed_at IS NOT NULL", userID, false).
		Order("closed_at DESC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// OpenTicketClaimedBy — открытый тикет, закреплённый за агентом. nil, если нет.
func (s *Store) OpenTicketClaimedBy(ctx context.Context, agentID int64) (*model.Ticket, error) {
	var t model.Ticket
	err := s.db.WithContext(ctx).
		Where("claimed_by = ? AND closed_at IS NULL", agentID).
		Order("opened_at ASC").
		First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// OpenTicketsClaimedBy — все активные тикеты агента (список "/mytickets").
func (s *Store) OpenTicketsClaimedBy(ctx context.Context, agentID int64) ([]model.Ticket, error) {
	var out []model.Ticket
	err := s.db.WithContext(ctx).
		Where("claimed_by = ? AND closed_at IS NULL", agentID).
		Order("opened_at ASC").
		Find(&out).Error
	return out, err
}

// OpenTickets — все открытые тикеты, старые вперёд (очередь поддержки).
func (s *Store) OpenTickets(ctx context.Context) ([]model.Ticket, error) {
	var out []model.Ticket
	err := s.db.WithContext(ctx).
		Where("closed_at IS NULL").
		Order("opened_at ASC").
		Find(&out).Error
	return out, err
}

// ClaimTicket — единственная критичная к гонкам операция: compare-and-swap
// по claimed_by IS NULL в одном условном UPDATE. Проверка и запись — одна
// операция хранилища, никакого check-then-act в памяти приложения.
// Возвращает false без ошибки, если предикат не сработал (уже закреплён
// или закрыт) — различение причин делает вызывающая сторона.
func (s *Store) ClaimTicket(ctx context.Context, ticketID uint64, agentID int64) (bool, error) {
	claimed := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Ticket{}).
			Where("id = ? AND closed_at IS NULL AND claimed_by IS NULL", ticketID).
			Update("claimed_by", agentID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		claimed = true
		return tx.Model(&model.Agent{}).
			Where("id = ?", agentID).
			Update("tickets_claimed", gorm.Expr("tickets_claimed + 1")).Error
	})
	if err != nil {
		return false, err
	}
	return claimed, nil
}

// ReleaseTicket снимает закрепление без побочных эффектов на счётчики.
func (s *Store) ReleaseTicket(ctx context.Context, ticketID uint64) error {
	res := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ? AND closed_at IS NULL", ticketID).
		Update("claimed_by", nil)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrNoOpenTicket
	}
	return nil
}

func (s *Store) MarkResolved(ctx context.Context, ticketID uint64) error {
	res := s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ? AND closed_at IS NULL", ticketID).
		Update("resolved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errs.ErrNoOpenTicket
	}
	return nil
}

func (s *Store) SetLastMessageLink(ctx context.Context, ticketID uint64, link string) error {
	return s.db.WithContext(ctx).Model(&model.Ticket{}).
		Where("id = ?", ticketID).
		Update("last_message_link", link).Error
}

// CloseTicket закрывает тикет и применяет все сопутствующие мутации одной
// транзакцией: отметка closed_at (условная — закрыть можно ровно один раз),
// начисление комиссии агенту, если тикет был закреплён, сброс состояния
// пользователя. commissionBase — базовая сумма, earning = base * rate.
func (s *Store) CloseTicket(ctx context.Context, ticketID uint64, commissionBase float64) (*model.Ticket, error) {
	var closed model.Ticket
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Ticket{}).
			Where("id = ? AND closed_at IS NULL", ticketID).
			Update("closed_at", time.Now())
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return errs.ErrNoOpenTicket
		}
		if err := tx.First(&closed, ticketID).Error; err != nil {
			return err
		}
		if closed.ClaimedBy != nil {
			err := tx.Model(&model.Agent{}).
				Where("id = ?", *closed.ClaimedBy).
				Updates(map[string]interface{}{
					"tickets_resolved": gorm.Expr("tickets_resolved + 1"),
					"total_earnings":   gorm.Expr("total_earnings + ? * commission_rate", commissionBase),
				}).Error
			if err != nil {
				return err
			}
		}
		return tx.Model(&model.User{}).
			Where("id = ?", closed.UserID).
			Updates(map[string]interface{}{
				"current_ticket_id": nil,
				"spam_counter":      1,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return &closed, nil
}
