package repository

import (
	"context"

	"github.com/psds-microservice/support-engine/internal/model"
)

// Summary — агрегаты для дашбордов. Считается по хранилищу на каждый запрос:
// производная проекция, не авторитет для решений о claim/бане.
type Summary struct {
	TotalTickets  int64      `json:"total_tickets"`
	OpenNow       int64      `json:"open_now"`
	BannedUsers   int64      `json:"banned_users"`
	ResolvedTotal int64      `json:"resolved_total"`
	EarningsTotal float64    `json:"earnings_total"`
	TopAgents     []TopAgent `json:"top_agents"`
}

type TopAgent struct {
	ID              int64  `json:"id"`
	FullName        string `json:"full_name"`
	TicketsResolved int    `json:"tickets_resolved"`
}

func (s *Store) ReportSummary(ctx context.Context) (*Summary, error) {
	out := &Summary{}
	db := s.db.WithContext(ctx)

	if err := db.Model(&model.Ticket{}).Count(&out.TotalTickets).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.Ticket{}).Where("closed_at IS NULL").Count(&out.OpenNow).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&model.User{}).Where("banned = ?", true).Count(&out.BannedUsers).Error; err != nil {
		return nil, err
	}

	var totals struct {
		Resolved int64
		Earned   float64
	}
	err := db.Model(&model.Agent{}).
		Select("COALESCE(SUM(tickets_resolved), 0) AS resolved, COALESCE(SUM(total_earnings), 0) AS earned").
		Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	out.ResolvedTotal = totals.Resolved
	out.EarningsTotal = totals.Earned

	err = db.Model(&model.Agent{}).
		Select("id, full_name, tickets_resolved").
		Order("tickets_resolved DESC").
		Limit(5).
		Scan(&out.TopAgents).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
