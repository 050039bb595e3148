package service

import (
	"context"
	"time"

	"github.com/psds-microservice/support-engine/internal/model"
	"github.com/psds-microservice/support-engine/internal/repository"
)

// ReportService — read-only проекции для дашбордов и списков очереди.
// Все виды строятся по хранилищу на каждый запрос; в памяти ничего
// авторитетного не кэшируется.
type ReportService struct {
	store      *repository.Store
	staleAfter time.Duration
}

func NewReportService(store *repository.Store, staleAfter time.Duration) *ReportService {
	return &ReportService{store: store, staleAfter: staleAfter}
}

func (s *ReportService) Summary(ctx context.Context) (*repository.Summary, error) {
	return s.store.ReportSummary(ctx)
}

// OpenTicketView — открытый тикет очереди с визуальным флагом залежалости.
type OpenTicketView struct {
	model.Ticket
	Stale bool `json:"stale"`
}

func (s *ReportService) OpenTickets(ctx context.Context) ([]OpenTicketView, error) {
	tickets, err := s.store.OpenTickets(ctx)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]OpenTicketView, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, OpenTicketView{
			Ticket: t,
			Stale:  s.staleAfter > 0 && now.Sub(t.OpenedAt) > s.staleAfter,
		})
	}
	return out, nil
}
