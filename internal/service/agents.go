package service

import (
	"context"
	"fmt"

	"github.com/psds-microservice/support-engine/internal/kafka"
	"github.com/psds-microservice/support-engine/internal/language"
	"github.com/psds-microservice/support-engine/internal/model"
	"github.com/psds-microservice/support-engine/internal/repository"
	"github.com/sirupsen/logrus"
)

// AgentService — онбординг и профиль агентов: заявки, approve/reject,
// языки, ставка комиссии.
type AgentService struct {
	store    *repository.Store
	producer kafka.TicketEventProducer
	logger   *logrus.Logger
}

func NewAgentService(store *repository.Store, producer kafka.TicketEventProducer, logger *logrus.Logger) *AgentService {
	if logger == nil {
		logger = logrus.New()
	}
	return &AgentService{store: store, producer: producer, logger: logger}
}

// SubmitRequest сохраняет заявку на роль агента. Языки принимаются свободным
// текстом ("English, German") и нормализуются в коды.
func (s *AgentService) SubmitRequest(ctx context.Context, userID int64, fullName, languagesRaw, availability string) (*model.PendingAgentRequest, error) {
	codes, err := language.Normalize(languagesRaw)
	if err != nil {
		return nil, err
	}
	req := &model.PendingAgentRequest{
		ID:           userID,
		FullName:     fullName,
		Languages:    codes,
		Availability: availability,
	}
	if err := s.store.SavePendingAgent(ctx, req); err != nil {
		return nil, err
	}
	s.logger.WithField("user_id", userID).Info("agent request submitted")
	return req, nil
}

func (s *AgentService) PendingRequests(ctx context.Context) ([]model.PendingAgentRequest, error) {
	return s.store.PendingAgents(ctx)
}

// Approve конвертирует заявку в агента; заявка при этом уничтожается.
func (s *AgentService) Approve(ctx context.Context, userID int64) (*model.Agent, error) {
	agent, err := s.store.ApproveAgent(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("agent_id", userID).Info("agent approved")
	if s.producer != nil {
		s.producer.ProduceTicketEvent(ctx, "agent.approved", map[string]interface{}{
			"agent_id": userID,
		})
	}
	return agent, nil
}

func (s *AgentService) Reject(ctx context.Context, userID int64) error {
	if err := s.store.RejectAgent(ctx, userID); err != nil {
		return err
	}
	s.logger.WithField("user_id", userID).Info("agent request rejected")
	return nil
}

// SetLanguages обновляет языки агента (свободный текст, нормализуется).
func (s *AgentService) SetLanguages(ctx context.Context, agentID int64, languagesRaw string) (string, error) {
	codes, err := language.Normalize(languagesRaw)
	if err != nil {
		return "", err
	}
	if err := s.store.SetAgentLanguages(ctx, agentID, codes); err != nil {
		return "", err
	}
	return codes, nil
}

func (s *AgentService) SetCommissionRate(ctx context.Context, agentID int64, rate float64) error {
	if rate < 0 {
		return fmt.Errorf("commission rate must be >= 0, got %v", rate)
	}
	return s.store.SetCommissionRate(ctx, agentID, rate)
}

// AgentProfile — профиль со счётчиками и числом активных тикетов.
type AgentProfile struct {
	Agent         model.Agent `json:"agent"`
	ActiveTickets int         `json:"active_tickets"`
}

func (s *AgentService) Profile(ctx context.Context, agentID int64) (*AgentProfile, error) {
	agent, err := s.store.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	active, err := s.store.OpenTicketsClaimedBy(ctx, agentID)
	if err != nil {
		return nil, err
	}
	return &AgentProfile{Agent: *agent, ActiveTickets: len(active)}, nil
}

// ActiveTickets — активные тикеты агента (аналог "/mytickets").
func (s *AgentService) ActiveTickets(ctx context.Context, agentID int64) ([]model.Ticket, error) {
	if _, err := s.store.GetAgent(ctx, agentID); err != nil {
		return nil, err
	}
	return s.store.OpenTicketsClaimedBy(ctx, agentID)
}
