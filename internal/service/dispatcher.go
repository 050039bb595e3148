package service

import (
	"context"

	"github.com/psds-microservice/support-engine/internal/errs"
	"github.com/psds-microservice/support-engine/internal/kafka"
	"github.com/psds-microservice/support-engine/internal/repository"
	"github.com/psds-microservice/support-engine/internal/session"
	"github.com/sirupsen/logrus"
)

// RouteKind — класс решения по входящему пользовательскому сообщению.
type RouteKind string

const (
	// RouteForward — доставить (агенту, если тикет закреплён, иначе в очередь).
	RouteForward RouteKind = "forward"
	// RouteWarn — доставить и предупредить: последнее сообщение до ответа.
	RouteWarn RouteKind = "warn"
	// RouteBlock — не доставлять.
	RouteBlock RouteKind = "block"
	// RoutePromptLanguage — язык пользователя не определён, нужно спросить.
	RoutePromptLanguage RouteKind = "prompt_language"
	// RoutePromptIssueChoice — спросить "новая проблема или связана с прошлым тикетом".
	RoutePromptIssueChoice RouteKind = "prompt_issue_choice"
)

const (
	BlockReasonBanned = "banned"
	BlockReasonSpam   = "spam"
)

// RoutingDecision — типизированный результат маршрутизации для транспортного
// слоя. Само форматирование и доставку делает транспорт.
type RoutingDecision struct {
	Kind RouteKind `json:"kind"`
	// TicketID — тикет, в рамках которого доставляется сообщение.
	TicketID uint64 `json:"ticket_id,omitempty"`
	// TargetAgentID != 0 — сообщение идёт напрямую закрепившему агенту,
	// иначе в общую очередь поддержки.
	TargetAgentID int64 `json:"target_agent_id,omitempty"`
	// TicketCreated — этим сообщением открыт новый тикет.
	TicketCreated bool `json:"ticket_created,omitempty"`
	// BlockReason — почему сообщение не форвардится (banned / spam).
	BlockReason string `json:"block_reason,omitempty"`
	// RelatedTicketID — для PromptIssueChoice: прошлый тикет-кандидат;
	// для Forward с аннотацией: тикет, на который ссылается контекст.
	RelatedTicketID uint64 `json:"related_ticket_id,omitempty"`
	// ContextLink — ссылка на последнее сообщение связанного тикета,
	// прикладывается к форварду как не-обязывающая аннотация.
	ContextLink string `json:"context_link,omitempty"`
	// SpamCounter — значение счётчика после инкремента (диагностика).
	SpamCounter int `json:"spam_counter,omitempty"`
}

// Dispatcher — маршрутизатор входящих сообщений: компонует анти-спам,
// определение языка, жизненный цикл тикета и арбитра закреплений.
type Dispatcher struct {
	store       *repository.Store
	guard       *SpamGuard
	eligibility *EligibilityResolver
	choices     session.ChoiceStore
	producer    kafka.TicketEventProducer
	logger      *logrus.Logger
}

func NewDispatcher(
	store *repository.Store,
	guard *SpamGuard,
	eligibility *EligibilityResolver,
	choices session.ChoiceStore,
	producer kafka.TicketEventProducer,
	logger *logrus.Logger,
) *Dispatcher {
	if logger == nil {
		logger = logrus.New()
	}
	return &Dispatcher{
		store:       store,
		guard:       guard,
		eligibility: eligibility,
		choices:     choices,
		producer:    producer,
		logger:      logger,
	}
}

// OnUserMessage маршрутизирует входящее сообщение пользователя.
// messageLink — непрозрачный указатель на сообщение в транспорте,
// сохраняется в тикете для перекрёстных ссылок.
func (d *Dispatcher) OnUserMessage(ctx context.Context, userID int64, langHint, messageLink string) (*RoutingDecision, error) {
	user, err := d.store.EnsureUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Banned {
		// Забаненные отсекаются молча, без инкремента счётчика.
		return &RoutingDecision{Kind: RouteBlock, BlockReason: BlockReasonBanned}, nil
	}

	lang, err := d.eligibility.ResolveUserLanguage(ctx, user, langHint)
	if err != nil {
		return nil, err
	}
	if lang == "" {
		return &RoutingDecision{Kind: RoutePromptLanguage}, nil
	}

	spam, counter, err := d.guard.Evaluate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if spam == SpamBlock {
		return &RoutingDecision{Kind: RouteBlock, BlockReason: BlockReasonSpam, SpamCounter: counter}, nil
	}
	kind := RouteForward
	if spam == SpamWarn {
		kind = RouteWarn
	}

	current, err := d.store.CurrentTicket(ctx, userID)
	if err != nil {
		return nil, err
	}

	// Закреплённый тикет: сообщение идёт напрямую агенту.
	if current != nil && current.ClaimedBy != nil {
		if err := d.store.SetLastMessageLink(ctx, current.ID, messageLink); err != nil {
			return nil, err
		}
		return &RoutingDecision{
			Kind:          kind,
			TicketID:      current.ID,
			TargetAgentID: *current.ClaimedBy,
			SpamCounter:   counter,
		}, nil
	}

	// Открытый незакреплённый тикет: продолжение в очередь.
	if current != nil {
		if err := d.store.SetLastMessageLink(ctx, current.ID, messageLink); err != nil {
			return nil, err
		}
		return &RoutingDecision{Kind: kind, TicketID: current.ID, SpamCounter: counter}, nil
	}

	// Открытого тикета нет. Если остался закрытый нерешённый — предлагаем
	// выбор "новая проблема / связана со старым", пока выбор не записан.
	choice, err := d.choices.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if choice == nil {
		last, err := d.store.LastUnresolvedClosedTicket(ctx, userID)
		if err != nil {
			return nil, err
		}
		if last != nil {
			return &RoutingDecision{
				Kind:            RoutePromptIssueChoice,
				RelatedTicketID: last.ID,
				SpamCounter:     counter,
			}, nil
		}
	}

	ticket, err := d.store.CreateTicket(ctx, userID, messageLink)
	if err != nil {
		return nil, err
	}
	decision := &RoutingDecision{
		Kind:          kind,
		TicketID:      ticket.ID,
		TicketCreated: true,
		SpamCounter:   counter,
	}

	// Выбор "related" даёт новому тикету контекстную аннотацию; старый тикет
	// не переоткрывается и не сливается.
	if choice != nil {
		_ = d.choices.Delete(ctx, userID)
		if choice.RelateTicketID != 0 {
			old, err := d.store.TicketByID(ctx, choice.RelateTicketID)
			if err == nil {
				decision.RelatedTicketID = old.ID
				decision.ContextLink = old.LastMessageLink
				if decision.ContextLink == "" {
					decision.ContextLink = old.FirstMessageLink
				}
			}
		}
	}

	d.logger.WithFields(logrus.Fields{
		"user_id":   userID,
		"ticket_id": ticket.ID,
	}).Info("ticket opened")
	if d.producer != nil {
		d.producer.ProduceTicketEvent(ctx, "ticket.created", map[string]interface{}{
			"ticket_id": ticket.ID,
			"user_id":   userID,
		})
	}
	return decision, nil
}

// RecordIssueChoice фиксирует выбор пользователя из prompt_issue_choice.
// relateTicketID == 0 — "новая проблема". Выбор живёт ограниченное время.
func (d *Dispatcher) RecordIssueChoice(ctx context.Context, userID int64, relateTicketID uint64) error {
	if relateTicketID != 0 {
		t, err := d.store.TicketByID(ctx, relateTicketID)
		if err != nil {
			return err
		}
		if t.UserID != userID {
			return errs.ErrTicketNotFound
		}
	}
	return d.choices.Put(ctx, userID, session.Choice{RelateTicketID: relateTicketID})
}

// SaveUserLanguage сохраняет явный выбор языка пользователя; он важнее
// любых подсказок платформы.
func (d *Dispatcher) SaveUserLanguage(ctx context.Context, userID int64, code string) error {
	if _, err := d.store.EnsureUser(ctx, userID); err != nil {
		return err
	}
	return d.store.SaveUserLanguage(ctx, userID, code)
}

// OnAgentMessage — личное сообщение агента: доставляется пользователю его
// закреплённого тикета. Доставленный ответ снимает backpressure пользователя.
func (d *Dispatcher) OnAgentMessage(ctx context.Context, agentID int64) (int64, error) {
	if _, err := d.store.GetAgent(ctx, agentID); err != nil {
		return 0, err
	}
	t, err := d.store.OpenTicketClaimedBy(ctx, agentID)
	if err != nil {
		return 0, err
	}
	if t == nil {
		return 0, errs.ErrNoClaimedTicket
	}
	if err := d.guard.Reset(ctx, t.UserID); err != nil {
		return 0, err
	}
	return t.UserID, nil
}

// QueueReplyResult — исход ответа из общей очереди на незакреплённый тикет.
type QueueReplyResult struct {
	UserID   int64  `json:"user_id"`
	TicketID uint64 `json:"ticket_id"`
	// Unbanned — пользователь был в бане и снят с него фактом ответа.
	Unbanned bool `json:"unbanned,omitempty"`
}

// OnQueueReply — ответ агента по незакреплённому тикету из очереди. Если
// тикет закреплён, ответ отклоняется (различая своего и чужого клеймера).
// Ответ забаненному пользователю снимает бан и доставляется.
func (d *Dispatcher) OnQueueReply(ctx context.Context, actorID, userID int64) (*QueueReplyResult, error) {
	t, err := d.store.CurrentTicket(ctx, userID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errs.ErrNoOpenTicket
	}
	if t.ClaimedBy != nil {
		if *t.ClaimedBy == actorID {
			return nil, errs.ErrAlreadyClaimedBySelf
		}
		return nil, errs.ErrAlreadyClaimedByOther
	}

	res := &QueueReplyResult{UserID: userID, TicketID: t.ID}
	user, err := d.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Banned {
		if err := d.store.SetBanned(ctx, userID, false); err != nil {
			return nil, err
		}
		res.Unbanned = true
	}
	if err := d.guard.Reset(ctx, userID); err != nil {
		return nil, err
	}
	return res, nil
}
