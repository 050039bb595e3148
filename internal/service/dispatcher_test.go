package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/psds-microservice/support-engine/internal/errs"
	"github.com/psds-microservice/support-engine/internal/repository"
	"github.com/psds-microservice/support-engine/internal/session"
)

func newDispatcher(t *testing.T, threshold int) (*Dispatcher, *repository.Store, *session.MemoryStore) {
	t.Helper()
	store := newTestStore(t)
	choices := session.NewMemoryStore(time.Minute)
	d := NewDispatcher(store, NewSpamGuard(store, threshold), NewEligibilityResolver(store), choices, nil, nil)
	return d, store, choices
}

func TestDispatcherFirstMessageOpensTicket(t *testing.T) {
	d, store, _ := newDispatcher(t, 5)
	ctx := context.Background()

	dec, err := d.OnUserMessage(ctx, 1, "en", "msg://1")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if dec.Kind != RouteForward {
		t.Fatalf("expected forward, got %s", dec.Kind)
	}
	if !dec.TicketCreated || dec.TicketID == 0 {
		t.Fatalf("expected new ticket, got %+v", dec)
	}
	if dec.TargetAgentID != 0 {
		t.Fatal("unclaimed ticket must route to the queue")
	}

	user, err := store.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.Language != "en" {
		t.Fatalf("hint must be persisted, got %q", user.Language)
	}
	if user.CurrentTicketID == nil || *user.CurrentTicketID != dec.TicketID {
		t.Fatal("current_ticket_id must point at the new ticket")
	}
	if user.SpamCounter != 1 {
		t.Fatalf("opening message is pre-counted: expected 1, got %d", user.SpamCounter)
	}

	ticket, err := store.TicketByID(ctx, dec.TicketID)
	if err != nil {
		t.Fatalf("ticket: %v", err)
	}
	if ticket.FirstMessageLink != "msg://1" || ticket.LastMessageLink != "msg://1" {
		t.Fatalf("message links: %+v", ticket)
	}
}

func TestDispatcherPromptsForLanguage(t *testing.T) {
	d, store, _ := newDispatcher(t, 5)
	ctx := context.Background()

	// Ни сохранённого языка, ни поддерживаемой подсказки.
	for _, hint := range []string{"", "xx"} {
		dec, err := d.OnUserMessage(ctx, 1, hint, "msg://1")
		if err != nil {
			t.Fatalf("route (hint %q): %v", hint, err)
		}
		if dec.Kind != RoutePromptLanguage {
			t.Fatalf("expected prompt_language, got %s", dec.Kind)
		}
	}
	// Запрос языка не тратит анти-спам бюджет и не открывает тикет.
	user, _ := store.GetUser(ctx, 1)
	if user.SpamCounter != 0 {
		t.Fatalf("language prompt must not increment spam counter, got %d", user.SpamCounter)
	}
	if user.CurrentTicketID != nil {
		t.Fatal("language prompt must not open a ticket")
	}
}

func TestDispatcherSavedLanguageBeatsHint(t *testing.T) {
	d, store, _ := newDispatcher(t, 5)
	ctx := context.Background()

	if err := d.SaveUserLanguage(ctx, 1, "de"); err != nil {
		t.Fatalf("save language: %v", err)
	}
	dec, err := d.OnUserMessage(ctx, 1, "en", "msg://1")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if dec.Kind != RouteForward {
		t.Fatalf("expected forward, got %s", dec.Kind)
	}
	user, _ := store.GetUser(ctx, 1)
	if user.Language != "de" {
		t.Fatalf("saved preference must win over hint, got %q", user.Language)
	}
}

func TestDispatcherBannedUserSilentBlock(t *testing.T) {
	d, store, _ := newDispatcher(t, 5)
	ctx := context.Background()

	seedUser(t, store, 1, "en")
	if err := store.SetBanned(ctx, 1, true); err != nil {
		t.Fatalf("ban: %v", err)
	}
	dec, err := d.OnUserMessage(ctx, 1, "", "msg://1")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if dec.Kind != RouteBlock || dec.BlockReason != BlockReasonBanned {
		t.Fatalf("expected banned block, got %+v", dec)
	}
	user, _ := store.GetUser(ctx, 1)
	if user.SpamCounter != 0 {
		t.Fatalf("banned block must not increment spam counter, got %d", user.SpamCounter)
	}
}

func TestDispatcherSpamProgression(t *testing.T) {
	d, _, _ := newDispatcher(t, 2)
	ctx := context.Background()

	// Открывшее сообщение: счётчик становится 1 после CreateTicket.
	dec, err := d.OnUserMessage(ctx, 1, "en", "msg://1")
	if err != nil || dec.Kind != RouteForward {
		t.Fatalf("open: %v %+v", err, dec)
	}
	// Второе — порог: warn, но ещё доставляется.
	dec, err = d.OnUserMessage(ctx, 1, "", "msg://2")
	if err != nil {
		t.Fatalf("warn: %v", err)
	}
	if dec.Kind != RouteWarn || dec.SpamCounter != 2 {
		t.Fatalf("expected warn at 2, got %s at %d", dec.Kind, dec.SpamCounter)
	}
	// Третье — блок.
	dec, err = d.OnUserMessage(ctx, 1, "", "msg://3")
	if err != nil {
		t.Fatalf("block: %v", err)
	}
	if dec.Kind != RouteBlock || dec.BlockReason != BlockReasonSpam {
		t.Fatalf("expected spam block, got %+v", dec)
	}

	// Ответ из очереди снимает backpressure.
	if _, err := d.OnQueueReply(ctx, 10, 1); err != nil {
		t.Fatalf("queue reply: %v", err)
	}
	dec, err = d.OnUserMessage(ctx, 1, "", "msg://4")
	if err != nil {
		t.Fatalf("after reset: %v", err)
	}
	if dec.Kind != RouteWarn || dec.SpamCounter != 2 {
		t.Fatalf("expected warn at 2 after reset, got %s at %d", dec.Kind, dec.SpamCounter)
	}
}

func TestDispatcherRoutesToClaimingAgent(t *testing.T) {
	d, store, _ := newDispatcher(t, 5)
	ctx := context.Background()

	dec, err := d.OnUserMessage(ctx, 1, "en", "msg://1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	seedAgent(t, store, 10, "en", 0.5)
	if ok, err := store.ClaimTicket(ctx, dec.TicketID, 10); err != nil || !ok {
		t.Fatalf("claim: %v %v", ok, err)
	}

	next, err := d.OnUserMessage(ctx, 1, "", "msg://2")
	if err != nil {
		t.Fatalf("route: %v", err)
	}
	if next.TargetAgentID != 10 {
		t.Fatalf("expected direct route to agent 10, got %+v", next)
	}
	if next.TicketCreated {
		t.Fatal("existing ticket must be reused")
	}
	ticket, _ := store.TicketByID(ctx, dec.TicketID)
	if ticket.LastMessageLink != "msg://2" {
		t.Fatalf("last message link must advance, got %q", ticket.LastMessageLink)
	}
}

func TestDispatcherRelatedIssueFlow(t *testing.T) {
	d, store, choices := newDispatcher(t, 5)
	ctx := context.Background()

	first, err := d.OnUserMessage(ctx, 1, "en", "msg://1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	// Force-close без resolve: остаётся кандидат для "related issue".
	if _, err := store.CloseTicket(ctx, first.TicketID, 0); err != nil {
		t.Fatalf("close: %v", err)
	}

	prompt, err := d.OnUserMessage(ctx, 1, "", "msg://2")
	if err != nil {
		t.Fatalf("prompt: %v", err)
	}
	if prompt.Kind != RoutePromptIssueChoice || prompt.RelatedTicketID != first.TicketID {
		t.Fatalf("expected issue prompt for ticket %d, got %+v", first.TicketID, prompt)
	}

	if err := d.RecordIssueChoice(ctx, 1, first.TicketID); err != nil {
		t.Fatalf("record choice: %v", err)
	}
	second, err := d.OnUserMessage(ctx, 1, "", "msg://3")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !second.TicketCreated || second.TicketID == first.TicketID {
		t.Fatalf("related choice must open a fresh ticket, got %+v", second)
	}
	if second.RelatedTicketID != first.TicketID {
		t.Fatalf("expected context annotation for %d, got %+v", first.TicketID, second)
	}
	if second.ContextLink == "" {
		t.Fatal("expected context link from the old ticket")
	}
	// Выбор одноразовый.
	if c, _ := choices.Get(ctx, 1); c != nil {
		t.Fatal("choice must be consumed")
	}
	// Старый тикет не переоткрыт.
	old, _ := store.TicketByID(ctx, first.TicketID)
	if old.ClosedAt == nil {
		t.Fatal("old ticket must stay closed")
	}
}

func TestDispatcherNewIssueChoiceSkipsAnnotation(t *testing.T) {
	d, store, _ := newDispatcher(t, 5)
	ctx := context.Background()

	first, err := d.OnUserMessage(ctx, 1, "en", "msg://1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := store.CloseTicket(ctx, first.TicketID, 0); err != nil {
		t.Fatalf("close: %v", err)
	}
	// Выбор "новая проблема" — без повторного prompt.
	if err := d.RecordIssueChoice(ctx, 1, 0); err != nil {
		t.Fatalf("record choice: %v", err)
	}
	second, err := d.OnUserMessage(ctx, 1, "", "msg://2")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !second.TicketCreated {
		t.Fatalf("expected a new ticket, got %+v", second)
	}
	if second.RelatedTicketID != 0 || second.ContextLink != "" {
		t.Fatalf("new issue must carry no annotation, got %+v", second)
	}
}

func TestRecordIssueChoiceForeignTicket(t *testing.T) {
	d, store, _ := newDispatcher(t, 5)
	ctx := context.Background()

	seedUser(t, store, 2, "en")
	foreign := seedOpenTicket(t, store, 2)
	if err := d.RecordIssueChoice(ctx, 1, foreign.ID); !errors.Is(err, errs.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound for foreign ticket, got %v", err)
	}
}

func TestOnAgentMessage(t *testing.T) {
	d, store, _ := newDispatcher(t, 5)
	ctx := context.Background()

	seedAgent(t, store, 10, "en", 0.5)
	if _, err := d.OnAgentMessage(ctx, 10); !errors.Is(err, errs.ErrNoClaimedTicket) {
		t.Fatalf("expected ErrNoClaimedTicket, got %v", err)
	}
	if _, err := d.OnAgentMessage(ctx, 99); !errors.Is(err, errs.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}

	dec, err := d.OnUserMessage(ctx, 1, "en", "msg://1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if ok, err := store.ClaimTicket(ctx, dec.TicketID, 10); err != nil || !ok {
		t.Fatalf("claim: %v %v", ok, err)
	}
	// Накручиваем счётчик и проверяем, что ответ агента его сбрасывает.
	for i := 0; i < 3; i++ {
		if _, err := d.OnUserMessage(ctx, 1, "", "msg://x"); err != nil {
			t.Fatalf("user message: %v", err)
		}
	}
	userID, err := d.OnAgentMessage(ctx, 10)
	if err != nil {
		t.Fatalf("agent message: %v", err)
	}
	if userID != 1 {
		t.Fatalf("expected user 1, got %d", userID)
	}
	user, _ := store.GetUser(ctx, 1)
	if user.SpamCounter != 1 {
		t.Fatalf("agent reply must reset counter to 1, got %d", user.SpamCounter)
	}
}

func TestOnQueueReply(t *testing.T) {
	d, store, _ := newDispatcher(t, 5)
	ctx := context.Background()

	if _, err := d.OnQueueReply(ctx, 10, 1); !errors.Is(err, errs.ErrNoOpenTicket) {
		t.Fatalf("expected ErrNoOpenTicket, got %v", err)
	}

	dec, err := d.OnUserMessage(ctx, 1, "en", "msg://1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	res, err := d.OnQueueReply(ctx, 10, 1)
	if err != nil {
		t.Fatalf("queue reply: %v", err)
	}
	if res.TicketID != dec.TicketID || res.UserID != 1 || res.Unbanned {
		t.Fatalf("unexpected result %+v", res)
	}

	seedAgent(t, store, 10, "en", 0.5)
	if ok, err := store.ClaimTicket(ctx, dec.TicketID, 10); err != nil || !ok {
		t.Fatalf("claim: %v %v", ok, err)
	}
	if _, err := d.OnQueueReply(ctx, 10, 1); !errors.Is(err, errs.ErrAlreadyClaimedBySelf) {
		t.Fatalf("expected ErrAlreadyClaimedBySelf, got %v", err)
	}
	if _, err := d.OnQueueReply(ctx, 11, 1); !errors.Is(err, errs.ErrAlreadyClaimedByOther) {
		t.Fatalf("expected ErrAlreadyClaimedByOther, got %v", err)
	}
}

func TestOnQueueReplyLiftsBan(t *testing.T) {
	d, store, _ := newDispatcher(t, 5)
	ctx := context.Background()

	dec, err := d.OnUserMessage(ctx, 1, "en", "msg://1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.SetBanned(ctx, 1, true); err != nil {
		t.Fatalf("ban: %v", err)
	}
	res, err := d.OnQueueReply(ctx, 10, 1)
	if err != nil {
		t.Fatalf("queue reply: %v", err)
	}
	if !res.Unbanned || res.TicketID != dec.TicketID {
		t.Fatalf("expected unban on reply, got %+v", res)
	}
	user, _ := store.GetUser(ctx, 1)
	if user.Banned {
		t.Fatal("ban must be lifted by a queue reply")
	}
}
