package service

import (
	"context"
	"errors"
	"testing"

	"github.com/psds-microservice/support-engine/internal/errs"
)

func TestAgentOnboarding(t *testing.T) {
	store := newTestStore(t)
	svc := NewAgentService(store, nil, nil)
	ctx := context.Background()

	req, err := svc.SubmitRequest(ctx, 10, "Jane Roe", "English, German", "weekdays")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if req.Languages != "en,de" {
		t.Fatalf("expected normalized languages en,de, got %q", req.Languages)
	}

	pending, err := svc.PendingRequests(ctx)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != 10 {
		t.Fatalf("expected one pending request for 10, got %+v", pending)
	}

	agent, err := svc.Approve(ctx, 10)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if agent.Languages != "en,de" || agent.FullName != "Jane Roe" {
		t.Fatalf("approve must carry request fields, got %+v", agent)
	}
	// Заявка уничтожается при конвертации.
	pending, _ = svc.PendingRequests(ctx)
	if len(pending) != 0 {
		t.Fatalf("pending request must be consumed, got %+v", pending)
	}
	if _, err := store.GetAgent(ctx, 10); err != nil {
		t.Fatalf("agent must exist after approve: %v", err)
	}
}

func TestAgentApproveMissingRequest(t *testing.T) {
	store := newTestStore(t)
	svc := NewAgentService(store, nil, nil)

	if _, err := svc.Approve(context.Background(), 404); !errors.Is(err, errs.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestAgentReject(t *testing.T) {
	store := newTestStore(t)
	svc := NewAgentService(store, nil, nil)
	ctx := context.Background()

	if _, err := svc.SubmitRequest(ctx, 10, "Jane Roe", "english", ""); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := svc.Reject(ctx, 10); err != nil {
		t.Fatalf("reject: %v", err)
	}
	pending, _ := svc.PendingRequests(ctx)
	if len(pending) != 0 {
		t.Fatalf("rejected request must be removed, got %+v", pending)
	}
	if _, err := store.GetAgent(ctx, 10); !errors.Is(err, errs.ErrAgentNotFound) {
		t.Fatalf("reject must not create an agent, got %v", err)
	}
}

func TestAgentSubmitUnknownLanguage(t *testing.T) {
	store := newTestStore(t)
	svc := NewAgentService(store, nil, nil)

	if _, err := svc.SubmitRequest(context.Background(), 10, "Jane Roe", "klingon", ""); err == nil {
		t.Fatal("expected error for unknown language")
	}
}

func TestAgentSetLanguagesAndRate(t *testing.T) {
	store := newTestStore(t)
	svc := NewAgentService(store, nil, nil)
	ctx := context.Background()
	seedAgent(t, store, 10, "en", 0)

	codes, err := svc.SetLanguages(ctx, 10, "Spanish, French")
	if err != nil {
		t.Fatalf("set languages: %v", err)
	}
	if codes != "es,fr" {
		t.Fatalf("expected es,fr, got %q", codes)
	}
	if _, err := svc.SetLanguages(ctx, 404, "english"); !errors.Is(err, errs.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}

	if err := svc.SetCommissionRate(ctx, 10, 0.75); err != nil {
		t.Fatalf("set rate: %v", err)
	}
	agent, _ := store.GetAgent(ctx, 10)
	if agent.CommissionRate != 0.75 {
		t.Fatalf("expected rate 0.75, got %v", agent.CommissionRate)
	}
	if err := svc.SetCommissionRate(ctx, 10, -1); err == nil {
		t.Fatal("negative rate must be rejected")
	}
	if err := svc.SetCommissionRate(ctx, 404, 0.5); !errors.Is(err, errs.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}

func TestAgentProfileAndActiveTickets(t *testing.T) {
	store := newTestStore(t)
	svc := NewAgentService(store, nil, nil)
	ctx := context.Background()
	seedAgent(t, store, 10, "en", 0.5)
	seedUser(t, store, 1, "en")
	seedUser(t, store, 2, "en")

	t1 := seedOpenTicket(t, store, 1)
	t2 := seedOpenTicket(t, store, 2)
	for _, id := range []uint64{t1.ID, t2.ID} {
		if ok, err := store.ClaimTicket(ctx, id, 10); err != nil || !ok {
			t.Fatalf("claim %d: %v %v", id, ok, err)
		}
	}

	profile, err := svc.Profile(ctx, 10)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if profile.ActiveTickets != 2 {
		t.Fatalf("expected 2 active tickets, got %d", profile.ActiveTickets)
	}
	if profile.Agent.TicketsClaimed != 2 {
		t.Fatalf("expected tickets_claimed 2, got %d", profile.Agent.TicketsClaimed)
	}

	// Закрытие уменьшает активные, но не tickets_claimed.
	if _, err := store.CloseTicket(ctx, t1.ID, 1.0); err != nil {
		t.Fatalf("close: %v", err)
	}
	active, err := svc.ActiveTickets(ctx, 10)
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0].ID != t2.ID {
		t.Fatalf("expected ticket %d active, got %+v", t2.ID, active)
	}

	if _, err := svc.ActiveTickets(ctx, 404); !errors.Is(err, errs.ErrAgentNotFound) {
		t.Fatalf("expected ErrAgentNotFound, got %v", err)
	}
}
