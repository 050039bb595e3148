package service

import (
	"context"
	"errors"
	"testing"

	"github.com/psds-microservice/support-engine/internal/errs"
)

func TestSpamGuardThresholdSequence(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, 1, "en")
	guard := NewSpamGuard(store, 5)
	ctx := context.Background()

	// Сообщения 1..4 — forward, 5-е — warn, 6-е и дальше — block.
	for i := 1; i <= 4; i++ {
		dec, n, err := guard.Evaluate(ctx, 1)
		if err != nil {
			t.Fatalf("evaluate %d: %v", i, err)
		}
		if dec != SpamForward {
			t.Fatalf("message %d: expected forward, got %s", i, dec)
		}
		if n != i {
			t.Fatalf("message %d: expected counter %d, got %d", i, i, n)
		}
	}
	dec, n, err := guard.Evaluate(ctx, 1)
	if err != nil {
		t.Fatalf("evaluate warn: %v", err)
	}
	if dec != SpamWarn || n != 5 {
		t.Fatalf("expected warn at 5, got %s at %d", dec, n)
	}
	for i := 6; i <= 8; i++ {
		dec, n, err = guard.Evaluate(ctx, 1)
		if err != nil {
			t.Fatalf("evaluate block %d: %v", i, err)
		}
		if dec != SpamBlock || n != i {
			t.Fatalf("message %d: expected block at %d, got %s at %d", i, i, dec, n)
		}
	}
}

func TestSpamGuardReset(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, 1, "en")
	guard := NewSpamGuard(store, 2)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		if _, _, err := guard.Evaluate(ctx, 1); err != nil {
			t.Fatalf("evaluate: %v", err)
		}
	}
	if err := guard.Reset(ctx, 1); err != nil {
		t.Fatalf("reset: %v", err)
	}
	// После сброса счётчик равен 1: открывшее сообщение учтено.
	dec, n, err := guard.Evaluate(ctx, 1)
	if err != nil {
		t.Fatalf("evaluate after reset: %v", err)
	}
	if dec != SpamWarn || n != 2 {
		t.Fatalf("expected warn at 2 after reset, got %s at %d", dec, n)
	}
}

func TestSpamGuardUnknownUser(t *testing.T) {
	store := newTestStore(t)
	guard := NewSpamGuard(store, 5)

	_, _, err := guard.Evaluate(context.Background(), 404)
	if !errors.Is(err, errs.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}
