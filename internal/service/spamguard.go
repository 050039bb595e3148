package service

import (
	"context"

	"github.com/psds-microservice/support-engine/internal/repository"
)

// SpamDecision — результат анти-спам проверки входящего сообщения.
type SpamDecision string

const (
	// SpamForward — сообщение форвардится как обычно.
	SpamForward SpamDecision = "forward"
	// SpamWarn — сообщение ещё форвардится, но это последнее до ответа агента.
	SpamWarn SpamDecision = "warn"
	// SpamBlock — сообщение не форвардится.
	SpamBlock SpamDecision = "block"
)

// SpamGuard — пер-пользовательский счётчик подряд идущих сообщений с
// пороговым решением. Логика без собственного состояния: счётчик живёт в
// хранилище и инкрементируется атомарно там же.
type SpamGuard struct {
	store     *repository.Store
	threshold int
}

func NewSpamGuard(store *repository.Store, threshold int) *SpamGuard {
	if threshold < 1 {
		threshold = 1
	}
	return &SpamGuard{store: store, threshold: threshold}
}

// Evaluate инкрементирует счётчик пользователя ровно на 1 и решает судьбу
// сообщения по значению после инкремента: n < T — forward, n == T — warn,
// n > T — block. Возвращает решение и новое значение счётчика.
func (g *SpamGuard) Evaluate(ctx context.Context, userID int64) (SpamDecision, int, error) {
	n, err := g.store.IncrementSpam(ctx, userID)
	if err != nil {
		return "", 0, err
	}
	switch {
	case n < g.threshold:
		return SpamForward, n, nil
	case n == g.threshold:
		return SpamWarn, n, nil
	default:
		return SpamBlock, n, nil
	}
}

// Reset сбрасывает backpressure: вызывается, когда ответ агента дошёл до
// пользователя (доставку делает транспортный слой, ядро даёт операцию).
func (g *SpamGuard) Reset(ctx context.Context, userID int64) error {
	return g.store.ResetSpam(ctx, userID)
}
