package service

import (
	"context"
	"errors"

	"github.com/psds-microservice/support-engine/internal/errs"
	"github.com/psds-microservice/support-engine/internal/language"
	"github.com/psds-microservice/support-engine/internal/model"
	"github.com/psds-microservice/support-engine/internal/repository"
)

// EligibilityResolver решает, может ли агент взять тикет: языковой фильтр
// плюс статус регистрации. Совещательная проверка, не замок: арбитр
// перепроверяет её в момент claim, ничего не кэшируя.
type EligibilityResolver struct {
	store *repository.Store
}

func NewEligibilityResolver(store *repository.Store) *EligibilityResolver {
	return &EligibilityResolver{store: store}
}

// Check возвращает nil, если агент может взять тикет, иначе *errs.NotEligibleError
// с конкретной причиной. Незарегистрированный актор и агент без языков — оба
// «нельзя», но причины различимы.
func (r *EligibilityResolver) Check(ctx context.Context, ticket *model.Ticket, agentID int64) error {
	agent, err := r.store.GetAgent(ctx, agentID)
	if err != nil {
		if errors.Is(err, errs.ErrAgentNotFound) {
			return &errs.NotEligibleError{Reason: errs.ReasonNotAgent}
		}
		return err
	}
	agentLangs := language.Split(agent.Languages)
	if len(agentLangs) == 0 {
		return &errs.NotEligibleError{Reason: errs.ReasonNoLanguages}
	}

	user, err := r.store.GetUser(ctx, ticket.UserID)
	if err != nil {
		return err
	}
	if user.Language == "" {
		return &errs.NotEligibleError{Reason: errs.ReasonUserLangUnknown}
	}
	for _, code := range agentLangs {
		if code == user.Language {
			return nil
		}
	}
	return &errs.NotEligibleError{Reason: errs.ReasonLanguageMismatch}
}

// ResolveUserLanguage определяет язык пользователя: сохранённый выбор важнее
// подсказки платформы; подсказка принимается только из поддерживаемого
// набора и при этом сохраняется. Пустой результат — язык не определён,
// пользователя нужно спросить.
func (r *EligibilityResolver) ResolveUserLanguage(ctx context.Context, user *model.User, hint string) (string, error) {
	if user.Language != "" {
		return user.Language, nil
	}
	if hint != "" && language.Supported(hint) {
		if err := r.store.SaveUserLanguage(ctx, user.ID, hint); err != nil {
			return "", err
		}
		user.Language = hint
		return hint, nil
	}
	return "", nil
}
