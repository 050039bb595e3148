package errs

import "errors"

// Ожидаемые доменные ошибки. Contention и authorization — обычные исходы,
// не инфраструктурные сбои; наружу уходят как отказ, без ретраев.
var (
	ErrTicketNotFound = errors.New("ticket not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrAgentNotFound  = errors.New("agent not found")

	ErrInvalidTransition     = errors.New("invalid ticket state transition")
	ErrAlreadyClaimedBySelf  = errors.New("ticket already claimed by this agent")
	ErrAlreadyClaimedByOther = errors.New("ticket already claimed by another agent")
	ErrNotEligible           = errors.New("agent not eligible for ticket")
	ErrUnauthorized          = errors.New("actor is not the claimant or an admin")
	ErrNoOpenTicket          = errors.New("no open ticket")
	ErrNoClaimant            = errors.New("ticket has no claiming agent")
	ErrNotResolved           = errors.New("ticket is not resolved")
	ErrNoClaimedTicket       = errors.New("agent has not claimed any ticket")
)

// Причины отказа в eligibility-проверке.
const (
	ReasonNotAgent         = "not a registered agent"
	ReasonNoLanguages      = "agent has no languages configured"
	ReasonUserLangUnknown  = "user language is not determined"
	ReasonLanguageMismatch = "user language is not spoken by agent"
)

// NotEligibleError несёт конкретную причину отказа; errors.Is(err, ErrNotEligible)
// срабатывает для всех вариантов.
type NotEligibleError struct {
	Reason string
}

func (e *NotEligibleError) Error() string {
	return "not eligible: " + e.Reason
}

func (e *NotEligibleError) Unwrap() error {
	return ErrNotEligible
}
