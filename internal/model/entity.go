package model

import "time"

// TicketState — производное состояние тикета (в БД не хранится).
type TicketState string

const (
	TicketStateOpenUnclaimed   TicketState = "open_unclaimed"
	TicketStateOpenClaimed     TicketState = "open_claimed"
	TicketStateResolvedClaimed TicketState = "resolved_claimed"
	TicketStateClosed          TicketState = "closed"
)

type User struct {
	ID              int64   `gorm:"primaryKey" json:"id"`
	Banned          bool    `gorm:"not null;default:false;index" json:"banned"`
	Language        string  `gorm:"type:varchar(8)" json:"language,omitempty"`
	SpamCounter     int     `gorm:"not null;default:0" json:"spam_counter"`
	CurrentTicketID *uint64 `gorm:"index" json:"current_ticket_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Agent struct {
	ID              int64   `gorm:"primaryKey" json:"id"`
	FullName        string  `gorm:"type:varchar(100)" json:"full_name,omitempty"`
	Languages       string  `gorm:"type:text" json:"languages,omitempty"`
	Availability    string  `gorm:"type:text" json:"availability,omitempty"`
	CommissionRate  float64 `gorm:"type:decimal(6,4);not null;default:0" json:"commission_rate"`
	TotalEarnings   float64 `gorm:"type:decimal(12,2);not null;default:0" json:"total_earnings"`
	TicketsClaimed  int     `gorm:"not null;default:0" json:"tickets_claimed"`
	TicketsResolved int     `gorm:"not null;default:0" json:"tickets_resolved"`

	ApprovedAt time.Time `gorm:"autoCreateTime" json:"approved_at"`
}

// PendingAgentRequest — заявка на роль агента, ждёт approve/reject админа.
// Уничтожается при решении: approve переносит данные в Agent, reject удаляет.
type PendingAgentRequest struct {
	ID           int64  `gorm:"primaryKey" json:"id"`
	FullName     string `gorm:"type:varchar(100)" json:"full_name"`
	Languages    string `gorm:"type:text" json:"languages"`
	Availability string `gorm:"type:text" json:"availability"`

	RequestedAt time.Time `gorm:"autoCreateTime" json:"requested_at"`
}

type Ticket struct {
	ID               uint64     `gorm:"primaryKey" json:"id"`
	UserID           int64      `gorm:"index;not null" json:"user_id"`
	OpenedAt         time.Time  `gorm:"autoCreateTime" json:"opened_at"`
	ClosedAt         *time.Time `gorm:"index" json:"closed_at,omitempty"`
	Resolved         bool       `gorm:"not null;default:false" json:"resolved"`
	ClaimedBy        *int64     `gorm:"index" json:"claimed_by,omitempty"`
	FirstMessageLink string     `gorm:"type:varchar(255)" json:"first_message_link,omitempty"`
	LastMessageLink  string     `gorm:"type:varchar(255)" json:"last_message_link,omitempty"`
}

func (t *Ticket) State() TicketState {
	switch {
	case t.ClosedAt != nil:
		return TicketStateClosed
	case t.Resolved:
		return TicketStateResolvedClaimed
	case t.ClaimedBy != nil:
		return TicketStateOpenClaimed
	default:
		return TicketStateOpenUnclaimed
	}
}

func (t *Ticket) Open() bool {
	return t.ClosedAt == nil
}

// ClaimedByAgent — true, если открытый тикет закреплён за данным агентом.
func (t *Ticket) ClaimedByAgent(agentID int64) bool {
	return t.ClaimedBy != nil && *t.ClaimedBy == agentID
}
