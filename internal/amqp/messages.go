package amqp

import (
	"encoding/json"
	"time"

	"gastos/internal/core"
)

// EventType doubles as the routing key on the events exchange.
type EventType string

const (
	EventCreated EventType = "expense.created"
	EventSynced  EventType = "expense.synced"
	EventShared  EventType = "expense.shared"
	EventDeleted EventType = "expense.deleted"
	EventPulled  EventType = "expenses.pulled"
)

// ExpenseEvent announces a change applied by the sync engine. It carries identifiers
// only, consumers read the record from the shared table.
type ExpenseEvent struct {
	Type            EventType `json:"type"`
	ExpenseID       string    `json:"expense_id,omitempty"`
	OwnerEmail      string    `json:"owner_email,omitempty"`
	SharedWithEmail string    `json:"shared_with_email,omitempty"`
	Count           int       `json:"count,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

// NewExpenseEvent builds an event about a single expense.
func NewExpenseEvent(t EventType, e core.Expense, now time.Time) ExpenseEvent {
	return ExpenseEvent{
		Type:            t,
		ExpenseID:       e.ID,
		OwnerEmail:      e.OwnerEmail,
		SharedWithEmail: e.SharedWithEmail,
		Timestamp:       now.UTC(),
	}
}

// NewPulledEvent reports a completed pull for email.
func NewPulledEvent(email string, count int, now time.Time) ExpenseEvent {
	return ExpenseEvent{Type: EventPulled, OwnerEmail: email, Count: count, Timestamp: now.UTC()}
}

func (m ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseEventFromJSON(data []byte) (ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return ExpenseEvent{}, err
	}
	return msg, nil
}
