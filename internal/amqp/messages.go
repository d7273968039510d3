package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"finboard/internal/core"
)

// Action is what happened to a transaction.
type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

func (a Action) Valid() bool {
	return a == ActionCreated || a == ActionUpdated || a == ActionDeleted
}

// TransactionEvent carries the full transaction so the mirror never has to
// call back into the API with the user's token.
type TransactionEvent struct {
	Action      Action           `json:"action"`
	Transaction core.Transaction `json:"transaction"`
	UserID      string           `json:"userId"`
	Timestamp   time.Time        `json:"timestamp"`
}

// NewTransactionEvent stamps an event with the current time.
func NewTransactionEvent(action Action, tx core.Transaction, userID string) *TransactionEvent {
	return &TransactionEvent{
		Action:      action,
		Transaction: tx,
		UserID:      userID,
		Timestamp:   time.Now().UTC(),
	}
}

// ToJSON converts the event to JSON bytes
func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// TransactionEventFromJSON decodes and checks an event body.
func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var ev TransactionEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, err
	}
	if !ev.Action.Valid() {
		return nil, fmt.Errorf("unknown action %q", ev.Action)
	}
	if ev.Transaction.ID == "" {
		return nil, errors.New("transaction id is required")
	}
	return &ev, nil
}
