package models

import "time"

// Entry is a persisted record: the record plus the identity the backend
// assigned to it.
type Entry[T any] struct {
	Key    string `json:"key"`
	Record T      `json:"record"`
}

// Record change actions.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// RecordEvent describes a mutation confirmed by the backend.
type RecordEvent struct {
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	Key        string            `json:"key"`
	Fields     map[string]string `json:"fields,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// RoutingKey is the event name, e.g. "product.created".
func (e RecordEvent) RoutingKey() string {
	return e.Entity + "." + e.Action
}
