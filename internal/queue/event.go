// Package queue defines message payloads exchanged over the message broker.
package queue

// Event types published on the task.activity queue.
const (
	TaskCreated = "task.created"
	TaskUpdated = "task.updated"
	TaskDeleted = "task.deleted"
)

// TaskActivityEvent is published whenever a task is created, updated or
// deleted. It carries enough information for downstream consumers to
// log or notify without querying the primary database.
type TaskActivityEvent struct {
	EventID    string `json:"event_id"`
	Type       string `json:"type"`
	TaskID     uint64 `json:"task_id"`
	OwnerID    uint64 `json:"owner_id"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	OccurredAt string `json:"occurred_at"`
}
