package model

import "time"

// Priority levels a task can carry.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Status values a task can be in.
const (
	StatusTodo       = "todo"
	StatusInProgress = "in-progress"
	StatusDone       = "done"
)

// Task represents a row in the `tasks` table. A task belongs to exactly
// one user; OwnerID is set at creation and never reassigned. JSON tags
// use the camelCase names the web client consumes.
//
// Fields:
//  ID          – primary key identifier of the task.
//  OwnerID     – users.id of the owning user.
//  Title       – 1–200 characters after trimming.
//  Description – up to 1000 characters after trimming, empty by default.
//  Priority    – low | medium | high (default medium).
//  Status      – todo | in-progress | done (default todo).
//  Tags        – optional labels, each at most 50 characters.
//  DueDate     – optional deadline (nil means no due date).
//  CompletedAt – when the task entered the done status (nil otherwise).
//  CreatedAt   – timestamp of creation, maintained by the store.
//  UpdatedAt   – timestamp of last update, maintained by the store.
type Task struct {
	ID          uint64     `json:"id"`
	OwnerID     uint64     `json:"owner"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Priority    string     `json:"priority"`
	Status      string     `json:"status"`
	Tags        []string   `json:"tags"`
	DueDate     *time.Time `json:"dueDate"`
	CompletedAt *time.Time `json:"completedAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}
