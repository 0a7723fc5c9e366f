package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/davitm/taskboard/internal/model"
)

// TaskRepo encapsulates all database queries related to tasks. It
// depends on a sql.DB connection configured elsewhere, which allows
// dependency injection at startup.
type TaskRepo struct{ db *sql.DB }

func NewTaskRepo(db *sql.DB) *TaskRepo { return &TaskRepo{db: db} }

const taskColumns = "id, owner_id, title, description, priority, status, tags, due_date, completed_at, created_at, updated_at"

// scanTask reads one row into a Task. Tags live in a JSON column;
// due_date and completed_at are nullable DATETIMEs.
func scanTask(row interface{ Scan(...any) error }) (*model.Task, error) {
	var (
		t    model.Task
		tags sql.NullString
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Title, &t.Description, &t.Priority,
		&t.Status, &tags, &t.DueDate, &t.CompletedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Tags = []string{}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &t.Tags); err != nil {
			return nil, err
		}
	}
	return &t, nil
}

func marshalTags(tags []string) (string, error) {
	if len(tags) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Create inserts a new task. On success the task is re-read so the
// caller receives the store-assigned id and timestamps.
func (r *TaskRepo) Create(ctx context.Context, t *model.Task) error {
	tags, err := marshalTags(t.Tags)
	if err != nil {
		return err
	}
	const qInsert = `INSERT INTO tasks (owner_id, title, description, priority, status, tags, due_date, completed_at)
	                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, qInsert,
		t.OwnerID, t.Title, t.Description, t.Priority, t.Status, tags, t.DueDate, t.CompletedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)

	// Follow-up SELECT to populate the DB-maintained timestamp fields.
	fresh, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *fresh
	return nil
}

// GetByID fetches a task by its id regardless of owner. It returns
// ErrTaskNotFound if no row is found. Ownership is enforced by the
// caller after existence is confirmed, so a nonexistent id reports
// not-found to everyone while someone else's id reports forbidden.
func (r *TaskRepo) GetByID(ctx context.Context, id uint64) (*model.Task, error) {
	const q = "SELECT " + taskColumns + " FROM tasks WHERE id = ?"
	t, err := scanTask(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return t, nil
}

// ListByOwner returns all tasks for one owner, newest-created first.
func (r *TaskRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]*model.Task, error) {
	const q = "SELECT " + taskColumns + " FROM tasks WHERE owner_id = ? ORDER BY created_at DESC, id DESC"
	rows, err := r.db.QueryContext(ctx, q, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []*model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update persists the mutable fields of a task and refreshes the
// struct from the store so updated_at reflects the write. The owner
// column is deliberately absent from the SET list: ownership is
// immutable after creation.
func (r *TaskRepo) Update(ctx context.Context, t *model.Task) error {
	tags, err := marshalTags(t.Tags)
	if err != nil {
		return err
	}
	const q = `UPDATE tasks
	           SET title = ?, description = ?, priority = ?, status = ?, tags = ?,
	               due_date = ?, completed_at = ?, updated_at = CURRENT_TIMESTAMP(3)
	           WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q,
		t.Title, t.Description, t.Priority, t.Status, tags, t.DueDate, t.CompletedAt, t.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Row may have been deleted between the existence check and the
		// write; surface it the same way a failed lookup would.
		if _, err := r.GetByID(ctx, t.ID); err != nil {
			return err
		}
	}
	fresh, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *fresh
	return nil
}

// Delete removes a task permanently. ErrTaskNotFound is returned when
// nothing was deleted.
func (r *TaskRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTaskNotFound
	}
	return nil
}
