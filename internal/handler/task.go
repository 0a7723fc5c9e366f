package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/davitm/taskboard/internal/middleware"
	"github.com/davitm/taskboard/internal/model"
	"github.com/davitm/taskboard/internal/projection"
	"github.com/davitm/taskboard/internal/queue"
	"github.com/davitm/taskboard/internal/repository"
	"github.com/davitm/taskboard/internal/validation"
)

// TaskHandler bundles dependencies for the task endpoints. Events and
// Cache are optional; nil disables activity publishing and response
// caching respectively.
type TaskHandler struct {
	Tasks  TaskStore
	Events ActivityPublisher
	Cache  *middleware.TaskCache
}

func NewTaskHandler(tasks TaskStore, events ActivityPublisher, cache *middleware.TaskCache) *TaskHandler {
	if tasks == nil {
		panic("nil task store passed to NewTaskHandler")
	}
	return &TaskHandler{Tasks: tasks, Events: events, Cache: cache}
}

// taskReq is the create/update body. Pointer fields distinguish an
// absent key (no change on update, default on create) from a present
// value, which carries the partial-update contract: only fields the
// client sent are validated and applied.
type taskReq struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Priority    *string   `json:"priority"`
	Status      *string   `json:"status"`
	Tags        *[]string `json:"tags"`
	DueDate     *string   `json:"dueDate"`
}

// List returns all tasks owned by the caller, newest-created first.
// Optional query parameters (status, search, sort) apply the view
// projection server-side, so thin clients can fetch a pre-projected
// snapshot.
func (h *TaskHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tasks, err := h.Tasks.ListByOwner(ctx, uid)
	if err != nil {
		log.Printf("tasks: list failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Error fetching tasks"})
	}

	opts := projection.Options{
		Status: c.QueryParam("status"),
		Search: c.QueryParam("search"),
		SortBy: c.QueryParam("sort"),
	}
	if opts.Status != "" || opts.Search != "" || opts.SortBy != "" {
		tasks = projection.Project(tasks, opts)
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "tasks": tasks, "count": len(tasks)})
}

// Get returns a single task. Existence is checked before ownership: a
// nonexistent id reports 404 to everyone, someone else's id reports 403.
func (h *TaskHandler) Get(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"msg": "Task not found"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	task, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"msg": "Task not found"})
		}
		log.Printf("tasks: get %d failed: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Error fetching task"})
	}
	if task.OwnerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"msg": "Not authorized to view this task"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "task": task})
}

// Create validates the body, applies documented defaults and persists a
// new task owned by the caller. All validation happens before any write.
func (h *TaskHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "unauthorized"})
	}
	var req taskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": "Invalid request body"})
	}

	task := &model.Task{
		OwnerID:  uid,
		Priority: model.PriorityMedium,
		Status:   model.StatusTodo,
		Tags:     []string{},
	}

	if req.Title == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": "Task title is required"})
	}
	title, err := validation.TaskTitle(*req.Title)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
	}
	task.Title = title

	if req.Description != nil {
		desc, err := validation.TaskDescription(*req.Description)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
		}
		task.Description = desc
	}
	if req.Priority != nil {
		if err := validation.TaskPriority(*req.Priority); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
		}
		task.Priority = *req.Priority
	}
	if req.Status != nil {
		if err := validation.TaskStatus(*req.Status); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
		}
		task.Status = *req.Status
	}
	if req.Tags != nil {
		tags, err := validation.TaskTags(*req.Tags)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
		}
		task.Tags = tags
	}
	if req.DueDate != nil {
		due, err := validation.TaskDueDate(*req.DueDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
		}
		task.DueDate = due
	}
	if task.Status == model.StatusDone {
		now := time.Now().UTC()
		task.CompletedAt = &now
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tasks.Create(ctx, task); err != nil {
		log.Printf("tasks: create failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Error creating task"})
	}

	h.Cache.Invalidate(ctx, uid)
	h.publishActivity(queue.TaskCreated, task)

	return c.JSON(http.StatusCreated, echo.Map{"success": true, "task": task, "msg": "Task created successfully"})
}

// Update applies a partial update. Precedence is fixed: existence, then
// ownership, then field validation: a nonexistent task reports 404
// even to a non-owner, and nothing is written until every present field
// validated. An omitted title means "no change"; a present-but-empty
// title is rejected.
func (h *TaskHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"msg": "Task not found"})
	}
	var req taskReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"msg": "Invalid request body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	task, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"msg": "Task not found"})
		}
		log.Printf("tasks: get %d failed: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Error updating task"})
	}
	if task.OwnerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"msg": "Not authorized to update this task"})
	}

	if req.Title != nil {
		title, err := validation.TaskTitle(*req.Title)
		if err != nil {
			if errors.Is(err, validation.ErrTitleRequired) {
				return c.JSON(http.StatusBadRequest, echo.Map{"msg": "Task title cannot be empty"})
			}
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
		}
		task.Title = title
	}
	if req.Description != nil {
		desc, err := validation.TaskDescription(*req.Description)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
		}
		task.Description = desc
	}
	if req.Priority != nil {
		if err := validation.TaskPriority(*req.Priority); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
		}
		task.Priority = *req.Priority
	}
	if req.Status != nil {
		if err := validation.TaskStatus(*req.Status); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
		}
		// completedAt tracks the done status: set on entering, cleared
		// on leaving.
		if *req.Status == model.StatusDone && task.Status != model.StatusDone {
			now := time.Now().UTC()
			task.CompletedAt = &now
		} else if *req.Status != model.StatusDone {
			task.CompletedAt = nil
		}
		task.Status = *req.Status
	}
	if req.Tags != nil {
		tags, err := validation.TaskTags(*req.Tags)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
		}
		task.Tags = tags
	}
	if req.DueDate != nil {
		// An explicit empty string clears the due date; an absent key
		// leaves it unchanged.
		due, err := validation.TaskDueDate(*req.DueDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"msg": validationMsg(err)})
		}
		task.DueDate = due
	}

	if err := h.Tasks.Update(ctx, task); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"msg": "Task not found"})
		}
		log.Printf("tasks: update %d failed: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Error updating task"})
	}

	h.Cache.Invalidate(ctx, uid)
	h.publishActivity(queue.TaskUpdated, task)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "task": task, "msg": "Task updated successfully"})
}

// Delete removes a task permanently. Same existence-before-ownership
// precedence as Get; no soft delete, no cascading side effects.
func (h *TaskHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "unauthorized"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"msg": "Task not found"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	task, err := h.Tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"msg": "Task not found"})
		}
		log.Printf("tasks: get %d failed: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Error deleting task"})
	}
	if task.OwnerID != uid {
		return c.JSON(http.StatusForbidden, echo.Map{"msg": "Not authorized to delete this task"})
	}

	if err := h.Tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"msg": "Task not found"})
		}
		log.Printf("tasks: delete %d failed: %v", id, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Error deleting task"})
	}

	h.Cache.Invalidate(ctx, uid)
	h.publishActivity(queue.TaskDeleted, task)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "msg": "Task deleted successfully"})
}

// Stats computes the summary over the caller's current tasks. Purely
// derived, never persisted.
func (h *TaskHandler) Stats(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"msg": "unauthorized"})
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	tasks, err := h.Tasks.ListByOwner(ctx, uid)
	if err != nil {
		log.Printf("tasks: stats list failed: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"msg": "Error fetching statistics"})
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "stats": projection.Summarize(tasks)})
}

// publishActivity emits a task activity event off the request path.
// Failures are the publisher's to log; a lost event never fails the
// request that caused it.
func (h *TaskHandler) publishActivity(eventType string, t *model.Task) {
	if h.Events == nil {
		return
	}
	ev := queue.TaskActivityEvent{
		EventID:    uuid.NewString(),
		Type:       eventType,
		TaskID:     t.ID,
		OwnerID:    t.OwnerID,
		Title:      t.Title,
		Status:     t.Status,
		Priority:   t.Priority,
		OccurredAt: time.Now().UTC().Format(time.RFC3339),
	}
	go func() { _ = h.Events.PublishTaskActivity(context.Background(), ev) }()
}

// validationMsg maps sentinel validation errors to the messages the web
// client shows. The error strings themselves already read well, so this only
// exists to keep response copy in one place.
func validationMsg(err error) string {
	switch {
	case errors.Is(err, validation.ErrTitleRequired):
		return "Task title is required"
	case errors.Is(err, validation.ErrTitleTooLong):
		return "Task title cannot exceed 200 characters"
	case errors.Is(err, validation.ErrDescriptionTooLong):
		return "Task description cannot exceed 1000 characters"
	case errors.Is(err, validation.ErrInvalidPriority):
		return "Invalid priority level"
	case errors.Is(err, validation.ErrInvalidStatus):
		return "Invalid status"
	case errors.Is(err, validation.ErrTagTooLong):
		return "Tags cannot exceed 50 characters"
	case errors.Is(err, validation.ErrInvalidDueDate):
		return "Invalid due date"
	}
	return err.Error()
}
