package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/davitm/taskboard/internal/middleware"
	"github.com/davitm/taskboard/internal/model"
	"github.com/davitm/taskboard/internal/queue"
	"github.com/davitm/taskboard/internal/repository"
)

// fakeTaskStore is an in-memory TaskStore. A synthetic clock advances
// on every write so created_at ordering is deterministic.
type fakeTaskStore struct {
	mu     sync.Mutex
	nextID uint64
	clock  time.Time
	tasks  map[uint64]*model.Task
}

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		tasks: map[uint64]*model.Task{},
	}
}

func (s *fakeTaskStore) tick() time.Time {
	s.clock = s.clock.Add(time.Second)
	return s.clock
}

func copyTask(t *model.Task) *model.Task {
	cp := *t
	cp.Tags = append([]string{}, t.Tags...)
	return &cp
}

func (s *fakeTaskStore) Create(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	t.CreatedAt = s.tick()
	t.UpdatedAt = t.CreatedAt
	s.tasks[t.ID] = copyTask(t)
	return nil
}

func (s *fakeTaskStore) GetByID(_ context.Context, id uint64) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return nil, repository.ErrTaskNotFound
	}
	return copyTask(t), nil
}

func (s *fakeTaskStore) ListByOwner(_ context.Context, ownerID uint64) ([]*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Task{}
	for _, t := range s.tasks {
		if t.OwnerID == ownerID {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *fakeTaskStore) Update(_ context.Context, t *model.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[t.ID]; !ok {
		return repository.ErrTaskNotFound
	}
	t.UpdatedAt = s.tick()
	s.tasks[t.ID] = copyTask(t)
	return nil
}

func (s *fakeTaskStore) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tasks[id]; !ok {
		return repository.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

// chanPublisher forwards events to a channel so tests can wait for the
// async publish without sleeping.
type chanPublisher struct{ ch chan queue.TaskActivityEvent }

func (p chanPublisher) PublishTaskActivity(_ context.Context, ev queue.TaskActivityEvent) error {
	p.ch <- ev
	return nil
}

// doTask runs one task-handler call as the given user.
func doTask(t *testing.T, h echo.HandlerFunc, method, target, body string, uid uint64, id string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set(middleware.UserIDKey, uid)
	if id != "" {
		c.SetParamNames("id")
		c.SetParamValues(id)
	}
	require.NoError(t, h(c))
	return rec
}

func taskFromBody(t *testing.T, rec *httptest.ResponseRecorder) *model.Task {
	t.Helper()
	var resp struct {
		Task *model.Task `json:"task"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Task)
	return resp.Task
}

func createTask(t *testing.T, h *TaskHandler, uid uint64, body string) *model.Task {
	t.Helper()
	rec := doTask(t, h.Create, http.MethodPost, "/api/tasks", body, uid, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return taskFromBody(t, rec)
}

func TestCreateAppliesDefaultsAndRoundTrips(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)

	created := createTask(t, h, 1, `{"title":"  buy milk  "}`)
	require.Equal(t, "buy milk", created.Title)
	require.Equal(t, model.PriorityMedium, created.Priority)
	require.Equal(t, model.StatusTodo, created.Status)
	require.Equal(t, "", created.Description)
	require.Equal(t, []string{}, created.Tags)
	require.Nil(t, created.DueDate)
	require.Nil(t, created.CompletedAt)
	require.Equal(t, uint64(1), created.OwnerID)
	require.NotZero(t, created.ID)

	rec := doTask(t, h.Get, http.MethodGet, "/api/tasks/1", "", 1, fmt.Sprint(created.ID))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, created, taskFromBody(t, rec))
}

func TestCreateValidation(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)

	longTitle := strings.Repeat("t", 201)
	longDesc := strings.Repeat("d", 1001)
	cases := []struct {
		name, body string
	}{
		{"no title", `{"description":"x"}`},
		{"blank title", `{"title":"   "}`},
		{"title too long", fmt.Sprintf(`{"title":%q}`, longTitle)},
		{"description too long", fmt.Sprintf(`{"title":"ok","description":%q}`, longDesc)},
		{"bad priority", `{"title":"ok","priority":"urgent"}`},
		{"bad status", `{"title":"ok","status":"paused"}`},
		{"bad due date", `{"title":"ok","dueDate":"whenever"}`},
		{"tag too long", fmt.Sprintf(`{"title":"ok","tags":[%q]}`, strings.Repeat("x", 51))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doTask(t, h.Create, http.MethodPost, "/api/tasks", tc.body, 1, "")
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}

	// Exact boundary values are accepted.
	createTask(t, h, 1, fmt.Sprintf(`{"title":%q}`, strings.Repeat("t", 200)))
	createTask(t, h, 1, fmt.Sprintf(`{"title":"ok","description":%q}`, strings.Repeat("d", 1000)))
}

func TestCreateDoneSetsCompletedAt(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)

	created := createTask(t, h, 1, `{"title":"already done","status":"done"}`)
	require.NotNil(t, created.CompletedAt)
}

func TestGetPrecedence(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)
	created := createTask(t, h, 1, `{"title":"mine","description":"private"}`)

	// Nonexistent id reports 404 to everyone, owner or not.
	for _, uid := range []uint64{1, 2} {
		rec := doTask(t, h.Get, http.MethodGet, "/api/tasks/999", "", uid, "999")
		require.Equal(t, http.StatusNotFound, rec.Code)
	}

	// Existing but foreign id reports 403 without leaking content.
	rec := doTask(t, h.Get, http.MethodGet, "/api/tasks/1", "", 2, fmt.Sprint(created.ID))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.NotContains(t, rec.Body.String(), "private")
}

func TestUpdatePartialSemantics(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)
	created := createTask(t, h, 1, `{"title":"write report","description":"draft","priority":"high"}`)
	id := fmt.Sprint(created.ID)

	// Only the status changes; everything else keeps its value.
	rec := doTask(t, h.Update, http.MethodPut, "/api/tasks/"+id, `{"status":"in-progress"}`, 1, id)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := taskFromBody(t, rec)
	require.Equal(t, "write report", updated.Title)
	require.Equal(t, "draft", updated.Description)
	require.Equal(t, model.PriorityHigh, updated.Priority)
	require.Equal(t, model.StatusInProgress, updated.Status)

	// An empty field set leaves the task unchanged except updatedAt.
	rec = doTask(t, h.Update, http.MethodPut, "/api/tasks/"+id, `{}`, 1, id)
	require.Equal(t, http.StatusOK, rec.Code)
	unchanged := taskFromBody(t, rec)
	require.Equal(t, updated.Title, unchanged.Title)
	require.Equal(t, updated.Description, unchanged.Description)
	require.Equal(t, updated.Priority, unchanged.Priority)
	require.Equal(t, updated.Status, unchanged.Status)
	require.Equal(t, updated.CreatedAt, unchanged.CreatedAt)

	// Omitted title means "no change"; present-but-empty is rejected.
	rec = doTask(t, h.Update, http.MethodPut, "/api/tasks/"+id, `{"title":"  "}`, 1, id)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdatePrecedence(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)
	created := createTask(t, h, 1, `{"title":"mine"}`)
	id := fmt.Sprint(created.ID)
	invalid := `{"priority":"urgent"}`

	// Nonexistent beats everything, even an invalid body.
	rec := doTask(t, h.Update, http.MethodPut, "/api/tasks/999", invalid, 2, "999")
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Ownership beats validation: a non-owner gets 403, not 400.
	rec = doTask(t, h.Update, http.MethodPut, "/api/tasks/"+id, invalid, 2, id)
	require.Equal(t, http.StatusForbidden, rec.Code)

	// The owner with the same body gets the validation error.
	rec = doTask(t, h.Update, http.MethodPut, "/api/tasks/"+id, invalid, 1, id)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStatusTracksCompletedAt(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)
	created := createTask(t, h, 1, `{"title":"finish me"}`)
	id := fmt.Sprint(created.ID)

	rec := doTask(t, h.Update, http.MethodPut, "/api/tasks/"+id, `{"status":"done"}`, 1, id)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, taskFromBody(t, rec).CompletedAt)

	rec = doTask(t, h.Update, http.MethodPut, "/api/tasks/"+id, `{"status":"todo"}`, 1, id)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, taskFromBody(t, rec).CompletedAt)
}

func TestUpdateDueDateSetAndClear(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)
	created := createTask(t, h, 1, `{"title":"deadline"}`)
	id := fmt.Sprint(created.ID)

	rec := doTask(t, h.Update, http.MethodPut, "/api/tasks/"+id, `{"dueDate":"2026-12-01"}`, 1, id)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, taskFromBody(t, rec).DueDate)

	// Explicit empty string clears; an absent key would not.
	rec = doTask(t, h.Update, http.MethodPut, "/api/tasks/"+id, `{"dueDate":""}`, 1, id)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Nil(t, taskFromBody(t, rec).DueDate)
}

func TestDelete(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)
	created := createTask(t, h, 1, `{"title":"ephemeral"}`)
	id := fmt.Sprint(created.ID)

	rec := doTask(t, h.Delete, http.MethodDelete, "/api/tasks/"+id, "", 2, id)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = doTask(t, h.Delete, http.MethodDelete, "/api/tasks/"+id, "", 1, id)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doTask(t, h.Get, http.MethodGet, "/api/tasks/"+id, "", 1, id)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doTask(t, h.Delete, http.MethodDelete, "/api/tasks/"+id, "", 1, id)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListScopedToOwnerNewestFirst(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)
	createTask(t, h, 1, `{"title":"first"}`)
	createTask(t, h, 1, `{"title":"second"}`)
	createTask(t, h, 2, `{"title":"not yours"}`)

	rec := doTask(t, h.List, http.MethodGet, "/api/tasks", "", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tasks []*model.Task `json:"tasks"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	require.Equal(t, "second", resp.Tasks[0].Title)
	require.Equal(t, "first", resp.Tasks[1].Title)
}

func TestListProjectionParams(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)
	createTask(t, h, 1, `{"title":"a","status":"done","priority":"low"}`)
	createTask(t, h, 1, `{"title":"b","status":"todo","priority":"high"}`)
	createTask(t, h, 1, `{"title":"c","status":"todo","priority":"medium"}`)

	rec := doTask(t, h.List, http.MethodGet, "/api/tasks?status=todo&sort=priority", "", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Tasks []*model.Task `json:"tasks"`
		Count int           `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 2, resp.Count)
	require.Equal(t, "b", resp.Tasks[0].Title)
	require.Equal(t, "c", resp.Tasks[1].Title)
}

func TestStatsSummary(t *testing.T) {
	h := NewTaskHandler(newFakeTaskStore(), nil, nil)
	createTask(t, h, 1, `{"title":"a","status":"todo","priority":"high"}`)
	createTask(t, h, 1, `{"title":"b","status":"todo","priority":"low"}`)
	createTask(t, h, 1, `{"title":"c","status":"done","priority":"high"}`)
	createTask(t, h, 2, `{"title":"other owner","priority":"high"}`)

	rec := doTask(t, h.Stats, http.MethodGet, "/api/tasks/stats/summary", "", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Stats struct {
			Total        int `json:"total"`
			Todo         int `json:"todo"`
			InProgress   int `json:"inProgress"`
			Done         int `json:"done"`
			HighPriority int `json:"highPriority"`
		} `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.Stats.Total)
	require.Equal(t, 2, resp.Stats.Todo)
	require.Equal(t, 0, resp.Stats.InProgress)
	require.Equal(t, 1, resp.Stats.Done)
	require.Equal(t, 2, resp.Stats.HighPriority)
}

func TestMutationsPublishActivity(t *testing.T) {
	pub := chanPublisher{ch: make(chan queue.TaskActivityEvent, 3)}
	h := NewTaskHandler(newFakeTaskStore(), pub, nil)

	created := createTask(t, h, 1, `{"title":"tracked"}`)
	id := fmt.Sprint(created.ID)
	doTask(t, h.Update, http.MethodPut, "/api/tasks/"+id, `{"status":"done"}`, 1, id)
	doTask(t, h.Delete, http.MethodDelete, "/api/tasks/"+id, "", 1, id)

	types := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case ev := <-pub.ch:
			require.NotEmpty(t, ev.EventID)
			require.Equal(t, created.ID, ev.TaskID)
			require.Equal(t, uint64(1), ev.OwnerID)
			types[ev.Type] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for activity event")
		}
	}
	require.True(t, types[queue.TaskCreated] && types[queue.TaskUpdated] && types[queue.TaskDeleted])
}
