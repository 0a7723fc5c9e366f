package projection

import "github.com/davitm/taskboard/internal/model"

// Stats summarizes one owner's current tasks. Purely derived, never
// persisted.
type Stats struct {
	Total        int `json:"total"`
	Todo         int `json:"todo"`
	InProgress   int `json:"inProgress"`
	Done         int `json:"done"`
	HighPriority int `json:"highPriority"`
}

// Summarize counts tasks per status plus the high-priority total.
func Summarize(tasks []*model.Task) Stats {
	s := Stats{Total: len(tasks)}
	for _, t := range tasks {
		switch t.Status {
		case model.StatusTodo:
			s.Todo++
		case model.StatusInProgress:
			s.InProgress++
		case model.StatusDone:
			s.Done++
		}
		if t.Priority == model.PriorityHigh {
			s.HighPriority++
		}
	}
	return s
}
