// Package projection computes derived, read-only views over a task
// snapshot: a filtered/searched/sorted sequence for presentation and a
// stats summary. Everything here is pure: inputs are never mutated and
// no storage is touched.
package projection

import (
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/davitm/taskboard/internal/model"
)

// Filter and sort selectors. StatusAll disables the status filter;
// SortByCreated is the default ordering (newest first).
const (
	StatusAll = "all"

	SortByPriority = "priority"
	SortByDueDate  = "dueDate"
	SortByTitle    = "title"
	SortByCreated  = "createdAt"
)

// Options selects which tasks survive the filter and how the result is
// ordered. Zero values mean "all statuses, no search, newest first".
type Options struct {
	Status string // "all" or a concrete status value
	Search string // case-insensitive substring over title and description
	SortBy string // one of the SortBy* keys
}

// priorityRank orders priorities by ascending severity rank: high
// sorts before medium before low.
var priorityRank = map[string]int{
	model.PriorityHigh:   0,
	model.PriorityMedium: 1,
	model.PriorityLow:    2,
}

// Project returns a new ordered slice of the tasks matching opts. The
// input slice and its tasks are left untouched. Sorting is stable, so
// ties keep their filtered order. Tasks with an empty title are
// excluded as a malformed-data guard.
func Project(tasks []*model.Task, opts Options) []*model.Task {
	status := opts.Status
	if status == "" {
		status = StatusAll
	}
	search := strings.ToLower(strings.TrimSpace(opts.Search))

	out := make([]*model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t == nil || t.Title == "" {
			continue
		}
		if status != StatusAll && t.Status != status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, t)
	}

	switch opts.SortBy {
	case SortByPriority:
		sort.SliceStable(out, func(i, j int) bool {
			return priorityRank[out[i].Priority] < priorityRank[out[j].Priority]
		})
	case SortByDueDate:
		// Ascending by date; tasks without a due date sort after all
		// tasks that have one.
		sort.SliceStable(out, func(i, j int) bool {
			a, b := out[i].DueDate, out[j].DueDate
			switch {
			case a == nil:
				return false
			case b == nil:
				return true
			default:
				return a.Before(*b)
			}
		})
	case SortByTitle:
		c := collate.New(language.English, collate.Loose)
		sort.SliceStable(out, func(i, j int) bool {
			return c.CompareString(out[i].Title, out[j].Title) < 0
		})
	default: // SortByCreated
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
	}
	return out
}
