package projection

import (
	"fmt"
	"sort"
	"strings"

	"solis/internal/model"
)

type Mode string

const (
	Kanban   Mode = "kanban"
	List     Mode = "list"
	Calendar Mode = "calendar"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", Kanban:
		return Kanban, nil
	case List, Calendar:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown view mode %q", s)
}

// Filters are ANDed; empty fields do not filter.
type Filters struct {
	Status     string `form:"status"`
	Priority   string `form:"priority"`
	Department string `form:"department"`
	Assignee   string `form:"assignee" binding:"omitempty,uuid"`
	Search     string `form:"q"`
}

type Column struct {
	Status string       `json:"status"`
	Tasks  []model.Task `json:"tasks"`
}

// View is the grouped result for one mode. Only the field matching Mode is set.
type View struct {
	Mode     Mode                    `json:"mode"`
	Total    int                     `json:"total"`
	Columns  []Column                `json:"columns,omitempty"`
	Tasks    []model.Task            `json:"tasks,omitempty"`
	Calendar map[string][]model.Task `json:"calendar,omitempty"`
}

// Project filters tasks and groups them for mode. It does not modify tasks.
func Project(tasks []model.Task, f Filters, mode Mode) View {
	matched := Filter(tasks, f)
	view := View{Mode: mode, Total: len(matched)}

	switch mode {
	case List:
		sortByStatusThenOrder(matched)
		view.Tasks = matched
	case Calendar:
		view.Calendar = make(map[string][]model.Task)
		sortByStatusThenOrder(matched)
		for _, t := range matched {
			if t.DueDate == nil {
				continue
			}
			day := t.DueDate.String()
			view.Calendar[day] = append(view.Calendar[day], t)
		}
	default:
		view.Mode = Kanban
		view.Columns = make([]Column, len(model.Statuses))
		for i, status := range model.Statuses {
			view.Columns[i] = Column{Status: status, Tasks: []model.Task{}}
		}
		for _, t := range matched {
			if i := statusRank(t.Status); i < len(model.Statuses) {
				view.Columns[i].Tasks = append(view.Columns[i].Tasks, t)
			}
		}
		for i := range view.Columns {
			col := view.Columns[i].Tasks
			sort.SliceStable(col, func(a, b int) bool { return col[a].Order < col[b].Order })
		}
	}
	return view
}

// Filter returns the tasks matching every non-empty filter, in input order.
func Filter(tasks []model.Task, f Filters) []model.Task {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if f.Status != "" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && t.Priority != f.Priority {
			continue
		}
		if f.Department != "" && t.Department != f.Department {
			continue
		}
		if f.Assignee != "" && !hasAssignee(t, f.Assignee) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		out = append(out, t)
	}
	return out
}

func hasAssignee(t model.Task, id string) bool {
	for _, a := range t.Assignees {
		if a.ID == id {
			return true
		}
	}
	return false
}

func statusRank(status string) int {
	for i, s := range model.Statuses {
		if s == status {
			return i
		}
	}
	return len(model.Statuses)
}

func sortByStatusThenOrder(tasks []model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool { return BoardOrder(tasks[i], tasks[j]) })
}

// BoardOrder sorts by workflow status, then by position within the status.
func BoardOrder(a, b model.Task) bool {
	ra, rb := statusRank(a.Status), statusRank(b.Status)
	if ra != rb {
		return ra < rb
	}
	return a.Order < b.Order
}
