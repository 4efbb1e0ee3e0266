package query

import (
	"strings"

	"github.com/Joseda-hg/taskdeck/internal/db"
	"github.com/Joseda-hg/taskdeck/internal/model"
)

type Params struct {
	Sort       model.SortDirection
	NameFilter string
	Completed  bool
	Category   *string
	Priority   *string
}

// Build returns the predicates for one task partition. The order of the clauses follows the
// index layout of the store: a due date sort must lead, equality filters follow.
func Build(params Params) []db.Predicate {
	preds := make([]db.Predicate, 0, 7)
	switch params.Sort {
	case model.SortAsc, model.SortDesc:
		preds = append(preds,
			db.Where("dueDate", db.OpNotEqual, nil),
			db.OrderBy("dueDate", direction(params.Sort)),
			db.OrderBy("createdAt", db.Desc),
		)
	default:
		preds = append(preds, db.OrderBy("createdAt", db.Desc))
	}
	if params.Category != nil {
		preds = append(preds, db.Where("categoryId", db.OpEqual, *params.Category))
	}
	if params.Priority != nil {
		preds = append(preds, db.Where("priorityId", db.OpEqual, *params.Priority))
	}
	if params.NameFilter != "" {
		preds = append(preds, db.OrderBy("title", db.Asc))
	}
	preds = append(preds, db.Where("completed", db.OpEqual, params.Completed))
	return preds
}

func direction(sort model.SortDirection) db.Direction {
	if sort == model.SortDesc {
		return db.Desc
	}
	return db.Asc
}

// MatchName reports whether title contains filter, ignoring case. The filter is used as
// given, so surrounding spaces must match too. An empty filter matches.
func MatchName(title, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(title), strings.ToLower(filter))
}

func FilterByName(tasks []model.Task, filter string) []model.Task {
	if filter == "" {
		return tasks
	}
	filtered := make([]model.Task, 0, len(tasks))
	for _, task := range tasks {
		if MatchName(task.Title, filter) {
			filtered = append(filtered, task)
		}
	}
	return filtered
}
