package tui

import (
	"fmt"
	"strings"

	"github.com/Joseda-hg/taskdeck/internal/model"
	"github.com/Joseda-hg/taskdeck/internal/notify"
	"github.com/Joseda-hg/taskdeck/internal/paging"
	"github.com/Joseda-hg/taskdeck/internal/tasks"
)

const allCategoriesLabel = "All"

type categoryEntry struct {
	ID   *string
	Name string
}

// categoryEntries lists the categories pane. The first entry clears the selection.
func categoryEntries(categories []model.Category) []categoryEntry {
	entries := make([]categoryEntry, 0, len(categories)+1)
	entries = append(entries, categoryEntry{Name: allCategoriesLabel})
	for _, category := range categories {
		entries = append(entries, categoryEntry{ID: model.StringPtr(category.ID), Name: category.Name})
	}
	return entries
}

func sameID(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func formatTaskSummary(task model.Task, catalog *tasks.Catalog) string {
	check := "[ ]"
	if task.Completed {
		check = "[x]"
	}
	parts := []string{fmt.Sprintf("%s %s", check, task.Title), catalog.CategoryName(task.CategoryID)}
	if priority, ok := catalog.Priority(task.PriorityID); ok {
		parts = append(parts, priority.Name)
	}
	if task.DueDate != nil {
		parts = append(parts, "due "+*task.DueDate)
	}
	return strings.Join(parts, " | ")
}

func priorityLabel(catalog *tasks.Catalog, id *string) string {
	if priority, ok := catalog.Priority(id); ok {
		return priority.Name
	}
	return "any"
}

func categoryLabel(catalog *tasks.Catalog, id *string) string {
	if id == nil {
		return allCategoriesLabel
	}
	return catalog.CategoryName(id)
}

func headerLine(state tasks.State, catalog *tasks.Catalog) string {
	filter := strings.TrimSpace(state.NameFilter)
	if filter == "" {
		filter = "type / to filter"
	}
	return fmt.Sprintf("Filter: %s | Sort: %s | Priority: %s | Category: %s",
		filter, state.Sort.Label(), priorityLabel(catalog, state.SelectedPriority), categoryLabel(catalog, state.SelectedCategory))
}

func pageLine(state tasks.State) string {
	line := fmt.Sprintf("%s | %s | %d per page",
		state.Summary(), paging.PageLabel(state.CurrentPage, state.TasksPerPage, state.TotalTasks), state.TasksPerPage)
	if state.Loading {
		line += " | loading..."
	}
	return line
}

// toastLine shows the newest toast.
func toastLine(toasts []notify.Toast) string {
	if len(toasts) == 0 {
		return ""
	}
	toast := toasts[len(toasts)-1]
	return fmt.Sprintf("%s: %s", toast.Title, toast.Message)
}

// nextPriority cycles the priority filter through none and then each priority in level order.
func nextPriority(priorities []model.Priority, current *string) *string {
	if len(priorities) == 0 {
		return nil
	}
	if current == nil {
		return model.StringPtr(priorities[0].ID)
	}
	for i, priority := range priorities {
		if priority.ID != *current {
			continue
		}
		if i == len(priorities)-1 {
			return nil
		}
		return model.StringPtr(priorities[i+1].ID)
	}
	return nil
}

func nextPageSize(current int) int {
	for i, size := range paging.PageSizes {
		if size == current {
			return paging.PageSizes[(i+1)%len(paging.PageSizes)]
		}
	}
	return paging.DefaultPageSize
}
