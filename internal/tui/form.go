package tui

import (
	"github.com/Joseda-hg/taskdeck/internal/model"
	"github.com/Joseda-hg/taskdeck/internal/tasks"
)

type formField struct {
	Label string
	Value string
	// Options makes the field a picker cycled with space and the arrow keys.
	Options []string
}

const (
	fieldTitle = iota
	fieldDescription
	fieldCategory
	fieldPriority
	fieldDue
)

func buildFormFields(task model.Task, categories []model.Category, priorities []model.Priority) []formField {
	categoryOptions := []string{""}
	for _, category := range categories {
		categoryOptions = append(categoryOptions, category.ID)
	}
	priorityOptions := make([]string, 0, len(priorities))
	for _, priority := range priorities {
		priorityOptions = append(priorityOptions, priority.ID)
	}

	return []formField{
		{Label: "Title", Value: task.Title},
		{Label: "Description", Value: task.Description},
		{Label: "Category (space/←→)", Value: model.StringValue(task.CategoryID), Options: categoryOptions},
		{Label: "Priority (space/←→)", Value: model.StringValue(task.PriorityID), Options: priorityOptions},
		{Label: "Due (YYYY-MM-DD)", Value: model.StringValue(task.DueDate)},
	}
}

func parseFormFields(fields []formField) tasks.TaskForm {
	return tasks.TaskForm{
		Title:       fields[fieldTitle].Value,
		Description: fields[fieldDescription].Value,
		CategoryID:  fields[fieldCategory].Value,
		PriorityID:  fields[fieldPriority].Value,
		DueDate:     fields[fieldDue].Value,
	}
}

// displayValue shows picker fields by name.
func displayValue(field formField, index int, catalog *tasks.Catalog) string {
	switch index {
	case fieldCategory:
		if field.Value == "" {
			return "none"
		}
		return catalog.CategoryName(&field.Value)
	case fieldPriority:
		if field.Value == "" {
			return "none"
		}
		return priorityLabel(catalog, &field.Value)
	}
	return field.Value
}

func cycleOption(options []string, current string, delta int) string {
	if len(options) == 0 {
		return current
	}
	index := -1
	for i, option := range options {
		if option == current {
			index = i
			break
		}
	}
	if index < 0 {
		return options[0]
	}
	index = (index + delta) % len(options)
	if index < 0 {
		index += len(options)
	}
	return options[index]
}
