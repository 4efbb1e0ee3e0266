package model

import (
	"strings"
	"time"
)

type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Completed   bool      `json:"completed"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	CategoryID  *string   `json:"categoryId"`
	PriorityID  *string   `json:"priorityId"`
	DueDate     *string   `json:"dueDate,omitempty"`
}

type Category struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type Priority struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
	Level int    `json:"level"`
}

type Comment struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type UserProfile struct {
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

// SortDirection orders tasks by due date. SortNone falls back to newest first.
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

func (d SortDirection) Next() SortDirection {
	switch d {
	case SortNone:
		return SortAsc
	case SortAsc:
		return SortDesc
	default:
		return SortNone
	}
}

func (d SortDirection) Label() string {
	switch d {
	case SortAsc:
		return "Due Date ↑"
	case SortDesc:
		return "Due Date ↓"
	default:
		return "Due Date"
	}
}

func ParseSortDirection(value string) SortDirection {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "asc":
		return SortAsc
	case "desc":
		return SortDesc
	default:
		return SortNone
	}
}

// DefaultPriorities are seeded for every new account.
func DefaultPriorities() []Priority {
	return []Priority{
		{Name: "High", Color: "#ef4444", Level: 1},
		{Name: "Medium", Color: "#f59e0b", Level: 2},
		{Name: "Low", Color: "#22c55e", Level: 3},
	}
}

func StringPtr(value string) *string {
	return &value
}

func StringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
