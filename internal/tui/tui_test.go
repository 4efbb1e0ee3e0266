package tui

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Joseda-hg/taskdeck/internal/db"
	"github.com/Joseda-hg/taskdeck/internal/model"
	"github.com/Joseda-hg/taskdeck/internal/notify"
	"github.com/Joseda-hg/taskdeck/internal/tasks"
)

func TestAddTaskThroughPrompt(t *testing.T) {
	ui, _ := newTestUI(t)

	if err := ui.add(nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if ui.prompt == nil || ui.prompt.title != "New Task" {
		t.Fatalf("expected new task prompt, got %+v", ui.prompt)
	}
	if err := ui.cycleSort(nil, nil); err != nil {
		t.Fatalf("cycle sort: %v", err)
	}
	if ui.ws.Controller.State().Sort != model.SortNone {
		t.Fatalf("expected keys to be ignored while the prompt is open")
	}

	ui.applyPrompt("  Write report ")
	if ui.prompt != nil {
		t.Fatalf("expected prompt to close")
	}
	state := waitState(t, ui, func(s tasks.State) bool { return s.TotalTasks == 1 })
	if state.Tasks[0].Title != "Write report" {
		t.Fatalf("expected trimmed title, got %q", state.Tasks[0].Title)
	}
}

func TestToggleCompleteMovesSelectedTask(t *testing.T) {
	ui, client := newTestUI(t)
	seedTasks(t, client, "first", "second")
	waitState(t, ui, func(s tasks.State) bool { return len(s.Tasks) == 2 })

	ui.focus = viewActive
	ui.selectedActive = 0
	selected, ok := ui.selectedTask()
	if !ok {
		t.Fatalf("expected a selected task")
	}
	if err := ui.toggleComplete(nil, nil); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	state := waitState(t, ui, func(s tasks.State) bool { return len(s.CompletedTasks) == 1 && s.TotalTasks == 1 })
	if state.CompletedTasks[0].ID != selected.ID {
		t.Fatalf("expected %s to be completed, got %s", selected.ID, state.CompletedTasks[0].ID)
	}

	ui.focus = viewCompleted
	ui.selectedCompleted = 0
	if err := ui.toggleComplete(nil, nil); err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	waitState(t, ui, func(s tasks.State) bool { return len(s.CompletedTasks) == 0 && s.TotalTasks == 2 })
}

func TestSelectCategoryFromPane(t *testing.T) {
	ui, _ := newTestUI(t)
	id, err := ui.ws.Service.CreateCategory(context.Background(), "Work", "")
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	eventually(t, func() bool { return len(ui.ws.Catalog.Categories()) == 1 })

	ui.ws.Controller.SetNameFilter("report")
	ui.focus = viewCategories
	if err := ui.moveDown(nil, nil); err != nil {
		t.Fatalf("move: %v", err)
	}
	if err := ui.selectCategory(nil, nil); err != nil {
		t.Fatalf("select: %v", err)
	}
	state := ui.ws.Controller.State()
	if model.StringValue(state.SelectedCategory) != id {
		t.Fatalf("expected category %s selected, got %v", id, state.SelectedCategory)
	}
	if state.NameFilter != "" {
		t.Fatalf("expected selecting a category to clear the filter")
	}

	ui.selectedCategory = 0
	if err := ui.selectCategory(nil, nil); err != nil {
		t.Fatalf("select all: %v", err)
	}
	if ui.ws.Controller.State().SelectedCategory != nil {
		t.Fatalf("expected the first entry to clear the selection")
	}
}

func TestFilterAndClearFilters(t *testing.T) {
	ui, _ := newTestUI(t)

	if err := ui.startFilter(nil, nil); err != nil {
		t.Fatalf("start filter: %v", err)
	}
	ui.applyPrompt("groceries ")
	if got := ui.ws.Controller.State().NameFilter; got != "groceries " {
		t.Fatalf("expected filter to be set, got %q", got)
	}

	if err := ui.cycleSort(nil, nil); err != nil {
		t.Fatalf("cycle sort: %v", err)
	}
	if ui.ws.Controller.State().Sort != model.SortAsc {
		t.Fatalf("expected ascending sort")
	}

	if err := ui.clearFilters(nil, nil); err != nil {
		t.Fatalf("clear: %v", err)
	}
	state := ui.ws.Controller.State()
	if state.NameFilter != "" || state.Sort != model.SortNone || state.SelectedPriority != nil {
		t.Fatalf("expected filters to be cleared, got %+v", state)
	}
}

func TestPagingKeys(t *testing.T) {
	ui, client := newTestUI(t)
	titles := make([]string, 0, 12)
	for i := 0; i < 12; i++ {
		titles = append(titles, "task")
	}
	seedTasks(t, client, titles...)
	waitState(t, ui, func(s tasks.State) bool { return s.TotalTasks == 12 && len(s.Tasks) == 10 })

	if err := ui.prevPage(nil, nil); err != nil {
		t.Fatalf("prev: %v", err)
	}
	if ui.ws.Controller.State().CurrentPage != 1 {
		t.Fatalf("expected page 0 to be rejected")
	}

	ui.selectedActive = 4
	if err := ui.nextPage(nil, nil); err != nil {
		t.Fatalf("next: %v", err)
	}
	if ui.selectedActive != 0 {
		t.Fatalf("expected selection reset on page change")
	}
	state := waitState(t, ui, func(s tasks.State) bool { return s.CurrentPage == 2 && len(s.Tasks) == 2 })
	if got := pageLine(state); got != "Showing 11-12 of 12 tasks | Page 2 of 2 | 10 per page" {
		t.Fatalf("unexpected page line %q", got)
	}

	if err := ui.nextPage(nil, nil); err != nil {
		t.Fatalf("next past end: %v", err)
	}
	if ui.ws.Controller.State().CurrentPage != 2 {
		t.Fatalf("expected page 3 to be rejected")
	}

	if err := ui.cyclePageSize(nil, nil); err != nil {
		t.Fatalf("page size: %v", err)
	}
	state = ui.ws.Controller.State()
	if state.TasksPerPage != 15 || state.CurrentPage != 1 {
		t.Fatalf("expected 15 per page on page 1, got %d on %d", state.TasksPerPage, state.CurrentPage)
	}
}

func TestEditTaskForm(t *testing.T) {
	ui, client := newTestUI(t)
	seedTasks(t, client, "draft")
	waitState(t, ui, func(s tasks.State) bool { return len(s.Tasks) == 1 })
	eventually(t, func() bool { return len(ui.ws.Catalog.Priorities()) == 3 })

	if err := ui.editTask(nil, nil); err != nil {
		t.Fatalf("edit: %v", err)
	}
	if ui.form == nil {
		t.Fatalf("expected form to open")
	}
	fields := ui.form.fields
	fields[fieldTitle].Value = "final"
	fields[fieldDue].Value = "someday"
	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ui.form == nil {
		t.Fatalf("expected form to stay open on a validation error")
	}

	fields[fieldDue].Value = "2026-03-01"
	fields[fieldPriority].Value = cycleOption(fields[fieldPriority].Options, fields[fieldPriority].Value, 1)
	if err := ui.submitForm(nil, nil); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ui.form != nil {
		t.Fatalf("expected form to close")
	}
	state := waitState(t, ui, func(s tasks.State) bool { return len(s.Tasks) == 1 && s.Tasks[0].Title == "final" })
	if model.StringValue(state.Tasks[0].DueDate) != "2026-03-01" {
		t.Fatalf("expected due date to be saved, got %v", state.Tasks[0].DueDate)
	}
}

func TestCycleOption(t *testing.T) {
	options := []string{"", "a", "b"}
	cases := []struct {
		current string
		delta   int
		want    string
	}{
		{"", 1, "a"},
		{"b", 1, ""},
		{"", -1, "b"},
		{"missing", 1, ""},
	}
	for _, tc := range cases {
		if got := cycleOption(options, tc.current, tc.delta); got != tc.want {
			t.Fatalf("cycleOption(%q, %d) = %q, want %q", tc.current, tc.delta, got, tc.want)
		}
	}
	if got := cycleOption(nil, "x", 1); got != "x" {
		t.Fatalf("expected value to be kept without options, got %q", got)
	}
}

func TestNextPriority(t *testing.T) {
	priorities := []model.Priority{{ID: "high"}, {ID: "low"}}
	got := nextPriority(priorities, nil)
	if model.StringValue(got) != "high" {
		t.Fatalf("expected high, got %v", got)
	}
	got = nextPriority(priorities, got)
	if model.StringValue(got) != "low" {
		t.Fatalf("expected low, got %v", got)
	}
	if nextPriority(priorities, got) != nil {
		t.Fatalf("expected cycle back to any priority")
	}
	if nextPriority(nil, nil) != nil {
		t.Fatalf("expected nil without priorities")
	}
}

func TestNextPageSize(t *testing.T) {
	if got := nextPageSize(5); got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := nextPageSize(20); got != 5 {
		t.Fatalf("expected wrap to 5, got %d", got)
	}
	if got := nextPageSize(7); got != 10 {
		t.Fatalf("expected default for unknown size, got %d", got)
	}
}

func TestComputeLayout(t *testing.T) {
	layout := computeLayout(120, 30)
	if layout.sideWidth != 30 || layout.activeHeight != 18 {
		t.Fatalf("unexpected layout %+v", layout)
	}
	small := computeLayout(10, 2)
	if small.sideWidth != 18 || small.activeHeight != 4 {
		t.Fatalf("unexpected small layout %+v", small)
	}
}

func TestToastLine(t *testing.T) {
	if toastLine(nil) != "" {
		t.Fatalf("expected empty line without toasts")
	}
	line := toastLine([]notify.Toast{
		{Title: "Success", Message: "Task created successfully"},
		{Title: "Error", Message: "Error loading tasks"},
	})
	if line != "Error: Error loading tasks" {
		t.Fatalf("unexpected toast line %q", line)
	}
}

func TestCategoryEntries(t *testing.T) {
	entries := categoryEntries([]model.Category{{ID: "w", Name: "Work"}})
	if len(entries) != 2 || entries[0].ID != nil || entries[0].Name != allCategoriesLabel {
		t.Fatalf("unexpected entries %+v", entries)
	}
	if !sameID(entries[1].ID, model.StringPtr("w")) || sameID(entries[1].ID, nil) {
		t.Fatalf("unexpected id comparison")
	}
}

func TestClampIndex(t *testing.T) {
	cases := []struct{ index, length, want int }{
		{0, 0, 0},
		{5, 3, 2},
		{-1, 3, 0},
		{1, 3, 1},
	}
	for _, tc := range cases {
		if got := clampIndex(tc.index, tc.length); got != tc.want {
			t.Fatalf("clampIndex(%d, %d) = %d, want %d", tc.index, tc.length, got, tc.want)
		}
	}
}

func newTestUI(t *testing.T) (*UI, *db.Client) {
	t.Helper()
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	client := store.Client("ada@example.com")
	seedPriorities(t, client)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reporter := notify.NewReporter(logger, notify.NewQueue(time.Minute))
	ws := tasks.OpenWorkspace(client, reporter, tasks.Options{PageSize: 10, Logger: logger})
	t.Cleanup(func() {
		ws.Close()
		_ = store.Close()
	})
	return New(context.Background(), ws, "ada@example.com"), client
}

func seedPriorities(t *testing.T, client *db.Client) {
	t.Helper()
	for _, priority := range model.DefaultPriorities() {
		_, err := client.Create(context.Background(), client.Collection("priorities"), db.Fields{
			"name":  priority.Name,
			"color": priority.Color,
			"level": priority.Level,
		})
		if err != nil {
			t.Fatalf("seed priority: %v", err)
		}
	}
}

func seedTasks(t *testing.T, client *db.Client, titles ...string) {
	t.Helper()
	for _, title := range titles {
		_, err := client.Create(context.Background(), client.Collection("tasks"), db.Fields{
			"title":      title,
			"completed":  false,
			"createdAt":  db.ServerTimestamp,
			"categoryId": nil,
			"priorityId": nil,
			"dueDate":    nil,
		})
		if err != nil {
			t.Fatalf("seed task: %v", err)
		}
	}
}

func waitState(t *testing.T, ui *UI, ok func(tasks.State) bool) tasks.State {
	t.Helper()
	var state tasks.State
	eventually(t, func() bool {
		state = ui.ws.Controller.State()
		return !state.Loading && ok(state)
	})
	return state
}

func eventually(t *testing.T, ok func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if ok() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
