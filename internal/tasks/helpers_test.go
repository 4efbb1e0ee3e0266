package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/Joseda-hg/taskdeck/internal/db"
	"github.com/Joseda-hg/taskdeck/internal/model"
	"github.com/Joseda-hg/taskdeck/internal/notify"
	"github.com/Joseda-hg/taskdeck/internal/paging"
)

type fixture struct {
	store     *db.Store
	client    *db.Client
	workspace *Workspace
	toasts    *notify.Queue
}

func newFixture(t *testing.T, pageSize int) *fixture {
	t.Helper()
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	client := store.Client("ada@example.com")
	return newFixtureWithBackend(t, store, client, client, pageSize)
}

func newFixtureWithBackend(t *testing.T, store *db.Store, client *db.Client, backend Backend, pageSize int) *fixture {
	t.Helper()
	return openFixture(t, store, client, backend, Options{PageSize: pageSize})
}

// newFixtureWithPaginator wraps the default cursor paginator of the user's client.
func newFixtureWithPaginator(t *testing.T, pageSize int, wrap func(paging.Paginator) paging.Paginator) *fixture {
	t.Helper()
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	client := store.Client("ada@example.com")
	return openFixture(t, store, client, client, Options{
		PageSize:  pageSize,
		Paginator: wrap(paging.NewCursorPaginator(client)),
	})
}

func openFixture(t *testing.T, store *db.Store, client *db.Client, backend Backend, opts Options) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	toasts := notify.NewQueue(time.Minute)
	reporter := notify.NewReporter(logger, toasts)
	opts.Logger = logger
	workspace := OpenWorkspace(backend, reporter, opts)
	t.Cleanup(func() {
		workspace.Close()
		_ = store.Close()
	})
	return &fixture{store: store, client: client, workspace: workspace, toasts: toasts}
}

func (f *fixture) controller() *Controller {
	return f.workspace.Controller
}

type taskSeed struct {
	title     string
	completed bool
	category  string
	priority  string
	dueDate   string
}

func (f *fixture) seed(t *testing.T, seeds ...taskSeed) []string {
	t.Helper()
	ids := make([]string, 0, len(seeds))
	for _, seed := range seeds {
		fields := db.Fields{
			"title":      seed.title,
			"completed":  seed.completed,
			"createdAt":  db.ServerTimestamp,
			"categoryId": nil,
			"priorityId": nil,
			"dueDate":    nil,
		}
		if seed.category != "" {
			fields["categoryId"] = seed.category
		}
		if seed.priority != "" {
			fields["priorityId"] = seed.priority
		}
		if seed.dueDate != "" {
			fields["dueDate"] = seed.dueDate
		}
		ref, err := f.client.Create(context.Background(), f.client.Collection(tasksCollection), fields)
		if err != nil {
			t.Fatalf("seed task %q: %v", seed.title, err)
		}
		ids = append(ids, ref.ID)
	}
	return ids
}

func (f *fixture) seedActive(t *testing.T, n int) []string {
	t.Helper()
	seeds := make([]taskSeed, 0, n)
	for i := 1; i <= n; i++ {
		seeds = append(seeds, taskSeed{title: fmt.Sprintf("Task %02d", i)})
	}
	return f.seed(t, seeds...)
}

func (f *fixture) seedPriorities(t *testing.T) map[string]string {
	t.Helper()
	ids := map[string]string{}
	for _, priority := range model.DefaultPriorities() {
		ref, err := f.client.Create(context.Background(), f.client.Collection(prioritiesCollection), db.Fields{
			"name":  priority.Name,
			"color": priority.Color,
			"level": priority.Level,
		})
		if err != nil {
			t.Fatalf("seed priority: %v", err)
		}
		ids[priority.Name] = ref.ID
	}
	eventually(t, "priorities loaded", func() bool { return len(f.workspace.Catalog.Priorities()) == 3 })
	return ids
}

// waitState polls the controller until cond holds.
func (f *fixture) waitState(t *testing.T, desc string, cond func(State) bool) State {
	t.Helper()
	var state State
	eventually(t, desc, func() bool {
		state = f.controller().State()
		return !state.Loading && cond(state)
	})
	return state
}

func eventually(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func taskTitles(tasks []model.Task) []string {
	titles := make([]string, 0, len(tasks))
	for _, task := range tasks {
		titles = append(titles, task.Title)
	}
	return titles
}

func (f *fixture) errorToasts() []notify.Toast {
	var errs []notify.Toast
	for _, toast := range f.toasts.List() {
		if toast.Level == notify.LevelError {
			errs = append(errs, toast)
		}
	}
	return errs
}
