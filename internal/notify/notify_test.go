package notify

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/Joseda-hg/taskdeck/internal/db"
)

func openStore(t *testing.T) *db.Store {
	t.Helper()
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestClassify(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	client := store.Client("ada@example.com")

	_, permission := client.RunQuery(ctx, "accounts")
	_, notFound := client.Get(ctx, db.Doc(client.Collection("tasks"), "missing"))
	_, precondition := client.RunQuery(ctx, client.Collection("tasks"),
		db.OrderBy("createdAt", db.Desc), db.Where("dueDate", db.OpNotEqual, nil))
	cancelledCtx, cancel := context.WithCancel(ctx)
	cancel()
	_, cancelled := client.RunQuery(cancelledCtx, client.Collection("tasks"))

	cases := []struct {
		err  error
		want Kind
	}{
		{permission, KindPermission},
		{notFound, KindNotFound},
		{precondition, KindPrecondition},
		{cancelled, KindCancelled},
		{fmt.Errorf("load: %w", context.DeadlineExceeded), KindTransient},
		{Invalid("title", "Title is required"), KindValidation},
		{&AuthError{Message: "Invalid email or password"}, KindAuth},
		{fmt.Errorf("boom"), KindUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.want.String(), func(t *testing.T) {
			is := is.New(t)
			is.Equal(Classify(tc.err), tc.want)
		})
	}
}

func TestReporter(t *testing.T) {
	is := is.New(t)
	var logs bytes.Buffer
	queue := NewQueue(time.Minute)
	defer queue.Close()
	reporter := NewReporter(slog.New(slog.NewTextHandler(&logs, nil)), queue)

	is.Equal(reporter.Report(db.ErrRevoked, "Error loading tasks"), KindPermission)
	is.Equal(len(queue.List()), 0)

	reporter.Report(fmt.Errorf("disk on fire"), "Error loading tasks")
	reporter.Report(fmt.Errorf("wrapped: %w", context.DeadlineExceeded), "Error loading task count")
	reporter.Success("Task created successfully")

	toasts := queue.List()
	is.Equal(len(toasts), 3)
	is.Equal(toasts[0].Message, "Error loading tasks")
	is.Equal(toasts[1].Message, "Network problem, please retry")
	is.Equal(toasts[2].Level, LevelSuccess)
	is.True(strings.Contains(logs.String(), "stack="))
}

func TestQueueAutoDismiss(t *testing.T) {
	is := is.New(t)
	queue := NewQueue(20 * time.Millisecond)
	defer queue.Close()

	changes := make(chan int, 8)
	cancel := queue.OnChange(func(toasts []Toast) { changes <- len(toasts) })
	defer cancel()

	queue.Push(Toast{Level: LevelSuccess, Message: "saved"})
	is.Equal(<-changes, 1)

	select {
	case n := <-changes:
		is.Equal(n, 0)
	case <-time.After(2 * time.Second):
		t.Fatalf("toast was not dismissed")
	}
	is.Equal(len(queue.List()), 0)
}

func TestQueueDrain(t *testing.T) {
	is := is.New(t)
	queue := NewQueue(time.Minute)
	defer queue.Close()

	first := queue.Push(Toast{Message: "one"})
	queue.Push(Toast{Message: "two"})
	queue.Dismiss(first)

	drained := queue.Drain()
	is.Equal(len(drained), 1)
	is.Equal(drained[0].Message, "two")
	is.Equal(len(queue.List()), 0)
}
