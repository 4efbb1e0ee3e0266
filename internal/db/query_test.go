package db

import (
	"context"
	"fmt"
	"testing"
)

func seedTasks(t *testing.T, client *Client, n int) []Ref {
	t.Helper()
	refs := make([]Ref, 0, n)
	for i := 1; i <= n; i++ {
		fields := Fields{
			"title":     fmt.Sprintf("Task %02d", i),
			"completed": i%3 == 0,
			"createdAt": ServerTimestamp,
		}
		if i%2 == 0 {
			fields["dueDate"] = fmt.Sprintf("2026-01-%02d", 30-i)
		} else {
			fields["dueDate"] = nil
		}
		ref, err := client.Create(context.Background(), client.Collection("tasks"), fields)
		if err != nil {
			t.Fatalf("create task %d: %v", i, err)
		}
		refs = append(refs, ref)
	}
	return refs
}

func titles(docs []Document) []string {
	result := make([]string, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.Data["title"].(string))
	}
	return result
}

func TestQueryFiltersAndOrders(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	client := store.Client("ada@example.com")
	seedTasks(t, client, 6)
	ctx := context.Background()
	tasks := client.Collection("tasks")

	t.Run("equality on bool", func(t *testing.T) {
		docs, err := client.RunQuery(ctx, tasks, Where("completed", OpEqual, true), OrderBy("title", Asc))
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		got := fmt.Sprint(titles(docs))
		if got != "[Task 03 Task 06]" {
			t.Fatalf("unexpected completed tasks %s", got)
		}
	})

	t.Run("newest first", func(t *testing.T) {
		docs, err := client.RunQuery(ctx, tasks, OrderBy("createdAt", Desc), Limit(2))
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		got := fmt.Sprint(titles(docs))
		if got != "[Task 06 Task 05]" {
			t.Fatalf("unexpected order %s", got)
		}
	})

	t.Run("not null excludes missing due dates", func(t *testing.T) {
		docs, err := client.RunQuery(ctx, tasks,
			Where("dueDate", OpNotEqual, nil),
			OrderBy("dueDate", Asc),
			OrderBy("createdAt", Desc),
		)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		got := fmt.Sprint(titles(docs))
		if got != "[Task 06 Task 04 Task 02]" {
			t.Fatalf("unexpected due date order %s", got)
		}
	})

	t.Run("equality on null", func(t *testing.T) {
		docs, err := client.RunQuery(ctx, tasks, Where("dueDate", OpEqual, nil))
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		if len(docs) != 3 {
			t.Fatalf("expected 3 tasks without due date, got %d", len(docs))
		}
	})
}

func TestQueryStartAfter(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	client := store.Client("ada@example.com")
	seedTasks(t, client, 7)
	ctx := context.Background()
	tasks := client.Collection("tasks")
	order := OrderBy("createdAt", Desc)

	skip, err := client.RunQuery(ctx, tasks, order, Limit(3))
	if err != nil {
		t.Fatalf("skip query: %v", err)
	}
	cursor := skip[len(skip)-1]

	page, err := client.RunQuery(ctx, tasks, order, StartAfter(cursor), Limit(3))
	if err != nil {
		t.Fatalf("page query: %v", err)
	}
	if got := fmt.Sprint(titles(page)); got != "[Task 04 Task 03 Task 02]" {
		t.Fatalf("unexpected page %s", got)
	}

	if err := client.Delete(ctx, cursor.Ref); err != nil {
		t.Fatalf("delete cursor: %v", err)
	}
	page, err = client.RunQuery(ctx, tasks, order, StartAfter(cursor), Limit(3))
	if err != nil {
		t.Fatalf("page query after delete: %v", err)
	}
	if got := fmt.Sprint(titles(page)); got != "[Task 04 Task 03 Task 02]" {
		t.Fatalf("expected cursor position to survive delete, got %s", got)
	}
}

func TestQueryIndexPrecondition(t *testing.T) {
	store, cleanup := newTestStore(t)
	defer cleanup()

	client := store.Client("ada@example.com")
	tasks := client.Collection("tasks")

	_, err := client.RunQuery(context.Background(), tasks,
		OrderBy("createdAt", Desc),
		Where("dueDate", OpNotEqual, nil),
	)
	if !IsCode(err, CodeFailedPrecondition) {
		t.Fatalf("expected failed-precondition, got %v", err)
	}

	_, err = client.RunQuery(context.Background(), tasks, Where("title", OpLess, nil))
	if !IsCode(err, CodeInvalidArgument) {
		t.Fatalf("expected invalid-argument, got %v", err)
	}
}

func TestCompareValues(t *testing.T) {
	cases := []struct {
		a, b any
		want int
	}{
		{nil, "a", -1},
		{float64(2), "1", -1},
		{"b", "a", 1},
		{true, float64(1), 0},
		{float64(3), float64(2), 1},
	}
	for _, tc := range cases {
		if got := compareValues(tc.a, tc.b); got != tc.want {
			t.Fatalf("compareValues(%v, %v) = %d, want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
