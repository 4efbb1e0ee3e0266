package paging

import (
	"context"
	"fmt"
	"testing"

	"github.com/matryer/is"

	"github.com/Joseda-hg/taskdeck/internal/db"
)

func TestWindowAndSummary(t *testing.T) {
	cases := []struct {
		page, size, total int
		summary           string
		label             string
	}{
		{1, 10, 0, "No tasks", "Page 1 of 1"},
		{1, 10, 1, "Showing 1-1 of 1 task", "Page 1 of 1"},
		{3, 10, 25, "Showing 21-25 of 25 tasks", "Page 3 of 3"},
		{2, 5, 10, "Showing 6-10 of 10 tasks", "Page 2 of 2"},
	}
	for _, tc := range cases {
		t.Run(tc.summary, func(t *testing.T) {
			is := is.New(t)
			is.Equal(Summary(tc.page, tc.size, tc.total), tc.summary)
			is.Equal(PageLabel(tc.page, tc.size, tc.total), tc.label)
		})
	}
}

func TestPageBounds(t *testing.T) {
	is := is.New(t)
	is.Equal(TotalPages(25, 10), 3)
	is.Equal(TotalPages(0, 10), 0)
	is.True(ValidPage(3, 10, 25))
	is.True(!ValidPage(4, 10, 25))
	is.True(!ValidPage(0, 10, 25))
	is.True(!ValidPage(1, 10, 0))
	is.Equal(ClampPage(4, 10, 25), 3)
	is.Equal(ClampPage(2, 10, 0), 1)
	is.True(ValidPageSize(15))
	is.True(!ValidPageSize(7))
}

func TestCursorPaginator(t *testing.T) {
	is := is.New(t)
	store, err := db.Open(":memory:")
	is.NoErr(err)
	defer store.Close()

	ctx := context.Background()
	client := store.Client("ada@example.com")
	tasks := client.Collection("tasks")
	for i := 1; i <= 25; i++ {
		_, err := client.Create(ctx, tasks, db.Fields{
			"title":     fmt.Sprintf("Task %02d", i),
			"createdAt": db.ServerTimestamp,
		})
		is.NoErr(err)
	}

	base := []db.Predicate{db.OrderBy("createdAt", db.Asc)}
	paginator := NewCursorPaginator(client)

	preds, ok, err := paginator.Page(ctx, tasks, base, 3, 10)
	is.NoErr(err)
	is.True(ok)
	docs, err := client.RunQuery(ctx, tasks, preds...)
	is.NoErr(err)
	is.Equal(len(docs), 5)
	is.Equal(docs[0].Data["title"], "Task 21")
	is.Equal(docs[4].Data["title"], "Task 25")

	_, ok, err = paginator.Page(ctx, tasks, base, 4, 10)
	is.NoErr(err)
	is.True(!ok)

	preds, ok, err = paginator.Page(ctx, tasks, base, 1, 10)
	is.NoErr(err)
	is.True(ok)
	is.Equal(db.Describe(preds), "orderBy(createdAt asc), limit(10)")
}
