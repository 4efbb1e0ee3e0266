package tasks

import (
	"context"
	"sort"
	"testing"

	"github.com/matryer/is"

	"github.com/Joseda-hg/taskdeck/internal/db"
	"github.com/Joseda-hg/taskdeck/internal/model"
	"github.com/Joseda-hg/taskdeck/internal/notify"
)

func TestCreateTaskDefaults(t *testing.T) {
	is := is.New(t)
	f := newFixture(t, 10)
	priorities := f.seedPriorities(t)
	ctx := context.Background()
	service := f.workspace.Service

	_, err := service.CreateTask(ctx, "   ")
	is.Equal(notify.Classify(err), notify.KindValidation)

	work := "work"
	f.controller().SetSelectedCategory(&work)
	id, err := service.CreateTask(ctx, "  Plan sprint ")
	is.NoErr(err)

	task, err := service.Task(ctx, id)
	is.NoErr(err)
	is.Equal(task.Title, "Plan sprint")
	is.True(!task.Completed)
	is.Equal(model.StringValue(task.CategoryID), "work")
	is.Equal(model.StringValue(task.PriorityID), priorities["Low"])
	is.True(task.DueDate == nil)
	is.True(!task.CreatedAt.IsZero())

	toasts := f.toasts.List()
	is.Equal(toasts[len(toasts)-1].Message, "Task created successfully")

	state := f.waitState(t, "new task listed", func(s State) bool { return s.TotalTasks == 1 })
	is.Equal(state.Tasks[0].ID, id)
}

func TestTaskFormValidation(t *testing.T) {
	cases := []struct {
		name  string
		form  TaskForm
		field string
	}{
		{"missing title", TaskForm{Title: " ", PriorityID: "p"}, "title"},
		{"missing priority", TaskForm{Title: "x"}, "priorityId"},
		{"bad due date", TaskForm{Title: "x", PriorityID: "p", DueDate: "tomorrow"}, "dueDate"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.form.Fields()
			validation, ok := err.(*notify.ValidationError)
			if !ok || validation.Field != tc.field {
				t.Fatalf("expected validation error on %s, got %v", tc.field, err)
			}
		})
	}

	fields, err := TaskForm{Title: "x", PriorityID: "p", CategoryID: "none", DueDate: "2026-05-01"}.Fields()
	if err != nil {
		t.Fatalf("valid form: %v", err)
	}
	if fields["categoryId"] != nil || fields["dueDate"] != "2026-05-01" {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestUpdateTask(t *testing.T) {
	is := is.New(t)
	f := newFixture(t, 10)
	ids := f.seed(t, taskSeed{title: "draft", category: "work"})
	ctx := context.Background()
	service := f.workspace.Service

	err := service.UpdateTask(ctx, ids[0], TaskForm{
		Title:       "final",
		Description: "ship it",
		CategoryID:  "none",
		PriorityID:  "high",
		DueDate:     "2026-04-01",
	})
	is.NoErr(err)

	task, err := service.Task(ctx, ids[0])
	is.NoErr(err)
	is.Equal(task.Title, "final")
	is.Equal(task.Description, "ship it")
	is.True(task.CategoryID == nil)
	is.Equal(model.StringValue(task.PriorityID), "high")
	is.Equal(model.StringValue(task.DueDate), "2026-04-01")
}

func TestDeleteTaskRemovesComments(t *testing.T) {
	is := is.New(t)
	f := newFixture(t, 10)
	ids := f.seed(t, taskSeed{title: "with comments"})
	ctx := context.Background()
	service := f.workspace.Service

	_, err := service.AddComment(ctx, ids[0], "first")
	is.NoErr(err)
	_, err = service.AddComment(ctx, ids[0], "second")
	is.NoErr(err)
	_, err = service.AddComment(ctx, ids[0], " ")
	is.Equal(notify.Classify(err), notify.KindValidation)

	comments, err := service.Comments(ctx, ids[0])
	is.NoErr(err)
	is.Equal(len(comments), 2)
	is.Equal(comments[0].Text, "first")

	is.NoErr(service.DeleteTask(ctx, ids[0]))
	left, err := f.client.RunQuery(ctx, db.Doc(f.client.Collection(tasksCollection), ids[0]).Sub(commentsCollection))
	is.NoErr(err)
	is.Equal(len(left), 0)
	exists, err := f.client.Exists(ctx, db.Doc(f.client.Collection(tasksCollection), ids[0]))
	is.NoErr(err)
	is.True(!exists)
}

func TestWatchComments(t *testing.T) {
	is := is.New(t)
	f := newFixture(t, 10)
	ids := f.seed(t, taskSeed{title: "discussed"})
	ctx := context.Background()
	service := f.workspace.Service

	updates := make(chan []model.Comment, 8)
	cancel := service.WatchComments(ids[0], func(comments []model.Comment) { updates <- comments })

	is.Equal(len(<-updates), 0)
	commentID, err := service.AddComment(ctx, ids[0], "looks good")
	is.NoErr(err)
	comments := <-updates
	is.Equal(len(comments), 1)
	is.Equal(comments[0].ID, commentID)

	is.NoErr(service.DeleteComment(ctx, ids[0], commentID))
	is.Equal(len(<-updates), 0)
	cancel()
	cancel()
}

func TestDeleteCompletedIsScopedToCategory(t *testing.T) {
	is := is.New(t)
	f := newFixture(t, 10)
	f.seed(t,
		taskSeed{title: "work done", category: "work", completed: true},
		taskSeed{title: "work done too", category: "work", completed: true},
		taskSeed{title: "work open", category: "work"},
		taskSeed{title: "home done", category: "home", completed: true},
	)
	ctx := context.Background()

	work := "work"
	f.controller().SetSelectedCategory(&work)
	n, err := f.workspace.Service.DeleteCompleted(ctx)
	is.NoErr(err)
	is.Equal(n, 2)

	docs, err := f.client.RunQuery(ctx, f.client.Collection(tasksCollection), db.OrderBy("title", db.Asc))
	is.NoErr(err)
	titles := []string{}
	for _, doc := range docs {
		titles = append(titles, doc.Data["title"].(string))
	}
	is.Equal(titles, []string{"home done", "work open"})

	f.controller().SetSelectedCategory(nil)
	n, err = f.workspace.Service.DeleteCompleted(ctx)
	is.NoErr(err)
	is.Equal(n, 1)
}

func TestDeleteCategoryCascades(t *testing.T) {
	is := is.New(t)
	f := newFixture(t, 10)
	ctx := context.Background()
	service := f.workspace.Service

	workID, err := service.CreateCategory(ctx, "Work", "#3b82f6")
	is.NoErr(err)
	homeID, err := service.CreateCategory(ctx, "Home", "")
	is.NoErr(err)
	_, err = service.CreateCategory(ctx, "  ", "")
	is.Equal(notify.Classify(err), notify.KindValidation)

	ids := f.seed(t,
		taskSeed{title: "report", category: workID},
		taskSeed{title: "review", category: workID, completed: true},
		taskSeed{title: "laundry", category: homeID},
	)
	_, err = service.AddComment(ctx, ids[0], "due friday")
	is.NoErr(err)

	eventually(t, "categories loaded", func() bool { return len(f.workspace.Catalog.Categories()) == 2 })
	f.controller().SetSelectedCategory(&workID)

	is.NoErr(service.DeleteCategory(ctx, workID))
	is.True(f.controller().SelectedCategory() == nil)

	docs, err := f.client.RunQuery(ctx, f.client.Collection(tasksCollection))
	is.NoErr(err)
	is.Equal(len(docs), 1)
	is.Equal(docs[0].Data["title"], "laundry")

	comments, err := f.client.RunQuery(ctx, db.Doc(f.client.Collection(tasksCollection), ids[0]).Sub(commentsCollection))
	is.NoErr(err)
	is.Equal(len(comments), 0)

	eventually(t, "category removed", func() bool { return len(f.workspace.Catalog.Categories()) == 1 })
	is.Equal(f.workspace.Catalog.CategoryName(&workID), UncategorizedName)
	is.Equal(f.workspace.Catalog.CategoryName(&homeID), "Home")
}

func TestRenameCategory(t *testing.T) {
	is := is.New(t)
	f := newFixture(t, 10)
	ctx := context.Background()
	service := f.workspace.Service

	id, err := service.CreateCategory(ctx, "Errands", "#000000")
	is.NoErr(err)
	is.NoErr(service.RenameCategory(ctx, id, "Chores", ""))
	is.True(db.IsCode(service.RenameCategory(ctx, "missing", "x", ""), db.CodeNotFound))

	eventually(t, "renamed", func() bool { return f.workspace.Catalog.CategoryName(&id) == "Chores" })
	category, _ := f.workspace.Catalog.Category(&id)
	is.Equal(category.Color, "#000000")
}

func TestCatalogSortsPriorities(t *testing.T) {
	is := is.New(t)
	f := newFixture(t, 10)
	ids := f.seedPriorities(t)

	priorities := f.workspace.Catalog.Priorities()
	is.True(sort.SliceIsSorted(priorities, func(i, j int) bool { return priorities[i].Level < priorities[j].Level }))
	is.Equal(priorities[0].Name, "High")
	is.Equal(model.StringValue(f.workspace.Catalog.DefaultPriorityID()), ids["Low"])

	high, ok := f.workspace.Catalog.Priority(model.StringPtr(ids["High"]))
	is.True(ok)
	is.Equal(high.Color, "#ef4444")
}
