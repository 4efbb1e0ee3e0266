package tasks

import (
	"context"
	"fmt"

	"github.com/Joseda-hg/taskdeck/internal/db"
	"github.com/Joseda-hg/taskdeck/internal/model"
)

const (
	tasksCollection      = "tasks"
	categoriesCollection = "categories"
	prioritiesCollection = "priorities"
	commentsCollection   = "comments"
)

// Backend is the slice of the document database used by a workspace. *db.Client
// implements it.
type Backend interface {
	Collection(name string) string
	RunQuery(ctx context.Context, collection string, preds ...db.Predicate) ([]db.Document, error)
	Subscribe(collection string, preds []db.Predicate, onData func([]db.Document), onError func(error)) (cancel func())
	Get(ctx context.Context, ref db.Ref) (db.Document, error)
	Create(ctx context.Context, collection string, fields db.Fields) (db.Ref, error)
	Update(ctx context.Context, ref db.Ref, fields db.Fields) error
	Delete(ctx context.Context, ref db.Ref) error
	Batch() *db.Batch
}

func decodeTasks(docs []db.Document) ([]model.Task, error) {
	tasks := make([]model.Task, 0, len(docs))
	for _, doc := range docs {
		var task model.Task
		if err := doc.Decode(&task); err != nil {
			return nil, fmt.Errorf("decode task: %w", err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func decodeCategories(docs []db.Document) ([]model.Category, error) {
	categories := make([]model.Category, 0, len(docs))
	for _, doc := range docs {
		var category model.Category
		if err := doc.Decode(&category); err != nil {
			return nil, fmt.Errorf("decode category: %w", err)
		}
		categories = append(categories, category)
	}
	return categories, nil
}

func decodePriorities(docs []db.Document) ([]model.Priority, error) {
	priorities := make([]model.Priority, 0, len(docs))
	for _, doc := range docs {
		var priority model.Priority
		if err := doc.Decode(&priority); err != nil {
			return nil, fmt.Errorf("decode priority: %w", err)
		}
		priorities = append(priorities, priority)
	}
	return priorities, nil
}

func decodeComments(docs []db.Document) ([]model.Comment, error) {
	comments := make([]model.Comment, 0, len(docs))
	for _, doc := range docs {
		var comment model.Comment
		if err := doc.Decode(&comment); err != nil {
			return nil, fmt.Errorf("decode comment: %w", err)
		}
		comments = append(comments, comment)
	}
	return comments, nil
}
