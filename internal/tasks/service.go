package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Joseda-hg/taskdeck/internal/db"
	"github.com/Joseda-hg/taskdeck/internal/model"
	"github.com/Joseda-hg/taskdeck/internal/notify"
	"github.com/Joseda-hg/taskdeck/internal/subscription"
)

const dueDateLayout = "2006-01-02"

// TaskForm is the editable part of a task as submitted by a frontend.
type TaskForm struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	CategoryID  string `json:"categoryId"`
	PriorityID  string `json:"priorityId"`
	DueDate     string `json:"dueDate"`
}

// Fields validates the form and returns the fields to write.
func (f TaskForm) Fields() (db.Fields, error) {
	title := strings.TrimSpace(f.Title)
	if title == "" {
		return nil, notify.Invalid("title", "Title is required")
	}
	priority := strings.TrimSpace(f.PriorityID)
	if priority == "" {
		return nil, notify.Invalid("priorityId", "Priority is required")
	}

	fields := db.Fields{
		"title":       title,
		"description": strings.TrimSpace(f.Description),
		"priorityId":  priority,
		"categoryId":  nil,
		"dueDate":     nil,
	}
	if category := strings.TrimSpace(f.CategoryID); category != "" && category != "none" {
		fields["categoryId"] = category
	}
	if due := strings.TrimSpace(f.DueDate); due != "" {
		if _, err := time.Parse(dueDateLayout, due); err != nil {
			return nil, notify.Invalid("dueDate", "Due date must be YYYY-MM-DD")
		}
		fields["dueDate"] = due
	}
	return fields, nil
}

// Service performs the writes of a workspace and reports their outcome as toasts.
type Service struct {
	backend    Backend
	controller *Controller
	catalog    *Catalog
	reporter   *notify.Reporter
	logger     *slog.Logger
}

func NewService(backend Backend, controller *Controller, catalog *Catalog, reporter *notify.Reporter, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{backend: backend, controller: controller, catalog: catalog, reporter: reporter, logger: logger}
}

func (s *Service) taskRef(id string) db.Ref {
	return db.Doc(s.backend.Collection(tasksCollection), id)
}

func (s *Service) fail(err error, message string) error {
	s.reporter.Report(err, message)
	return err
}

// CreateTask adds an active task to the selected category with the default priority.
func (s *Service) CreateTask(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", s.fail(notify.Invalid("title", "Title is required"), "Error creating task")
	}

	fields := db.Fields{
		"title":       title,
		"description": "",
		"completed":   false,
		"createdAt":   db.ServerTimestamp,
		"categoryId":  nil,
		"priorityId":  nil,
		"dueDate":     nil,
	}
	if category := s.controller.SelectedCategory(); category != nil {
		fields["categoryId"] = *category
	}
	if priority := s.catalog.DefaultPriorityID(); priority != nil {
		fields["priorityId"] = *priority
	}

	ref, err := s.backend.Create(ctx, s.backend.Collection(tasksCollection), fields)
	if err != nil {
		return "", s.fail(err, "Error creating task")
	}
	s.reporter.Success("Task created successfully")
	return ref.ID, nil
}

func (s *Service) Task(ctx context.Context, id string) (model.Task, error) {
	doc, err := s.backend.Get(ctx, s.taskRef(id))
	if err != nil {
		return model.Task{}, fmt.Errorf("get task: %w", err)
	}
	var task model.Task
	if err := doc.Decode(&task); err != nil {
		return model.Task{}, err
	}
	return task, nil
}

func (s *Service) UpdateTask(ctx context.Context, id string, form TaskForm) error {
	fields, err := form.Fields()
	if err != nil {
		return s.fail(err, "Error updating task")
	}
	if err := s.backend.Update(ctx, s.taskRef(id), fields); err != nil {
		return s.fail(err, "Error updating task")
	}
	s.reporter.Success("Task updated successfully")
	return nil
}

// SetCompleted flips the task locally first and undoes the flip if the write fails.
func (s *Service) SetCompleted(ctx context.Context, id string, completed bool) error {
	revert := s.controller.MarkCompleted(id, completed)
	if err := s.backend.Update(ctx, s.taskRef(id), db.Fields{"completed": completed}); err != nil {
		revert()
		return s.fail(err, "Error updating task")
	}
	return nil
}

// DeleteTask removes the task together with its comments.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	batch := s.backend.Batch()
	if err := s.deleteTaskInto(ctx, batch, s.taskRef(id)); err != nil {
		return s.fail(err, "Error deleting task")
	}
	if err := batch.Commit(ctx); err != nil {
		return s.fail(err, "Error deleting task")
	}
	s.reporter.Success("Task deleted successfully")
	return nil
}

// DeleteCompleted removes every completed task of the selected category in one batch.
func (s *Service) DeleteCompleted(ctx context.Context) (int, error) {
	preds := []db.Predicate{db.Where("completed", db.OpEqual, true)}
	if category := s.controller.SelectedCategory(); category != nil {
		preds = append(preds, db.Where("categoryId", db.OpEqual, *category))
	}
	docs, err := s.backend.RunQuery(ctx, s.backend.Collection(tasksCollection), preds...)
	if err != nil {
		return 0, s.fail(err, "Error deleting completed tasks")
	}
	if len(docs) == 0 {
		return 0, nil
	}

	batch := s.backend.Batch()
	for _, doc := range docs {
		if err := s.deleteTaskInto(ctx, batch, doc.Ref); err != nil {
			return 0, s.fail(err, "Error deleting completed tasks")
		}
	}
	if err := batch.Commit(ctx); err != nil {
		return 0, s.fail(err, "Error deleting completed tasks")
	}
	s.logger.Info("completed tasks deleted", "count", len(docs))
	s.reporter.Success("Completed tasks deleted successfully")
	return len(docs), nil
}

func (s *Service) deleteTaskInto(ctx context.Context, batch *db.Batch, ref db.Ref) error {
	comments, err := s.backend.RunQuery(ctx, ref.Sub(commentsCollection))
	if err != nil {
		return fmt.Errorf("list comments: %w", err)
	}
	for _, comment := range comments {
		batch.Delete(comment.Ref)
	}
	batch.Delete(ref)
	return nil
}

func (s *Service) CreateCategory(ctx context.Context, name, color string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", s.fail(notify.Invalid("name", "Category name is required"), "Error creating category")
	}
	ref, err := s.backend.Create(ctx, s.backend.Collection(categoriesCollection), db.Fields{
		"name":  name,
		"color": strings.TrimSpace(color),
	})
	if err != nil {
		return "", s.fail(err, "Error creating category")
	}
	s.reporter.Success("Category created successfully")
	return ref.ID, nil
}

func (s *Service) RenameCategory(ctx context.Context, id, name, color string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return s.fail(notify.Invalid("name", "Category name is required"), "Error updating category")
	}
	fields := db.Fields{"name": name}
	if color = strings.TrimSpace(color); color != "" {
		fields["color"] = color
	}
	ref := db.Doc(s.backend.Collection(categoriesCollection), id)
	if err := s.backend.Update(ctx, ref, fields); err != nil {
		return s.fail(err, "Error updating category")
	}
	s.reporter.Success("Category updated successfully")
	return nil
}

// DeleteCategory removes the category, its tasks and their comments in one batch.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	tasks := s.backend.Collection(tasksCollection)
	docs, err := s.backend.RunQuery(ctx, tasks, db.Where("categoryId", db.OpEqual, id))
	if err != nil {
		return s.fail(err, "Error deleting category")
	}

	batch := s.backend.Batch()
	batch.Delete(db.Doc(s.backend.Collection(categoriesCollection), id))
	for _, doc := range docs {
		if err := s.deleteTaskInto(ctx, batch, doc.Ref); err != nil {
			return s.fail(err, "Error deleting category")
		}
	}
	if err := batch.Commit(ctx); err != nil {
		return s.fail(err, "Error deleting category")
	}

	if selected := s.controller.SelectedCategory(); selected != nil && *selected == id {
		s.controller.SetSelectedCategory(nil)
	}
	s.logger.Info("category deleted", "category", id, "tasks", len(docs))
	s.reporter.Success("Category deleted successfully")
	return nil
}

func (s *Service) AddComment(ctx context.Context, taskID, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", s.fail(notify.Invalid("text", "Comment cannot be empty"), "Error adding comment")
	}
	ref, err := s.backend.Create(ctx, s.taskRef(taskID).Sub(commentsCollection), db.Fields{
		"text":      text,
		"createdAt": db.ServerTimestamp,
	})
	if err != nil {
		return "", s.fail(err, "Error adding comment")
	}
	return ref.ID, nil
}

func (s *Service) DeleteComment(ctx context.Context, taskID, id string) error {
	ref := db.Doc(s.taskRef(taskID).Sub(commentsCollection), id)
	if err := s.backend.Delete(ctx, ref); err != nil {
		return s.fail(err, "Error deleting comment")
	}
	return nil
}

func (s *Service) Comments(ctx context.Context, taskID string) ([]model.Comment, error) {
	docs, err := s.backend.RunQuery(ctx, s.taskRef(taskID).Sub(commentsCollection), db.OrderBy("createdAt", db.Asc))
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return decodeComments(docs)
}

// WatchComments streams the comments of a task, oldest first.
func (s *Service) WatchComments(taskID string, fn func([]model.Comment)) (cancel func()) {
	handle := &subscription.Handle{}
	onData := subscription.Guard(handle, func(docs []db.Document) {
		comments, err := decodeComments(docs)
		if err != nil {
			s.logger.Warn("skipping comments", "task", taskID, "error", err)
			return
		}
		fn(comments)
	})
	onError := subscription.Guard(handle, func(err error) {
		s.reporter.Report(err, "Error loading comments")
	})
	handle.Attach(s.backend.Subscribe(s.taskRef(taskID).Sub(commentsCollection),
		[]db.Predicate{db.OrderBy("createdAt", db.Asc)}, onData, onError))
	return handle.Cancel
}
