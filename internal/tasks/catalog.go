package tasks

import (
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Joseda-hg/taskdeck/internal/db"
	"github.com/Joseda-hg/taskdeck/internal/model"
	"github.com/Joseda-hg/taskdeck/internal/notify"
	"github.com/Joseda-hg/taskdeck/internal/subscription"
)

const UncategorizedName = "Uncategorized"

// Catalog keeps the user's categories and priorities live.
type Catalog struct {
	backend  Backend
	reporter *notify.Reporter
	logger   *slog.Logger
	registry *subscription.Registry

	mu         sync.Mutex
	categories []model.Category
	priorities []model.Priority
	observers  map[int]func()
	nextWatch  int
	started    bool
}

func NewCatalog(backend Backend, reporter *notify.Reporter, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{
		backend:   backend,
		reporter:  reporter,
		logger:    logger,
		registry:  subscription.NewRegistry(),
		observers: make(map[int]func()),
	}
}

func (c *Catalog) Start() {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	c.listen(categoriesCollection, []db.Predicate{db.OrderBy("name", db.Asc)}, func(docs []db.Document) error {
		categories, err := decodeCategories(docs)
		if err != nil {
			return err
		}
		c.mu.Lock()
		c.categories = categories
		c.mu.Unlock()
		return nil
	}, "Error loading categories")

	c.listen(prioritiesCollection, []db.Predicate{db.OrderBy("level", db.Asc)}, func(docs []db.Document) error {
		priorities, err := decodePriorities(docs)
		if err != nil {
			return err
		}
		sort.SliceStable(priorities, func(i, j int) bool { return priorities[i].Level < priorities[j].Level })
		c.mu.Lock()
		c.priorities = priorities
		c.mu.Unlock()
		return nil
	}, "Error loading priorities")
}

func (c *Catalog) listen(name string, preds []db.Predicate, apply func([]db.Document) error, message string) {
	handle := c.registry.Reserve()
	onData := subscription.Guard(handle, func(docs []db.Document) {
		if err := apply(docs); err != nil {
			c.logger.Warn("skipping snapshot", "collection", name, "error", err)
			return
		}
		c.changed()
	})
	onError := subscription.Guard(handle, func(err error) {
		if c.reporter != nil {
			c.reporter.Report(err, message)
		}
	})
	handle.Attach(c.backend.Subscribe(c.backend.Collection(name), preds, onData, onError))
}

func (c *Catalog) Close() {
	c.registry.Close()
	c.mu.Lock()
	c.observers = make(map[int]func())
	c.mu.Unlock()
}

func (c *Catalog) Categories() []model.Category {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Category{}, c.categories...)
}

// Priorities are ordered by level, highest precedence first.
func (c *Catalog) Priorities() []model.Priority {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Priority{}, c.priorities...)
}

func (c *Catalog) Category(id *string) (model.Category, bool) {
	if id == nil {
		return model.Category{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, category := range c.categories {
		if category.ID == *id {
			return category, true
		}
	}
	return model.Category{}, false
}

// CategoryName resolves a task's category. Missing and dangling ids read as uncategorized.
func (c *Catalog) CategoryName(id *string) string {
	if category, ok := c.Category(id); ok {
		return category.Name
	}
	return UncategorizedName
}

func (c *Catalog) Priority(id *string) (model.Priority, bool) {
	if id == nil {
		return model.Priority{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, priority := range c.priorities {
		if priority.ID == *id {
			return priority, true
		}
	}
	return model.Priority{}, false
}

// DefaultPriorityID is the id of the priority named "low", used for new tasks.
func (c *Catalog) DefaultPriorityID() *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, priority := range c.priorities {
		if strings.EqualFold(priority.Name, "low") {
			return model.StringPtr(priority.ID)
		}
	}
	return nil
}

// Watch calls fn after categories or priorities change.
func (c *Catalog) Watch(fn func()) (cancel func()) {
	c.mu.Lock()
	c.nextWatch++
	id := c.nextWatch
	c.observers[id] = fn
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		delete(c.observers, id)
		c.mu.Unlock()
	}
}

func (c *Catalog) changed() {
	c.mu.Lock()
	observers := make([]func(), 0, len(c.observers))
	for _, fn := range c.observers {
		observers = append(observers, fn)
	}
	c.mu.Unlock()

	for _, fn := range observers {
		fn()
	}
}
