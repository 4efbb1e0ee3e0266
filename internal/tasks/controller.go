package tasks

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Joseda-hg/taskdeck/internal/db"
	"github.com/Joseda-hg/taskdeck/internal/model"
	"github.com/Joseda-hg/taskdeck/internal/notify"
	"github.com/Joseda-hg/taskdeck/internal/paging"
	"github.com/Joseda-hg/taskdeck/internal/query"
	"github.com/Joseda-hg/taskdeck/internal/subscription"
)

const (
	msgLoadTasks     = "Error loading tasks"
	msgLoadCompleted = "Error loading completed tasks"
	msgLoadCount     = "Error loading task count"
)

// State is a snapshot of the controller. Tasks and CompletedTasks already have the name
// filter applied.
type State struct {
	CurrentPage      int
	TasksPerPage     int
	Sort             model.SortDirection
	NameFilter       string
	SelectedCategory *string
	SelectedPriority *string

	Tasks          []model.Task
	CompletedTasks []model.Task
	TotalTasks     int
	Loading        bool
}

func (s State) TotalPages() int {
	return paging.TotalPages(s.TotalTasks, s.TasksPerPage)
}

func (s State) Summary() string {
	return paging.Summary(s.CurrentPage, s.TasksPerPage, s.TotalTasks)
}

// optimistic is a local completion change waiting for both partitions to catch up.
type optimistic struct {
	task          model.Task
	pageSeen      bool
	completedSeen bool
	token         int
}

// Controller owns the query state of the task lists and keeps three live queries in sync
// with it: the current page of active tasks, every completed task and the active count.
type Controller struct {
	backend   Backend
	paginator paging.Paginator
	reporter  *notify.Reporter
	logger    *slog.Logger

	mu           sync.Mutex
	currentPage  int
	tasksPerPage int
	sort         model.SortDirection
	nameFilter   string
	category     *string
	priority     *string

	page       []model.Task
	completed  []model.Task
	total      int
	loading    bool
	overrides  map[string]*optimistic
	nextToken  int
	generation uint64
	registry   *subscription.Registry
	ctx        context.Context
	cancelCtx  context.CancelFunc
	started    bool
	closed     bool

	observersMu sync.Mutex
	observers   map[int]func(State)
	nextWatch   int
	wake        chan struct{}
	done        chan struct{}
}

type ControllerOptions struct {
	PageSize  int
	Paginator paging.Paginator
	Logger    *slog.Logger
}

func NewController(backend Backend, reporter *notify.Reporter, opts ControllerOptions) *Controller {
	size := opts.PageSize
	if size <= 0 {
		size = paging.DefaultPageSize
	}
	paginator := opts.Paginator
	if paginator == nil {
		paginator = paging.NewCursorPaginator(backend)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &Controller{
		backend:      backend,
		paginator:    paginator,
		reporter:     reporter,
		logger:       logger,
		currentPage:  1,
		tasksPerPage: size,
		overrides:    make(map[string]*optimistic),
		registry:     subscription.NewRegistry(),
		ctx:          ctx,
		cancelCtx:    cancel,
		observers:    make(map[int]func(State)),
		wake:         make(chan struct{}, 1),
		done:         make(chan struct{}),
	}
	go c.deliver()
	return c
}

// Start opens the first round of subscriptions.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.resubscribeLocked()
	c.mu.Unlock()
	c.changed()
}

// Close cancels every subscription. Nothing is delivered to observers afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.generation++
	c.mu.Unlock()

	c.registry.Close()
	c.cancelCtx()
	close(c.done)

	c.observersMu.Lock()
	c.observers = make(map[int]func(State))
	c.observersMu.Unlock()
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *Controller) stateLocked() State {
	active, completed := c.partitionsLocked()
	return State{
		CurrentPage:      c.currentPage,
		TasksPerPage:     c.tasksPerPage,
		Sort:             c.sort,
		NameFilter:       c.nameFilter,
		SelectedCategory: copyID(c.category),
		SelectedPriority: copyID(c.priority),
		Tasks:            query.FilterByName(active, c.nameFilter),
		CompletedTasks:   query.FilterByName(completed, c.nameFilter),
		TotalTasks:       c.total,
		Loading:          c.loading,
	}
}

// partitionsLocked applies pending optimistic completion changes to the last snapshots.
func (c *Controller) partitionsLocked() ([]model.Task, []model.Task) {
	if len(c.overrides) == 0 {
		return append([]model.Task(nil), c.page...), append([]model.Task(nil), c.completed...)
	}

	var active, completed, movedActive, movedCompleted []model.Task
	for _, task := range c.page {
		if o, ok := c.overrides[task.ID]; ok && o.task.Completed {
			continue
		}
		active = append(active, task)
	}
	for _, task := range c.completed {
		if o, ok := c.overrides[task.ID]; ok && !o.task.Completed {
			continue
		}
		completed = append(completed, task)
	}
	for _, o := range c.overrides {
		if o.task.Completed && !containsTask(completed, o.task.ID) {
			movedCompleted = append(movedCompleted, o.task)
		}
		if !o.task.Completed && !containsTask(active, o.task.ID) {
			movedActive = append(movedActive, o.task)
		}
	}
	return append(movedActive, active...), append(movedCompleted, completed...)
}

// Watch calls fn after every state change. Calls are serialized on a goroutine owned by
// the controller, so fn may call back into it.
func (c *Controller) Watch(fn func(State)) (cancel func()) {
	c.observersMu.Lock()
	c.nextWatch++
	id := c.nextWatch
	c.observers[id] = fn
	c.observersMu.Unlock()

	c.changed()
	return func() {
		c.observersMu.Lock()
		delete(c.observers, id)
		c.observersMu.Unlock()
	}
}

func (c *Controller) changed() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *Controller) deliver() {
	for {
		select {
		case <-c.done:
			return
		case <-c.wake:
		}
		state := c.State()

		c.observersMu.Lock()
		observers := make([]func(State), 0, len(c.observers))
		for _, fn := range c.observers {
			observers = append(observers, fn)
		}
		c.observersMu.Unlock()

		for _, fn := range observers {
			select {
			case <-c.done:
				return
			default:
			}
			fn(state)
		}
	}
}

// SetPage moves to page n. Pages outside 1..TotalPages are rejected.
func (c *Controller) SetPage(n int) bool {
	c.mu.Lock()
	if !paging.ValidPage(n, c.tasksPerPage, c.total) {
		c.mu.Unlock()
		return false
	}
	if n != c.currentPage {
		c.currentPage = n
		c.resubscribeLocked()
	}
	c.mu.Unlock()
	c.changed()
	return true
}

func (c *Controller) SetPageSize(n int) {
	if n <= 0 {
		return
	}
	c.update(func() {
		c.tasksPerPage = n
		c.currentPage = 1
	})
}

// CycleSort advances the due date sort: none, ascending, descending, none.
func (c *Controller) CycleSort() model.SortDirection {
	var next model.SortDirection
	c.update(func() {
		c.sort = c.sort.Next()
		c.currentPage = 1
		next = c.sort
	})
	return next
}

func (c *Controller) SetSort(dir model.SortDirection) {
	c.update(func() {
		c.sort = dir
		c.currentPage = 1
	})
}

func (c *Controller) SetNameFilter(text string) {
	c.update(func() {
		c.nameFilter = text
		c.currentPage = 1
	})
}

// SetSelectedCategory also clears the name filter.
func (c *Controller) SetSelectedCategory(id *string) {
	c.update(func() {
		c.category = copyID(id)
		c.nameFilter = ""
		c.currentPage = 1
	})
}

func (c *Controller) SetSelectedPriority(id *string) {
	c.update(func() {
		c.priority = copyID(id)
		c.currentPage = 1
	})
}

func (c *Controller) SelectedCategory() *string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyID(c.category)
}

func (c *Controller) update(mutate func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	mutate()
	c.resubscribeLocked()
	c.mu.Unlock()
	c.changed()
}

// MarkCompleted moves a task between the partitions before the write lands. The returned
// func undoes the move.
func (c *Controller) MarkCompleted(id string, completed bool) (revert func()) {
	c.mu.Lock()
	task, ok := c.findLocked(id)
	if !ok || c.closed {
		c.mu.Unlock()
		return func() {}
	}
	task.Completed = completed
	c.nextToken++
	token := c.nextToken
	c.overrides[id] = &optimistic{task: task, token: token}
	c.mu.Unlock()
	c.changed()

	return func() {
		c.mu.Lock()
		if o, ok := c.overrides[id]; ok && o.token == token {
			delete(c.overrides, id)
		}
		c.mu.Unlock()
		c.changed()
	}
}

func (c *Controller) findLocked(id string) (model.Task, bool) {
	if o, ok := c.overrides[id]; ok {
		return o.task, true
	}
	for _, task := range c.page {
		if task.ID == id {
			return task, true
		}
	}
	for _, task := range c.completed {
		if task.ID == id {
			return task, true
		}
	}
	return model.Task{}, false
}

// resubscribeLocked replaces every live query with queries for the current state.
func (c *Controller) resubscribeLocked() {
	c.generation++
	gen := c.generation
	c.registry.CancelAll()
	c.overrides = make(map[string]*optimistic)
	if !c.started || c.closed {
		return
	}
	c.loading = true

	collection := c.backend.Collection(tasksCollection)
	params := query.Params{
		Sort:       c.sort,
		NameFilter: c.nameFilter,
		Category:   copyID(c.category),
		Priority:   copyID(c.priority),
	}

	completedParams := params
	completedParams.Completed = true
	c.subscribeLocked(gen, collection, query.Build(completedParams), c.applyCompleted, msgLoadCompleted)

	countParams := params
	countParams.NameFilter = ""
	c.subscribeLocked(gen, collection, query.Build(countParams), c.applyCount, msgLoadCount)

	handle := c.registry.Reserve()
	go c.loadPage(gen, handle, collection, query.Build(params), c.currentPage, c.tasksPerPage)

	c.logger.Debug("task queries rebuilt",
		"generation", gen,
		"page", c.currentPage,
		"size", c.tasksPerPage,
		"sort", string(c.sort),
		"category", model.StringValue(c.category),
		"priority", model.StringValue(c.priority),
	)
}

func (c *Controller) subscribeLocked(gen uint64, collection string, preds []db.Predicate, apply func([]db.Document), message string) {
	handle := c.registry.Reserve()
	onData := subscription.Guard(handle, func(docs []db.Document) {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		apply(docs)
		c.mu.Unlock()
		c.changed()
	})
	onError := subscription.Guard(handle, func(err error) {
		c.fail(gen, err, message)
	})
	handle.Attach(c.backend.Subscribe(collection, preds, onData, onError))
}

// loadPage finds the page cursor off the controller lock and subscribes to the page if the
// generation is still current.
func (c *Controller) loadPage(gen uint64, handle *subscription.Handle, collection string, base []db.Predicate, page, size int) {
	preds, ok, err := c.paginator.Page(c.ctx, collection, base, page, size)

	c.mu.Lock()
	if gen != c.generation || handle.Dropped() {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.fail(gen, err, msgLoadTasks)
		return
	}
	if !ok {
		c.page = nil
		c.loading = false
		c.mu.Unlock()
		c.changed()
		return
	}

	onData := subscription.Guard(handle, func(docs []db.Document) {
		c.mu.Lock()
		if gen != c.generation {
			c.mu.Unlock()
			return
		}
		c.applyPage(docs)
		c.mu.Unlock()
		c.changed()
	})
	onError := subscription.Guard(handle, func(err error) {
		c.fail(gen, err, msgLoadTasks)
	})
	handle.Attach(c.backend.Subscribe(collection, preds, onData, onError))
	c.mu.Unlock()
}

func (c *Controller) applyPage(docs []db.Document) {
	tasks, err := decodeTasks(docs)
	if err != nil {
		c.logger.Warn("skipping task page", "error", err)
		return
	}
	c.page = tasks
	c.loading = false
	for id, o := range c.overrides {
		if containsTask(tasks, id) == !o.task.Completed {
			o.pageSeen = true
		}
		c.settleLocked(id, o)
	}
}

func (c *Controller) applyCompleted(docs []db.Document) {
	tasks, err := decodeTasks(docs)
	if err != nil {
		c.logger.Warn("skipping completed tasks", "error", err)
		return
	}
	c.completed = tasks
	for id, o := range c.overrides {
		if containsTask(tasks, id) == o.task.Completed {
			o.completedSeen = true
		}
		c.settleLocked(id, o)
	}
}

func (c *Controller) settleLocked(id string, o *optimistic) {
	if o.pageSeen && o.completedSeen {
		delete(c.overrides, id)
	}
}

// applyCount records the active total and pulls the current page back into range when the
// total shrank below it.
func (c *Controller) applyCount(docs []db.Document) {
	c.total = len(docs)
	if c.currentPage > 1 && c.currentPage > paging.TotalPages(c.total, c.tasksPerPage) {
		c.currentPage = paging.ClampPage(c.currentPage, c.tasksPerPage, c.total)
		c.resubscribeLocked()
	}
}

func (c *Controller) fail(gen uint64, err error, message string) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	if message == msgLoadTasks {
		c.loading = false
	}
	c.mu.Unlock()
	c.changed()

	if notify.Classify(err) == notify.KindPermission {
		c.logger.Debug("task query ended", "reason", err)
		return
	}
	if c.reporter != nil {
		c.reporter.Report(err, message)
	}
}

func containsTask(tasks []model.Task, id string) bool {
	for _, task := range tasks {
		if task.ID == id {
			return true
		}
	}
	return false
}

func copyID(id *string) *string {
	if id == nil {
		return nil
	}
	value := *id
	return &value
}
