package tasks

import (
	"log/slog"
	"sync"

	"github.com/Joseda-hg/taskdeck/internal/notify"
	"github.com/Joseda-hg/taskdeck/internal/paging"
)

type Options struct {
	PageSize  int
	Paginator paging.Paginator
	Logger    *slog.Logger
}

// Workspace is everything a signed in user works with. It replaces process wide
// providers: frontends open one per session and close it on sign out.
type Workspace struct {
	Controller *Controller
	Catalog    *Catalog
	Service    *Service
	Reporter   *notify.Reporter

	closeOnce sync.Once
}

func OpenWorkspace(backend Backend, reporter *notify.Reporter, opts Options) *Workspace {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	catalog := NewCatalog(backend, reporter, logger)
	controller := NewController(backend, reporter, ControllerOptions{
		PageSize:  opts.PageSize,
		Paginator: opts.Paginator,
		Logger:    logger,
	})
	service := NewService(backend, controller, catalog, reporter, logger)

	catalog.Start()
	controller.Start()
	return &Workspace{Controller: controller, Catalog: catalog, Service: service, Reporter: reporter}
}

func (w *Workspace) Toasts() *notify.Queue {
	return w.Reporter.Toasts()
}

// Close stops the controller, then the catalog, then the toast queue.
func (w *Workspace) Close() {
	w.closeOnce.Do(func() {
		w.Controller.Close()
		w.Catalog.Close()
		if queue := w.Reporter.Toasts(); queue != nil {
			queue.Close()
		}
	})
}
