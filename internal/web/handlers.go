package web

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Joseda-hg/taskdeck/internal/model"
	"github.com/Joseda-hg/taskdeck/internal/notify"
	"github.com/Joseda-hg/taskdeck/internal/paging"
	"github.com/Joseda-hg/taskdeck/internal/tasks"
)

type taskView struct {
	model.Task
	CategoryName string          `json:"categoryName"`
	Priority     *model.Priority `json:"priority,omitempty"`
}

type viewResponse struct {
	CurrentPage      int        `json:"currentPage"`
	TasksPerPage     int        `json:"tasksPerPage"`
	TotalTasks       int        `json:"totalTasks"`
	TotalPages       int        `json:"totalPages"`
	Sort             string     `json:"sort"`
	SortLabel        string     `json:"sortLabel"`
	NameFilter       string     `json:"nameFilter"`
	SelectedCategory *string    `json:"selectedCategory"`
	SelectedPriority *string    `json:"selectedPriority"`
	Loading          bool       `json:"loading"`
	Summary          string     `json:"summary"`
	PageLabel        string     `json:"pageLabel"`
	PageSizes        []int      `json:"pageSizes"`
	Tasks            []taskView `json:"tasks"`
	CompletedTasks   []taskView `json:"completedTasks"`
}

func buildView(ws *tasks.Workspace, state tasks.State) viewResponse {
	return viewResponse{
		CurrentPage:      state.CurrentPage,
		TasksPerPage:     state.TasksPerPage,
		TotalTasks:       state.TotalTasks,
		TotalPages:       state.TotalPages(),
		Sort:             string(state.Sort),
		SortLabel:        state.Sort.Label(),
		NameFilter:       state.NameFilter,
		SelectedCategory: state.SelectedCategory,
		SelectedPriority: state.SelectedPriority,
		Loading:          state.Loading,
		Summary:          state.Summary(),
		PageLabel:        paging.PageLabel(state.CurrentPage, state.TasksPerPage, state.TotalTasks),
		PageSizes:        paging.PageSizes,
		Tasks:            taskViews(ws, state.Tasks),
		CompletedTasks:   taskViews(ws, state.CompletedTasks),
	}
}

func taskViews(ws *tasks.Workspace, list []model.Task) []taskView {
	views := make([]taskView, 0, len(list))
	for _, task := range list {
		view := taskView{Task: task, CategoryName: ws.Catalog.CategoryName(task.CategoryID)}
		if priority, ok := ws.Catalog.Priority(task.PriorityID); ok {
			view.Priority = &priority
		}
		views = append(views, view)
	}
	return views
}

func (s *Server) handleView(c *gin.Context) {
	ws := workspaceFrom(c)
	c.JSON(http.StatusOK, buildView(ws, ws.Controller.State()))
}

// handleEvents streams the view as server-sent events until the client goes away.
func (s *Server) handleEvents(c *gin.Context) {
	ws := workspaceFrom(c)

	states := make(chan tasks.State, 1)
	stopState := ws.Controller.Watch(func(state tasks.State) {
		select {
		case <-states:
		default:
		}
		states <- state
	})
	defer stopState()

	toasts := make(chan []notify.Toast, 1)
	stopToasts := ws.Toasts().OnChange(func(list []notify.Toast) {
		select {
		case toasts <- list:
		default:
			select {
			case <-toasts:
			default:
			}
			select {
			case toasts <- list:
			default:
			}
		}
	})
	defer stopToasts()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case state := <-states:
			c.SSEvent("state", buildView(ws, state))
			return true
		case list := <-toasts:
			c.SSEvent("toasts", list)
			return true
		}
	})
}

func (s *Server) handleSetPage(c *gin.Context) {
	var req struct {
		Page int `json:"page"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notify.Invalid("page", "Invalid page"))
		return
	}
	ws := workspaceFrom(c)
	accepted := ws.Controller.SetPage(req.Page)
	c.JSON(http.StatusOK, gin.H{"accepted": accepted, "view": buildView(ws, ws.Controller.State())})
}

func (s *Server) handleSetPageSize(c *gin.Context) {
	var req struct {
		Size int `json:"size"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || !paging.ValidPageSize(req.Size) {
		writeError(c, notify.Invalid("size", "Unsupported page size"))
		return
	}
	ws := workspaceFrom(c)
	ws.Controller.SetPageSize(req.Size)
	c.JSON(http.StatusOK, buildView(ws, ws.Controller.State()))
}

// handleSort cycles the sort, or sets it when the body names a direction.
func (s *Server) handleSort(c *gin.Context) {
	var req struct {
		Direction *string `json:"direction"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, notify.Invalid("direction", "Invalid sort direction"))
			return
		}
	}
	ws := workspaceFrom(c)
	if req.Direction != nil {
		ws.Controller.SetSort(model.ParseSortDirection(*req.Direction))
	} else {
		ws.Controller.CycleSort()
	}
	c.JSON(http.StatusOK, buildView(ws, ws.Controller.State()))
}

func (s *Server) handleFilter(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notify.Invalid("text", "Invalid filter"))
		return
	}
	ws := workspaceFrom(c)
	ws.Controller.SetNameFilter(req.Text)
	c.JSON(http.StatusOK, buildView(ws, ws.Controller.State()))
}

type selection struct {
	ID *string `json:"id"`
}

func (sel selection) normalized() *string {
	if sel.ID == nil || *sel.ID == "" || *sel.ID == "all" {
		return nil
	}
	return sel.ID
}

func (s *Server) handleSelectCategory(c *gin.Context) {
	var req selection
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notify.Invalid("id", "Invalid category"))
		return
	}
	ws := workspaceFrom(c)
	ws.Controller.SetSelectedCategory(req.normalized())
	c.JSON(http.StatusOK, buildView(ws, ws.Controller.State()))
}

func (s *Server) handleSelectPriority(c *gin.Context) {
	var req selection
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notify.Invalid("id", "Invalid priority"))
		return
	}
	ws := workspaceFrom(c)
	ws.Controller.SetSelectedPriority(req.normalized())
	c.JSON(http.StatusOK, buildView(ws, ws.Controller.State()))
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var req struct {
		Title string `json:"title"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notify.Invalid("title", "Invalid request body"))
		return
	}
	id, err := workspaceFrom(c).Service.CreateTask(c.Request.Context(), req.Title)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleGetTask(c *gin.Context) {
	ws := workspaceFrom(c)
	task, err := ws.Service.Task(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskViews(ws, []model.Task{task})[0])
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var form tasks.TaskForm
	if err := c.ShouldBindJSON(&form); err != nil {
		writeError(c, notify.Invalid("body", "Invalid request body"))
		return
	}
	if err := workspaceFrom(c).Service.UpdateTask(c.Request.Context(), c.Param("id"), form); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleCompleteTask(c *gin.Context) {
	var req struct {
		Completed bool `json:"completed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notify.Invalid("completed", "Invalid request body"))
		return
	}
	if err := workspaceFrom(c).Service.SetCompleted(c.Request.Context(), c.Param("id"), req.Completed); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := workspaceFrom(c).Service.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteCompleted(c *gin.Context) {
	n, err := workspaceFrom(c).Service.DeleteCompleted(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": n})
}

func (s *Server) handleListComments(c *gin.Context) {
	comments, err := workspaceFrom(c).Service.Comments(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, comments)
}

func (s *Server) handleAddComment(c *gin.Context) {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notify.Invalid("text", "Invalid request body"))
		return
	}
	id, err := workspaceFrom(c).Service.AddComment(c.Request.Context(), c.Param("id"), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleDeleteComment(c *gin.Context) {
	if err := workspaceFrom(c).Service.DeleteComment(c.Request.Context(), c.Param("id"), c.Param("commentID")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListCategories(c *gin.Context) {
	c.JSON(http.StatusOK, workspaceFrom(c).Catalog.Categories())
}

type categoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (s *Server) handleCreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notify.Invalid("name", "Invalid request body"))
		return
	}
	id, err := workspaceFrom(c).Service.CreateCategory(c.Request.Context(), req.Name, req.Color)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

func (s *Server) handleRenameCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notify.Invalid("name", "Invalid request body"))
		return
	}
	if err := workspaceFrom(c).Service.RenameCategory(c.Request.Context(), c.Param("id"), req.Name, req.Color); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDeleteCategory(c *gin.Context) {
	if err := workspaceFrom(c).Service.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleListPriorities(c *gin.Context) {
	c.JSON(http.StatusOK, workspaceFrom(c).Catalog.Priorities())
}

func (s *Server) handleToasts(c *gin.Context) {
	c.JSON(http.StatusOK, workspaceFrom(c).Toasts().List())
}

func (s *Server) handleDismissToast(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		writeError(c, notify.Invalid("id", "Invalid toast id"))
		return
	}
	workspaceFrom(c).Toasts().Dismiss(id)
	c.Status(http.StatusNoContent)
}
