package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Joseda-hg/taskdeck/internal/auth"
	"github.com/Joseda-hg/taskdeck/internal/notify"
	"github.com/Joseda-hg/taskdeck/internal/paging"
	"github.com/Joseda-hg/taskdeck/internal/tasks"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.tmpl"))

const (
	sessionCookie = "taskdeck_session"
	sessionKey    = "session"
	workspaceKey  = "workspace"
)

type Options struct {
	PageSize int
	ToastTTL time.Duration
	Logger   *slog.Logger
}

// Server serves the dashboard and its JSON API. It keeps one workspace per signed in
// session.
type Server struct {
	auth   *auth.Service
	opts   Options
	logger *slog.Logger
	router *gin.Engine

	mu         sync.Mutex
	workspaces map[string]*tasks.Workspace
}

func NewServer(authService *auth.Service, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))
	router.SetHTMLTemplate(indexTemplate)

	s := &Server{
		auth:       authService,
		opts:       opts,
		logger:     logger,
		router:     router,
		workspaces: make(map[string]*tasks.Workspace),
	}

	router.GET("/", s.handleIndex)

	authAPI := router.Group("/api/auth")
	{
		authAPI.POST("/register", s.handleRegister)
		authAPI.POST("/login", s.handleLogin)
		authAPI.POST("/logout", s.requireSession, s.handleLogout)
	}

	api := router.Group("/api", s.requireSession)
	{
		api.GET("/view", s.handleView)
		api.GET("/view/events", s.handleEvents)
		api.POST("/view/page", s.handleSetPage)
		api.POST("/view/page-size", s.handleSetPageSize)
		api.POST("/view/sort", s.handleSort)
		api.POST("/view/filter", s.handleFilter)
		api.POST("/view/category", s.handleSelectCategory)
		api.POST("/view/priority", s.handleSelectPriority)

		api.POST("/tasks", s.handleCreateTask)
		api.DELETE("/tasks/completed", s.handleDeleteCompleted)
		api.GET("/tasks/:id", s.handleGetTask)
		api.PATCH("/tasks/:id", s.handleUpdateTask)
		api.POST("/tasks/:id/complete", s.handleCompleteTask)
		api.DELETE("/tasks/:id", s.handleDeleteTask)
		api.GET("/tasks/:id/comments", s.handleListComments)
		api.POST("/tasks/:id/comments", s.handleAddComment)
		api.DELETE("/tasks/:id/comments/:commentID", s.handleDeleteComment)

		api.GET("/categories", s.handleListCategories)
		api.POST("/categories", s.handleCreateCategory)
		api.PATCH("/categories/:id", s.handleRenameCategory)
		api.DELETE("/categories/:id", s.handleDeleteCategory)
		api.GET("/priorities", s.handleListPriorities)

		api.GET("/toasts", s.handleToasts)
		api.DELETE("/toasts/:id", s.handleDismissToast)
	}

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Close closes every open workspace.
func (s *Server) Close() {
	s.mu.Lock()
	workspaces := s.workspaces
	s.workspaces = make(map[string]*tasks.Workspace)
	s.mu.Unlock()

	for _, ws := range workspaces {
		ws.Close()
	}
}

func (s *Server) workspace(session *auth.Session) *tasks.Workspace {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ws, ok := s.workspaces[session.ID]; ok {
		return ws
	}
	reporter := notify.NewReporter(s.logger, notify.NewQueue(s.opts.ToastTTL))
	ws := tasks.OpenWorkspace(session.Client, reporter, tasks.Options{
		PageSize: s.opts.PageSize,
		Logger:   s.logger.With("user", session.Email),
	})
	s.workspaces[session.ID] = ws
	return ws
}

func (s *Server) closeWorkspace(session *auth.Session) {
	s.mu.Lock()
	ws, ok := s.workspaces[session.ID]
	delete(s.workspaces, session.ID)
	s.mu.Unlock()
	if ok {
		ws.Close()
	}
}

// SweepSessions expires sessions past their token lifetime and closes their workspaces.
func (s *Server) SweepSessions() int {
	expired := s.auth.Expire()
	for _, session := range expired {
		s.closeWorkspace(session)
	}
	if len(expired) > 0 {
		s.logger.Debug("expired sessions swept", "count", len(expired))
	}
	return len(expired)
}

// RunSweeper calls SweepSessions every interval until ctx is done.
func (s *Server) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.SweepSessions()
		}
	}
}

func sessionToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	if cookie, err := c.Cookie(sessionCookie); err == nil {
		return cookie
	}
	return ""
}

func (s *Server) currentSession(c *gin.Context) (*auth.Session, error) {
	token := sessionToken(c)
	if token == "" {
		return nil, auth.ErrSessionExpired
	}
	return s.auth.Verify(token)
}

func (s *Server) requireSession(c *gin.Context) {
	session, err := s.currentSession(c)
	if err != nil {
		if sessionToken(c) != "" {
			s.SweepSessions()
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	c.Set(sessionKey, session)
	c.Set(workspaceKey, s.workspace(session))
	c.Next()
}

func workspaceFrom(c *gin.Context) *tasks.Workspace {
	return c.MustGet(workspaceKey).(*tasks.Workspace)
}

func sessionFrom(c *gin.Context) *auth.Session {
	return c.MustGet(sessionKey).(*auth.Session)
}

func (s *Server) handleIndex(c *gin.Context) {
	email := ""
	if session, err := s.currentSession(c); err == nil {
		email = session.Email
	}
	c.HTML(http.StatusOK, "index.tmpl", gin.H{
		"SignedIn":  email != "",
		"Email":     email,
		"PageSizes": paging.PageSizes,
	})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notify.Invalid("body", "Invalid request body"))
		return
	}
	session, err := s.auth.Register(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	s.startSession(c, http.StatusCreated, session)
}

func (s *Server) handleLogin(c *gin.Context) {
	var req credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, notify.Invalid("body", "Invalid request body"))
		return
	}
	session, err := s.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	s.startSession(c, http.StatusOK, session)
}

func (s *Server) startSession(c *gin.Context, status int, session *auth.Session) {
	maxAge := int(time.Until(session.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, session.Token, maxAge, "/", "", false, true)
	c.JSON(status, gin.H{"token": session.Token, "email": session.Email})
}

func (s *Server) handleLogout(c *gin.Context) {
	session := sessionFrom(c)
	s.closeWorkspace(session)
	s.auth.SignOut(session)
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch notify.Classify(err) {
	case notify.KindValidation:
		status = http.StatusBadRequest
	case notify.KindAuth:
		status = http.StatusUnauthorized
	case notify.KindPermission:
		status = http.StatusForbidden
	case notify.KindNotFound:
		status = http.StatusNotFound
	case notify.KindPrecondition:
		status = http.StatusConflict
	case notify.KindTransient:
		status = http.StatusServiceUnavailable
	}
	var authErr *notify.AuthError
	if errors.As(err, &authErr) {
		c.JSON(status, gin.H{"error": authErr.Message})
		return
	}
	c.JSON(status, gin.H{"error": notify.Message(err, "Something went wrong")})
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
