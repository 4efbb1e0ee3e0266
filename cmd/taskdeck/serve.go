package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/Joseda-hg/taskdeck/internal/web"
)

const (
	shutdownTimeout      = 5 * time.Second
	sessionSweepInterval = time.Minute
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the web dashboard",
		Long: `Serve the web dashboard and its JSON API.

Examples:
  taskdeck serve
  taskdeck serve --addr :8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(opts, os.Stderr)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Web.Addr
			}
			if a.cfg.Log.Level == "debug" {
				gin.SetMode(gin.DebugMode)
			} else {
				gin.SetMode(gin.ReleaseMode)
			}

			server := web.NewServer(a.auth, web.Options{
				PageSize: a.cfg.UI.TasksPerPage,
				ToastTTL: a.cfg.ToastTTL(),
				Logger:   a.logger,
			})
			defer server.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			go server.RunSweeper(ctx, sessionSweepInterval)

			// Request contexts derive from ctx so open event streams end on shutdown.
			httpServer := &http.Server{
				Addr:              addr,
				Handler:           server.Handler(),
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}

			errs := make(chan error, 1)
			go func() {
				a.logger.Info("web server listening", "addr", addr)
				errs <- httpServer.ListenAndServe()
			}()

			select {
			case err := <-errs:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down web server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to web.addr from the config)")
	return cmd
}
