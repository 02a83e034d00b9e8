// Package dashboard serves the device-local web view: lead pipeline
// counts, sync queue health, and a live event stream. It binds to
// localhost; there is no auth because it never leaves the device.
package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"net/http"

	"github.com/dealscout/dealscout/internal/events"
	"github.com/dealscout/dealscout/internal/queue"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// OnlineSource reports connectivity for the status endpoint.
type OnlineSource interface {
	IsOnline() bool
}

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	DB     *gorm.DB
	Queue  *queue.Store
	Bus    *events.Bus
	Online OnlineSource // optional; status reports offline when nil
	Port   int
	Logger *zap.Logger
}

// Start launches the dashboard HTTP server. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("dashboard: db is required")
	}
	if opts.Queue == nil {
		return fmt.Errorf("dashboard: queue is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8787
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	tmpl, err := parseTemplates()
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	registerRoutes(router, opts)

	srv := &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", opts.Port),
		Handler: router,
	}

	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	opts.Logger.Info("dashboard listening", zap.Int("port", opts.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// parseTemplates loads the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
