// Package dashboard serves the operator HTTP API: lead listing and actions,
// statistics, CSV export, a server-sent event stream of new leads and the
// Prometheus scrape endpoint.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/zulandar/leadyard/internal/events"
	"github.com/zulandar/leadyard/internal/lead"
)

const (
	// DefaultPort is used when StartOpts.Port is unset.
	DefaultPort = 8080
	// DefaultStreamInterval is how often the event stream polls for new leads.
	DefaultStreamInterval = 3 * time.Second

	shutdownTimeout = 5 * time.Second
)

// ServerOpts holds the dependencies of the HTTP API.
type ServerOpts struct {
	Store          lead.Store
	Events         events.Publisher    // optional
	Gatherer       prometheus.Gatherer // defaults to prometheus.DefaultGatherer
	JWTSecret      string
	Location       *time.Location // display zone for timestamps and export
	StreamInterval time.Duration
	Log            *logrus.Logger
}

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	ServerOpts
	Port int
	Out  io.Writer
}

// NewRouter validates opts and builds the gin engine serving the API.
func NewRouter(opts ServerOpts) (*gin.Engine, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("dashboard: store is required")
	}
	if opts.JWTSecret == "" {
		return nil, fmt.Errorf("dashboard: jwt secret is required")
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.StreamInterval <= 0 {
		opts.StreamInterval = DefaultStreamInterval
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(opts.Log))

	h := &handlers{
		store:  opts.Store,
		events: opts.Events,
		loc:    opts.Location,
		log:    opts.Log,
	}
	registerRoutes(router, h, opts)
	return router, nil
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Port <= 0 {
		opts.Port = DefaultPort
	}

	gin.SetMode(gin.ReleaseMode)
	router, err := NewRouter(opts.ServerOpts)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", opts.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// requestLogger logs each request at debug level.
func requestLogger(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
			"remote":   c.ClientIP(),
		}).Debug("dashboard: request")
	}
}

func metricsHandler(g prometheus.Gatherer) gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
}
