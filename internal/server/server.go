package server

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/NEAR-DevHub/near-treasury-sub001/internal/bulkimport"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/kvstore"
	"github.com/NEAR-DevHub/near-treasury-sub001/internal/metrics"
)

// Server exposes the bulk-import pipeline to UI callers over HTTP.
type Server struct {
	logger        *logrus.Logger
	echo          *echo.Echo
	manager       *bulkimport.Manager
	prefs         kvstore.Store
	importMetrics *metrics.ImportMetrics
}

func NewServer(
	logger *logrus.Logger,
	manager *bulkimport.Manager,
	prefs kvstore.Store,
	importMetrics *metrics.ImportMetrics,
	middlewares ...echo.MiddlewareFunc,
) *Server {
	s := &Server{
		logger:        logger.WithField("pkg", "server").Logger,
		manager:       manager,
		prefs:         prefs,
		importMetrics: importMetrics,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	for _, m := range middlewares {
		e.Use(m)
	}

	e.GET("/health", s.health)

	v1 := e.Group("/v1")
	v1.POST("/imports", s.createImport)
	v1.GET("/imports/:id", s.getImport)
	v1.DELETE("/imports/:id", s.cancelImport)
	v1.PATCH("/imports/:id/rows/:index", s.patchRow)
	v1.DELETE("/imports/:id/rows/:index", s.deleteRow)
	v1.POST("/imports/:id/registration-check", s.registrationCheck)
	v1.POST("/imports/:id/submit", s.submit)
	v1.GET("/preferences/:key", s.getPreference)
	v1.PUT("/preferences/:key", s.putPreference)

	s.echo = e
	return s
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("http server listening on %s", addr)
		errCh <- s.echo.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.echo.Shutdown(shutdownCtx)
	}
}

// Handler exposes the routes for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}
