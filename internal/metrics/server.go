package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Config holds the metrics endpoint settings.
type Config struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Port    string `envconfig:"METRICS_PORT" default:"9090"`
}

// Server serves the Prometheus scrape endpoint on its own port.
type Server struct {
	echo   *echo.Echo
	logger *logrus.Logger
}

// StartMetricsServer registers the metrics for the given services and starts
// the scrape endpoint in the background. Returns nil when metrics are
// disabled.
func StartMetricsServer(cfg Config, services []string, logger *logrus.Logger) *Server {
	if !cfg.Enabled {
		logger.Info("metrics server disabled")
		return nil
	}

	RegisterMetrics(services, logger)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	srv := &Server{echo: e, logger: logger}
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		logger.Infof("metrics server listening on %s", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Errorf("metrics server stopped: %v", err)
		}
	}()
	return srv
}

// Stop shuts the scrape endpoint down.
func (s *Server) Stop(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(ctx)
}
