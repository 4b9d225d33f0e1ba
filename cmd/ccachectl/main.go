// Command ccachectl is a composition root demonstrating the Computing
// Coordinator end to end: a sharded store.Memory backs a compute.Cache
// whose demo producer is wrapped with retry and a circuit breaker, exposed
// through an admin HTTP surface for clearing, removing, warming, and
// inspecting cache entries, plus a separate Prometheus scrape server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/flowcache/ccache/logger"
	"github.com/flowcache/ccache/metrics"
	"github.com/flowcache/ccache/webserver"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// scrapeErrorLogger adapts logger.ILogger to promhttp.Logger so a failed
// metrics scrape (a collector erroring mid-Collect, a write failing partway
// through the response) is reported through the same logger as everything
// else instead of promhttp's default of swallowing it.
type scrapeErrorLogger struct {
	log logger.ILogger
}

func (s scrapeErrorLogger) Println(v ...interface{}) {
	s.log.Warning(v...)
}

// newLogger picks a logger implementation by name: "json" for structured
// output suitable for log aggregation, anything else (including the empty
// string) for the human-readable console writer.
func newLogger(format string) logger.ILogger {
	if format == "json" {
		return logger.NewJSONLogger(os.Stdout)
	}
	return logger.NewConsoleLogger(os.Stdout)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootLog := logger.NewConsoleLogger(os.Stdout)

	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		bootLog.Fatalf("loading config: %v", err)
	}

	log := newLogger(cfg.LogFormat)
	logger.SetDefaultLogger(log)

	reg := metrics.New(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithGoCollector(),
		metrics.WithProcessCollector(),
		metrics.WithErrorLog(scrapeErrorLogger{log: log}),
	)
	httpMetrics := metrics.NewHTTPMetrics(reg)

	svc, err := newService(ctx, cfg, reg, log)
	if err != nil {
		log.Fatalf("wiring cache service: %v", err)
	}
	defer svc.close()

	server := webserver.New(
		webserver.WithAddress(cfg.AdminAddress),
		webserver.WithLogger(log.SubLogger("webserver")),
		webserver.WithRecovery(),
		webserver.WithRequestID(),
		webserver.WithReadTimeout(10*time.Second),
		webserver.WithWriteTimeout(10*time.Second),
		webserver.WithCustomMiddleware(httpMiddleware(httpMetrics)),
	)
	registerAdminRoutes(server, svc)

	metricsServer := newMetricsServer(cfg.MetricsAddress, reg, httpMetrics)

	go func() {
		log.Infof("admin server listening on %s", cfg.AdminAddress)
		if err := server.StartHTTP(); err != nil {
			log.Warningf("admin server stopped: %v", err)
		}
	}()

	go func() {
		log.Infof("metrics server listening on %s", cfg.MetricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warningf("metrics server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, draining admin server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("admin server shutdown: %v", err)
	}
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("metrics server shutdown: %v", err)
	}
}

// newMetricsServer builds a standalone plain net/http server for the
// Prometheus scrape endpoint, kept off the admin webserver so a scraper
// hammering /metrics can never compete with the admin server's request
// queue. It reuses httpMetrics' own HTTPMetrics.Middleware, a plain
// http.Handler decorator unlike the admin server's webserver-flavored
// one, so scrape latency and in-flight count are visible in the same
// registry being scraped, labeled by path alongside the admin routes.
func newMetricsServer(addr string, reg *metrics.Registry, httpMetrics *metrics.HTTPMetrics) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", httpMetrics.Middleware(metrics.Handler(reg)))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// httpMiddleware records request count and latency on httpMetrics directly,
// since metrics.HTTPMetrics.Middleware wraps a plain http.Handler and
// webserver's routing works in terms of its own echo-based HandlerFunc.
func httpMiddleware(httpMetrics *metrics.HTTPMetrics) webserver.MiddlewareFunc {
	return func(next webserver.HandlerFunc) webserver.HandlerFunc {
		return func(c webserver.Context) error {
			httpMetrics.RequestsInFlight().Inc()
			defer httpMetrics.RequestsInFlight().Dec()

			start := time.Now()
			err := next(c)
			elapsed := time.Since(start).Seconds()

			status := strconv.Itoa(c.Response().Status)
			httpMetrics.RequestsTotal().WithLabelValues(c.Request().Method, c.Path(), status).Inc()
			httpMetrics.RequestDuration().WithLabelValues(c.Request().Method, c.Path(), status).Observe(elapsed)

			return err
		}
	}
}
