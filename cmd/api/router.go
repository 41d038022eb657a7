package main

import (
	"net/http"

	"github.com/zllovesuki/customers/customer"
	"github.com/zllovesuki/customers/db"
	"github.com/zllovesuki/customers/logging"
	"github.com/zllovesuki/customers/metrics"
	resp "github.com/zllovesuki/customers/response"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type routerOptions struct {
	Logger          *zap.Logger
	Provider        *db.Provider
	CustomerService *customer.Service
	Registry        *prometheus.Registry
	CORSOrigins     []string
}

func newRouter(opt routerOptions) (http.Handler, error) {
	m, err := metrics.New(opt.Registry)
	if err != nil {
		return nil, err
	}

	rootRouter := chi.NewRouter()

	rootRouter.Use(middleware.RequestID)
	rootRouter.Use(middleware.RealIP)
	rootRouter.Use(logging.Middleware(opt.Logger))
	rootRouter.Use(middleware.Recoverer)
	rootRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins: opt.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	rootRouter.Use(m.Middleware)

	rootRouter.NotFound(resp.NotFound)
	rootRouter.MethodNotAllowed(resp.MethodNotAllowed)

	rootRouter.Mount("/customers", opt.CustomerService.Router())

	rootRouter.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := opt.Provider.Ping(r.Context()); err != nil {
			opt.Logger.Error("Health check failed",
				zap.Error(err),
			)
			resp.WriteError(w, r, resp.ErrServiceUnavailable().AddMessages("Database is unreachable"))
			return
		}
		resp.WriteResponse(w, r, map[string]string{"status": "ok"})
	})
	rootRouter.Handle("/metrics", promhttp.HandlerFor(opt.Registry, promhttp.HandlerOpts{}))

	return rootRouter, nil
}
