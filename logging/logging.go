package logging

import (
	"net/http"
	"time"

	"github.com/zllovesuki/customers/config"

	"github.com/TheZeroSlave/zapsentry"
	"github.com/getsentry/sentry-go"
	"github.com/go-chi/chi/v5/middleware"
	extErrors "github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns the structural logger for env. When sentryDSN is set, error level
// entries are also reported to sentry; call sentry.Flush before exiting.
func New(env config.Environment, sentryDSN, component string) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error
	if env == config.EnvProduction {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize logger")
	}
	logger = logger.With(zap.String("component", component))

	if sentryDSN == "" {
		return logger, nil
	}

	if err := sentry.Init(sentry.ClientOptions{
		Dsn:         sentryDSN,
		Environment: string(env),
		Debug:       env == config.EnvDevelopment,
	}); err != nil {
		return nil, extErrors.Wrap(err, "Cannot initialize sentry")
	}

	// Attach sentry to zap so we can do automatic error capturing
	cfg := zapsentry.Configuration{
		Level: zapcore.ErrorLevel,
		Tags: map[string]string{
			"component": component,
		},
	}
	core, err := zapsentry.NewCore(cfg, zapsentry.NewSentryClientFromClient(sentry.CurrentHub().Client()))
	if err != nil {
		return nil, extErrors.Wrap(err, "Cannot attach sentry to logger")
	}
	return zapsentry.AttachCoreToLogger(core, logger), nil
}

// Middleware logs one line per request
func Middleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			logger.Info("Served request",
				zap.String("Method", r.Method),
				zap.String("Path", r.URL.Path),
				zap.Int("Status", ww.Status()),
				zap.Int("Bytes", ww.BytesWritten()),
				zap.Duration("Duration", time.Since(start)),
				zap.String("RequestID", middleware.GetReqID(r.Context())),
			)
		})
	}
}
