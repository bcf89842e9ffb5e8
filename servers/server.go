package servers

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/reusee/taitrace/explains"
	"github.com/reusee/taitrace/logs"
	"github.com/reusee/taitrace/models"
	"github.com/reusee/taitrace/sandboxes"
)

const (
	readTimeout     = 30 * time.Second
	shutdownTimeout = 10 * time.Second
)

type healthResponse struct {
	Status string `json:"status" msgpack:"status"`
	Model  string `json:"model" msgpack:"model"`
}

type Handler http.Handler

func (Module) Handler(
	sandbox *sandboxes.Sandbox,
	engine *explains.Engine,
	provider *models.Provider,
	logger logs.Logger,
	newSpan logs.NewSpan,
	allowedOrigins AllowedOrigins,
) Handler {
	router := chi.NewRouter()
	router.Use(spanMiddleware(newSpan))
	router.Use(logMiddleware(logger))
	router.Use(recoveryMiddleware(logger))
	router.Use(corsMiddleware(allowedOrigins))

	router.Method(http.MethodPost, "/execute", &executeHandler{
		sandbox: sandbox,
		engine:  engine,
		logger:  logger,
	})

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		model := "not loaded"
		if handle := provider.Loaded(); handle != nil {
			model = string(handle.Tier)
		}
		writeValue(w, r, http.StatusOK, healthResponse{
			Status: "ok",
			Model:  model,
		})
	})

	router.Handle("/metrics", promhttp.Handler())

	return router
}

// Serve serves until ctx is done, then shuts down gracefully.
type Serve func(ctx context.Context) error

func (Module) Serve(
	handler Handler,
	addr ListenAddr,
	provider *models.Provider,
	logger logs.Logger,
) Serve {
	return func(ctx context.Context) error {
		server := &http.Server{
			Addr:        string(addr),
			Handler:     handler,
			ReadTimeout: readTimeout,
			BaseContext: func(net.Listener) context.Context {
				// in-flight requests finish during shutdown
				return context.WithoutCancel(ctx)
			},
		}

		errCh := make(chan error, 1)
		go func() {
			logger.InfoContext(ctx, "listening",
				"addr", addr,
			)
			errCh <- server.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		if err := provider.Close(shutdownCtx); err != nil {
			logger.WarnContext(ctx, "unload model",
				"error", err,
			)
		}
		return nil
	}
}
