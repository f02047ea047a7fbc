package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/julienschmidt/httprouter"

	"lendly/pkg/config"
	"lendly/pkg/contracts"
	"lendly/pkg/middleware"
)

// Application owns the HTTP server, its router and the middleware chain.
type Application struct {
	cfg    *config.Config
	router *httprouter.Router
	server *http.Server
}

func NewApplication(cfg *config.Config, handlers ...contracts.Handler) *Application {
	router := httprouter.New()
	router.GET("/health", healthHandler)

	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	chain := middleware.Recovery(cfg.Log)(
		middleware.RequestLogging(cfg.Log)(
			middleware.MaxRequestSize(int64(cfg.MaxRequestSize))(
				middleware.ContentTypeValidation(
					middleware.RequestTimeout(cfg.RequestTimeout, cfg.Log)(router),
				),
			),
		),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      chain,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Application{
		cfg:    cfg,
		router: router,
		server: server,
	}
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests within
// the configured shutdown window.
func (a *Application) Run() error {
	errCh := make(chan error, 1)

	go func() {
		a.cfg.Log.Info("server listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		a.cfg.Log.Info("shutdown signal received", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("graceful shutdown failed", "error", err)
		return err
	}

	a.cfg.Log.Info("server stopped")
	return nil
}

func healthHandler(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
