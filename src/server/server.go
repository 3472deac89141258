package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"

	"panicpod/src/execution"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Strategies strategyStore
	Previewer  previewProvider
	Parser     triggerParser
	Launcher   runLauncher
	ExecStore  *execution.Store
}

// NewRouter wires every route.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("/healthcheck write error")
		}
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/strategy", GetStrategyHandler(deps.Strategies))
		r.Put("/strategy", PutStrategyHandler(deps.Strategies))
		r.Post("/parse-trigger", ParseTriggerHandler(deps.Parser))
		r.Get("/preview", PreviewHandler(deps.Strategies, deps.Previewer))
		r.Post("/panic", PanicHandler(deps.Strategies, deps.Previewer, deps.Launcher, deps.ExecStore))
		r.Get("/executions", ExecutionsHandler(deps.ExecStore))
		r.Get("/logs", LogsHandler(deps.ExecStore))
		r.Post("/reset", ResetHandler(deps.ExecStore))
	})

	r.Get("/ws/logs", LogStreamHandler(deps.ExecStore))

	return r
}

// StartServer serves the API until SIGINT or SIGTERM, then shuts down
// gracefully.
func StartServer(port string, deps Deps) {
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: NewRouter(deps),
	}

	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
