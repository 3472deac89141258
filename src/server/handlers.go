package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	logger "github.com/sirupsen/logrus"

	"panicpod/src/execution"
	"panicpod/src/model"
	"panicpod/src/strategy"
	"panicpod/src/trigger"
)

type strategyStore interface {
	Get() (*model.PanicStrategy, error)
	Set(strat *model.PanicStrategy) error
}

type previewProvider interface {
	BuildPreview(ctx context.Context, mode model.StrategyMode, strat *model.PanicStrategy) (*strategy.Preview, error)
}

type triggerParser interface {
	ParseTrigger(ctx context.Context, userInput string) (*trigger.ParsedTrigger, error)
}

type runLauncher interface {
	Execute(ctx context.Context, mode model.StrategyMode, strat *model.PanicStrategy, plan []model.PreviewItem) error
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func parseMode(raw string) (model.StrategyMode, error) {
	switch model.StrategyMode(strings.ToLower(strings.TrimSpace(raw))) {
	case model.ModeEscape:
		return model.ModeEscape, nil
	case model.ModeHaven:
		return model.ModeHaven, nil
	}
	return "", fmt.Errorf("mode must be %q or %q", model.ModeEscape, model.ModeHaven)
}

// GetStrategyHandler returns the registered strategy, 404 when none is set.
func GetStrategyHandler(store strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		strat, err := store.Get()
		if err != nil {
			if errors.Is(err, strategy.ErrNoStrategy) {
				writeError(w, http.StatusNotFound, err.Error())
				return
			}
			logger.WithError(err).Error("failed to load strategy")
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		writeJSON(w, http.StatusOK, strat)
	}
}

// PutStrategyHandler validates and installs a new strategy.
func PutStrategyHandler(store strategyStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var strat model.PanicStrategy
		if err := json.NewDecoder(r.Body).Decode(&strat); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if err := store.Set(&strat); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, &strat)
	}
}

// ParseTriggerHandler turns a natural-language trigger description into a
// validated trigger structure.
func ParseTriggerHandler(parser triggerParser) http.HandlerFunc {
	type request struct {
		UserInput string `json:"userInput"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.UserInput) == "" {
			writeError(w, http.StatusBadRequest, "Invalid input: userInput is required and must be a non-empty string")
			return
		}

		parsed, err := parser.ParseTrigger(r.Context(), req.UserInput)
		if err != nil {
			logger.WithError(err).Error("failed to parse trigger")
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to parse trigger: %s", err.Error()))
			return
		}
		writeJSON(w, http.StatusOK, parsed)
	}
}

// PreviewHandler runs a planning pass for ?mode= without executing
// anything.
func PreviewHandler(store strategyStore, previewer previewProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		mode, err := parseMode(r.URL.Query().Get("mode"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		strat, err := store.Get()
		if err != nil {
			writeError(w, http.StatusNotFound, "no strategy configured")
			return
		}

		preview, err := previewer.BuildPreview(r.Context(), mode, strat)
		if err != nil {
			logger.WithError(err).Error("failed to build preview")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, preview)
	}
}

// PanicHandler launches an evacuation run for the posted mode. The run
// continues in the background after the response; progress is observable
// through the executions endpoint and the log stream.
func PanicHandler(store strategyStore, previewer previewProvider, launcher runLauncher, execStore *execution.Store) http.HandlerFunc {
	type request struct {
		Mode string `json:"mode"`
	}
	type response struct {
		Status string             `json:"status"`
		Mode   model.StrategyMode `json:"mode"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		var req request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		mode, err := parseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		if execStore.Launched() {
			writeError(w, http.StatusConflict, execution.ErrAlreadyLaunched.Error())
			return
		}

		strat, err := store.Get()
		if err != nil {
			writeError(w, http.StatusNotFound, "no strategy configured")
			return
		}

		preview, err := previewer.BuildPreview(r.Context(), mode, strat)
		if err != nil {
			logger.WithError(err).Error("failed to build evacuation plan")
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}

		// The run must outlive the request.
		go func() {
			if err := launcher.Execute(context.Background(), mode, strat, preview.Items); err != nil {
				logger.WithError(err).Error("evacuation run did not start")
			}
		}()

		writeJSON(w, http.StatusAccepted, response{Status: "started", Mode: mode})
	}
}

// ExecutionsHandler reports the current run state.
func ExecutionsHandler(execStore *execution.Store) http.HandlerFunc {
	type response struct {
		Launched   bool                   `json:"launched"`
		Executions []model.ChainExecution `json:"executions"`
	}

	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, response{
			Launched:   execStore.Launched(),
			Executions: execStore.Executions(),
		})
	}
}

// LogsHandler returns the full log history of the current run.
func LogsHandler(execStore *execution.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logs := execStore.Logs()
		if logs == nil {
			logs = []model.ExecutionLogEntry{}
		}
		writeJSON(w, http.StatusOK, logs)
	}
}

// ResetHandler clears the run state so a new evacuation can start.
func ResetHandler(execStore *execution.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		execStore.Reset()
		w.WriteHeader(http.StatusNoContent)
	}
}
