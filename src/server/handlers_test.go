package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"panicpod/src/execution"
	"panicpod/src/model"
	"panicpod/src/strategy"
	"panicpod/src/trigger"
)

const testBTCAddress = "tb1p5d7rjq7g6rdk2yhzks9smlaqtedr4dekq08ge8ztwac72sfr9rusxg3297"

type stubStrategyStore struct {
	strat  *model.PanicStrategy
	setErr error
}

func (s *stubStrategyStore) Get() (*model.PanicStrategy, error) {
	if s.strat == nil {
		return nil, strategy.ErrNoStrategy
	}
	return s.strat, nil
}

func (s *stubStrategyStore) Set(strat *model.PanicStrategy) error {
	if s.setErr != nil {
		return s.setErr
	}
	s.strat = strat
	return nil
}

type stubPreviewer struct {
	preview *strategy.Preview
	err     error
}

func (s *stubPreviewer) BuildPreview(_ context.Context, mode model.StrategyMode, _ *model.PanicStrategy) (*strategy.Preview, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.preview != nil {
		return s.preview, nil
	}
	return &strategy.Preview{Mode: mode, Items: []model.PreviewItem{}}, nil
}

type stubParser struct {
	parsed *trigger.ParsedTrigger
	err    error
}

func (s *stubParser) ParseTrigger(_ context.Context, _ string) (*trigger.ParsedTrigger, error) {
	return s.parsed, s.err
}

type stubLauncher struct {
	mu       sync.Mutex
	launched chan struct{}
	mode     model.StrategyMode
}

func (s *stubLauncher) Execute(_ context.Context, mode model.StrategyMode, _ *model.PanicStrategy, _ []model.PreviewItem) error {
	s.mu.Lock()
	s.mode = mode
	s.mu.Unlock()
	if s.launched != nil {
		close(s.launched)
	}
	return nil
}

func testStrategy() *model.PanicStrategy {
	return &model.PanicStrategy{
		Escape: &model.EscapeConfig{BTCAddress: testBTCAddress},
	}
}

func newTestServer(t *testing.T, deps Deps) *httptest.Server {
	t.Helper()

	if deps.ExecStore == nil {
		deps.ExecStore = execution.NewStore()
	}
	server := httptest.NewServer(NewRouter(deps))
	t.Cleanup(server.Close)
	return server
}

func doJSON(t *testing.T, method, url, body string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("building request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()

	var body errorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decoding error body: %v", err)
	}
	return body.Error
}

func TestHealthcheck(t *testing.T) {
	server := newTestServer(t, Deps{})

	resp, err := http.Get(server.URL + "/healthcheck")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestGetStrategyNotFound(t *testing.T) {
	server := newTestServer(t, Deps{Strategies: &stubStrategyStore{}})

	resp, err := http.Get(server.URL + "/api/strategy")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPutAndGetStrategy(t *testing.T) {
	store := &stubStrategyStore{}
	server := newTestServer(t, Deps{Strategies: store})

	body := `{"escape":{"btc_address":"` + testBTCAddress + `"}}`
	resp := doJSON(t, http.MethodPut, server.URL+"/api/strategy", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	getResp, err := http.Get(server.URL + "/api/strategy")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer getResp.Body.Close()

	var strat model.PanicStrategy
	if err := json.NewDecoder(getResp.Body).Decode(&strat); err != nil {
		t.Fatalf("decoding strategy: %v", err)
	}
	if strat.Escape == nil || strat.Escape.BTCAddress != testBTCAddress {
		t.Fatalf("unexpected strategy: %+v", strat)
	}
}

func TestPutStrategyRejectsInvalidPayloads(t *testing.T) {
	store := &stubStrategyStore{setErr: errors.New("btc_address is required")}
	server := newTestServer(t, Deps{Strategies: store})

	resp := doJSON(t, http.MethodPut, server.URL+"/api/strategy", `{"escape":{}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}

	resp = doJSON(t, http.MethodPut, server.URL+"/api/strategy", `not json`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", resp.StatusCode)
	}
}

func TestParseTriggerValidatesInput(t *testing.T) {
	server := newTestServer(t, Deps{Parser: &stubParser{}})

	for _, body := range []string{`{}`, `{"userInput":"   "}`, `not json`} {
		resp := doJSON(t, http.MethodPost, server.URL+"/api/parse-trigger", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, resp.StatusCode)
		}
		if msg := decodeError(t, resp); msg != "Invalid input: userInput is required and must be a non-empty string" {
			t.Fatalf("unexpected error message: %q", msg)
		}
	}
}

func TestParseTriggerSurfacesParserErrors(t *testing.T) {
	server := newTestServer(t, Deps{Parser: &stubParser{err: errors.New("invalid asset: DOGE")}})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/parse-trigger", `{"userInput":"sell the doge"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if msg := decodeError(t, resp); msg != "Failed to parse trigger: invalid asset: DOGE" {
		t.Fatalf("unexpected error message: %q", msg)
	}
}

func TestParseTriggerReturnsParsedStructure(t *testing.T) {
	parsed := &trigger.ParsedTrigger{
		Conditions: []trigger.ParsedCondition{
			{Asset: "ETH", Operator: "lt", Value: decimal.NewFromInt(2000)},
		},
		Logic: "OR",
		ExecutionPlan: trigger.ExecutionPlan{
			BTC:  "Transfer BTC directly to safe address",
			ETH:  "Swap ETH to USDC and bridge to ZetaChain",
			Zeta: "Keep on ZetaChain or transfer to safe address",
		},
	}
	server := newTestServer(t, Deps{Parser: &stubParser{parsed: parsed}})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/parse-trigger", `{"userInput":"ETH below 2000"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out trigger.ParsedTrigger
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(out.Conditions) != 1 || out.Conditions[0].Asset != "ETH" {
		t.Fatalf("unexpected parsed trigger: %+v", out)
	}
}

func TestPreviewValidatesMode(t *testing.T) {
	server := newTestServer(t, Deps{
		Strategies: &stubStrategyStore{strat: testStrategy()},
		Previewer:  &stubPreviewer{},
	})

	resp, err := http.Get(server.URL + "/api/preview?mode=yolo")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPreviewWithoutStrategy(t *testing.T) {
	server := newTestServer(t, Deps{
		Strategies: &stubStrategyStore{},
		Previewer:  &stubPreviewer{},
	})

	resp, err := http.Get(server.URL + "/api/preview?mode=escape")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestPreviewReturnsPlan(t *testing.T) {
	preview := &strategy.Preview{
		Mode: model.ModeEscape,
		Items: []model.PreviewItem{
			{Chain: "Bitcoin", Asset: "BTC", Action: model.ActionTransfer, Destination: testBTCAddress},
		},
	}
	server := newTestServer(t, Deps{
		Strategies: &stubStrategyStore{strat: testStrategy()},
		Previewer:  &stubPreviewer{preview: preview},
	})

	resp, err := http.Get(server.URL + "/api/preview?mode=escape")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out strategy.Preview
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding preview: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Chain != "Bitcoin" {
		t.Fatalf("unexpected preview: %+v", out)
	}
}

func TestPanicLaunchesRun(t *testing.T) {
	launcher := &stubLauncher{launched: make(chan struct{})}
	server := newTestServer(t, Deps{
		Strategies: &stubStrategyStore{strat: testStrategy()},
		Previewer:  &stubPreviewer{},
		Launcher:   launcher,
	})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/panic", `{"mode":"escape"}`)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}

	var out struct {
		Status string             `json:"status"`
		Mode   model.StrategyMode `json:"mode"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Status != "started" || out.Mode != model.ModeEscape {
		t.Fatalf("unexpected response: %+v", out)
	}

	<-launcher.launched
	launcher.mu.Lock()
	defer launcher.mu.Unlock()
	if launcher.mode != model.ModeEscape {
		t.Fatalf("expected escape launch, got %s", launcher.mode)
	}
}

func TestPanicConflictsWhenAlreadyLaunched(t *testing.T) {
	execStore := execution.NewStore()
	if err := execStore.Start([]model.ChainExecution{{Chain: "Bitcoin"}}); err != nil {
		t.Fatalf("seeding store: %v", err)
	}

	server := newTestServer(t, Deps{
		Strategies: &stubStrategyStore{strat: testStrategy()},
		Previewer:  &stubPreviewer{},
		Launcher:   &stubLauncher{},
		ExecStore:  execStore,
	})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/panic", `{"mode":"escape"}`)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestPanicWithoutStrategy(t *testing.T) {
	server := newTestServer(t, Deps{
		Strategies: &stubStrategyStore{},
		Previewer:  &stubPreviewer{},
		Launcher:   &stubLauncher{},
	})

	resp := doJSON(t, http.MethodPost, server.URL+"/api/panic", `{"mode":"escape"}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestExecutionsReportsRunState(t *testing.T) {
	execStore := execution.NewStore()
	server := newTestServer(t, Deps{ExecStore: execStore})

	resp, err := http.Get(server.URL + "/api/executions")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Launched   bool                   `json:"launched"`
		Executions []model.ChainExecution `json:"executions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if out.Launched {
		t.Fatalf("expected no launch before panic")
	}
}

func TestLogsAndReset(t *testing.T) {
	execStore := execution.NewStore()
	execStore.AppendLog("Evacuation sequence initiated", model.LogInfo)
	server := newTestServer(t, Deps{ExecStore: execStore})

	resp, err := http.Get(server.URL + "/api/logs")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var logs []model.ExecutionLogEntry
	if err := json.NewDecoder(resp.Body).Decode(&logs); err != nil {
		t.Fatalf("decoding logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Message != "Evacuation sequence initiated" {
		t.Fatalf("unexpected logs: %+v", logs)
	}

	resetResp := doJSON(t, http.MethodPost, server.URL+"/api/reset", "")
	if resetResp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resetResp.StatusCode)
	}

	if len(execStore.Logs()) != 0 {
		t.Fatalf("expected logs cleared after reset")
	}
}
