package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"panicpod/src/model"
)

var ErrMissingAPIKey = errors.New("QWEN_API_KEY is not configured")

const systemPrompt = `You are a cryptocurrency emergency evacuation strategy parser. Users will describe their evacuation trigger conditions in natural language.

Your task is to parse the input and return ONLY a valid JSON object with this exact structure:

{
  "conditions": [
    {"asset": "ETH", "operator": "lt", "value": 2000},
    {"asset": "BTC", "operator": "lt", "value": 40000}
  ],
  "logic": "OR",
  "executionPlan": {
    "btc": "Transfer BTC directly to safe address",
    "eth": "Swap ETH to USDC and bridge to ZetaChain",
    "zeta": "Keep on ZetaChain or transfer to safe address"
  }
}

Rules:
- asset must be one of: "BTC", "ETH", "ZETA"
- operator must be one of: "lt" (less than), "gt" (greater than), "eq" (equals)
- logic must be either "AND" or "OR"
- executionPlan must describe what to do with each asset (btc, eth, zeta)
- If user mentions multiple conditions, use "OR" logic unless they explicitly say "AND"
- Return ONLY the JSON object, no additional text or explanation
- Default execution plans:
  - BTC: Transfer to safe address
  - ETH: Swap to USDC and bridge to ZetaChain
  - ZETA: Keep on ZetaChain or transfer to safe address`

// ParsedCondition is one price condition as returned by the model.
type ParsedCondition struct {
	Asset    string          `json:"asset"`
	Operator string          `json:"operator"`
	Value    decimal.Decimal `json:"value"`
	Chain    string          `json:"chain,omitempty"`
}

// ExecutionPlan is the model's free-text summary of what happens to each
// asset class on trigger.
type ExecutionPlan struct {
	BTC  string `json:"btc"`
	ETH  string `json:"eth"`
	Zeta string `json:"zeta"`
}

// ParsedTrigger is the validated result of parsing a natural-language
// trigger description.
type ParsedTrigger struct {
	Conditions    []ParsedCondition `json:"conditions"`
	Logic         string            `json:"logic"`
	ExecutionPlan ExecutionPlan     `json:"executionPlan"`
}

// TriggerConditions converts the parsed result into strategy trigger
// conditions.
func (t *ParsedTrigger) TriggerConditions() []model.TriggerCondition {
	conditions := make([]model.TriggerCondition, 0, len(t.Conditions))
	for _, c := range t.Conditions {
		conditions = append(conditions, model.TriggerCondition{
			Asset:    c.Asset,
			Operator: model.TriggerOperator(c.Operator),
			Value:    c.Value,
		})
	}
	return conditions
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client parses natural-language evacuation triggers through an
// OpenAI-compatible chat completion endpoint.
type Client struct {
	cfg  Config
	http *resty.Client
	log  *logger.Entry
}

func NewClient(cfg Config, log *logger.Entry) *Client {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}

	httpClient := resty.New().
		SetBaseURL(cfg.APIURL).
		SetTimeout(time.Duration(cfg.TimeoutS) * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(time.Second)

	return &Client{cfg: cfg, http: httpClient, log: log}
}

// ParseTrigger sends the user's description to the model and validates the
// returned structure strictly; any deviation is an error, never a guess.
func (c *Client) ParseTrigger(ctx context.Context, userInput string) (*ParsedTrigger, error) {
	if strings.TrimSpace(userInput) == "" {
		return nil, errors.New("userInput is required and must be a non-empty string")
	}
	if c.cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	request := chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("User input: %q\n\nPlease return the JSON object:", userInput)},
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(c.cfg.APIKey).
		SetBody(request).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("chat completion request failed: %w", err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("chat completion API error: %d - %s", resp.StatusCode(), resp.String())
	}

	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return nil, errors.New("no content in chat completion response")
	}

	parsed, err := decodeTrigger(out.Choices[0].Message.Content)
	if err != nil {
		c.log.WithError(err).Warn("trigger response failed validation")
		return nil, err
	}
	return parsed, nil
}

// decodeTrigger extracts the JSON object from the model output, which may
// be wrapped in prose or code fences, and validates every field.
func decodeTrigger(content string) (*ParsedTrigger, error) {
	jsonStr := strings.TrimSpace(content)
	start := strings.Index(jsonStr, "{")
	end := strings.LastIndex(jsonStr, "}")
	if start == -1 || end == -1 || end < start {
		return nil, errors.New("no JSON object in model response")
	}
	jsonStr = jsonStr[start : end+1]

	var parsed ParsedTrigger
	if err := json.Unmarshal([]byte(jsonStr), &parsed); err != nil {
		return nil, fmt.Errorf("invalid JSON in model response: %w", err)
	}

	if parsed.Conditions == nil {
		return nil, errors.New("invalid response: missing conditions array")
	}
	if parsed.Logic != string(model.TriggerLogicAnd) && parsed.Logic != string(model.TriggerLogicOr) {
		return nil, errors.New("invalid response: logic must be AND or OR")
	}
	if parsed.ExecutionPlan.BTC == "" || parsed.ExecutionPlan.ETH == "" || parsed.ExecutionPlan.Zeta == "" {
		return nil, errors.New("invalid response: missing executionPlan")
	}

	for _, condition := range parsed.Conditions {
		switch condition.Asset {
		case "BTC", "ETH", "ZETA":
		default:
			return nil, fmt.Errorf("invalid asset: %s", condition.Asset)
		}
		switch model.TriggerOperator(condition.Operator) {
		case model.OperatorLessThan, model.OperatorGreaterThan, model.OperatorEquals:
		default:
			return nil, fmt.Errorf("invalid operator: %s", condition.Operator)
		}
	}

	return &parsed, nil
}
