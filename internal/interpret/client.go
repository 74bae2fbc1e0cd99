package interpret

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/lsat-prep/calibration/internal/irt"
	"github.com/lsat-prep/calibration/internal/models"
)

// LLMClient is the interface both interpreter backends satisfy.
type LLMClient interface {
	Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error)
}

// Interpreter turns fitted item parameters into a plain-language summary for
// content reviewers.
type Interpreter struct {
	llm   LLMClient
	model string
}

func NewInterpreter() *Interpreter {
	var llm LLMClient
	model := "mock"

	if os.Getenv("MOCK_INTERPRETER") == "true" {
		llm = NewMockClient()
		log.Println("Interpreter using mock summaries")
	} else {
		model = os.Getenv("ANTHROPIC_MODEL")
		if model == "" {
			model = "claude-opus-4-5-20251101"
		}
		llm = NewAPIClient(model)
		log.Println("Interpreter using Anthropic API:", model)
	}

	return &Interpreter{llm: llm, model: model}
}

func (i *Interpreter) ModelName() string {
	return i.model
}

// SummarizeRun asks the LLM for a reviewer-facing read of a run's fitted
// parameters.
func (i *Interpreter) SummarizeRun(ctx context.Context, run *models.CalibrationRun, items []irt.Item) (string, error) {
	summary, err := i.llm.Generate(ctx, SystemPrompt(), BuildSummaryPrompt(run, items))
	if err != nil {
		return "", fmt.Errorf("generate summary: %w", err)
	}
	return summary, nil
}

// ── APIClient — Anthropic SDK (Production) ─────────────────

type APIClient struct {
	client *anthropic.Client
	model  string
}

func NewAPIClient(model string) *APIClient {
	client := anthropic.NewClient(
		option.WithAPIKey(os.Getenv("ANTHROPIC_API_KEY")),
	)
	return &APIClient{client: &client, model: model}
}

func (c *APIClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   2048,
		Temperature: param.NewOpt(0.3),
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	}

	message, err := c.callWithRetry(ctx, params)
	if err != nil {
		return "", err
	}

	for _, block := range message.Content {
		if block.Type == "text" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("no text content in API response")
}

func (c *APIClient) callWithRetry(ctx context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			sleepDuration := time.Duration(1<<uint(attempt)) * time.Second
			log.Printf("Retrying Anthropic API call in %v (attempt %d)", sleepDuration, attempt+1)
			time.Sleep(sleepDuration)
		}

		message, err := c.client.Messages.New(ctx, params)
		if err == nil {
			return message, nil
		}
		lastErr = err
		log.Printf("Anthropic API attempt %d failed: %v", attempt+1, err)
	}
	return nil, fmt.Errorf("anthropic API failed after retries: %w", lastErr)
}

// ── MockClient — Local Development ─────────────────────────

type MockClient struct{}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) Generate(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	return "[Mock] Calibration summary: item parameters look plausible overall. " +
		"Review items flagged for low discrimination or a high guessing floor " +
		"before promoting this run's parameters to the serving pool.", nil
}
