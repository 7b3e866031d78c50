package summarizer

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"os"
	"strings"
	"text/template"
	"unicode/utf8"

	openai "github.com/sashabaranov/go-openai"

	"ragsearch/internal/domain"
	"ragsearch/internal/port"
)

//go:embed templates/*.txt
var promptTemplates embed.FS

var (
	summaryTemplate = template.Must(
		template.New("summary_prompt.txt").
			Funcs(template.FuncMap{"truncate": truncate}).
			ParseFS(promptTemplates, "templates/summary_prompt.txt"),
	)
	systemPrompt = mustRead("templates/system_prompt.txt")
)

func mustRead(name string) string {
	data, err := promptTemplates.ReadFile(name)
	if err != nil {
		panic(err)
	}
	return strings.TrimSpace(string(data))
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

// RenderPrompt renders the user prompt sent to the model.
func RenderPrompt(req port.SummaryRequest) (string, error) {
	var buf bytes.Buffer
	if err := summaryTemplate.Execute(&buf, req); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return buf.String(), nil
}

// SystemPrompt returns the fixed system instruction.
func SystemPrompt() string {
	return systemPrompt
}

// OpenAISummarizer asks an OpenAI-compatible chat model for the overview.
type OpenAISummarizer struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float32
}

func NewOpenAISummarizer(apiKeyEnv, model, baseURL string, maxTokens int, temperature float32) (*OpenAISummarizer, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrMissingAPIKey, apiKeyEnv)
	}
	return newOpenAISummarizer(apiKey, model, baseURL, maxTokens, temperature), nil
}

func newOpenAISummarizer(apiKey, model, baseURL string, maxTokens int, temperature float32) *OpenAISummarizer {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAISummarizer{
		client:      openai.NewClientWithConfig(cfg),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (s *OpenAISummarizer) Summarize(ctx context.Context, req port.SummaryRequest) (string, error) {
	prompt, err := RenderPrompt(req)
	if err != nil {
		return "", err
	}

	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (s *OpenAISummarizer) ModelName() string {
	return s.model
}

// NoopSummarizer is used when summarization is disabled.
type NoopSummarizer struct{}

func (NoopSummarizer) Summarize(context.Context, port.SummaryRequest) (string, error) {
	return "", nil
}

func (NoopSummarizer) ModelName() string { return "none" }
