package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/hostguard/guardian-backend/internal/pkg/envutil"
	"github.com/hostguard/guardian-backend/internal/pkg/logger"
)

// Client produces a single chat completion for a system + user prompt pair.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
	// JSONMode asks the model for a JSON object response.
	JSONMode bool
}

func ConfigFromEnv() Config {
	return Config{
		APIKey:      strings.TrimSpace(os.Getenv("OPENAI_API_KEY")),
		BaseURL:     strings.TrimSpace(os.Getenv("OPENAI_BASE_URL")),
		Model:       envutil.String("GUARDIAN_MODEL", "gpt-4o-mini"),
		Temperature: envutil.Float("GUARDIAN_TEMPERATURE", 0.1),
		MaxTokens:   envutil.Int("GUARDIAN_MAX_TOKENS", 800),
		JSONMode:    envutil.Bool("GUARDIAN_JSON_MODE", true),
	}
}

type client struct {
	log *logger.Logger
	api *goopenai.Client
	cfg Config
}

func New(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	apiCfg := goopenai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	clientLog := log.With("client", "OpenAIClient")
	clientLog.Info("Initializing OpenAI client", "model", cfg.Model)
	return &client{
		log: clientLog,
		api: goopenai.NewClientWithConfig(apiCfg),
		cfg: cfg,
	}, nil
}

func (c *client) Complete(ctx context.Context, system, user string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: system},
			{Role: goopenai.ChatMessageRoleUser, Content: user},
		},
		Temperature: float32(c.cfg.Temperature),
	}
	if c.cfg.MaxTokens > 0 {
		req.MaxTokens = c.cfg.MaxTokens
	}
	if c.cfg.JSONMode {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{
			Type: goopenai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}
	c.log.Debug("Received completion",
		"model", resp.Model,
		"finish_reason", resp.Choices[0].FinishReason,
		"total_tokens", resp.Usage.TotalTokens,
	)
	return resp.Choices[0].Message.Content, nil
}
