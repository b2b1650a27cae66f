package reasoner

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/LaithAlz/me-agent/internal/infra"
)

// OpenAIClient — адаптер над OpenAI-совместимым API.
// Модель и дедлайн выбираются по стадии: selection — тяжелая модель
// с длинным таймаутом, explanation — быстрая.
type OpenAIClient struct {
	api    *openai.Client
	cfg    infra.ReasonerConfig
	logger *zap.Logger
}

func NewOpenAIClient(cfg infra.ReasonerConfig, logger *zap.Logger) *OpenAIClient {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIClient{
		api:    openai.NewClientWithConfig(apiCfg),
		cfg:    cfg,
		logger: logger.Named("reasoner"),
	}
}

func (c *OpenAIClient) CreateAssistant(ctx context.Context, name, instructions string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.SelectTimeout)
	defer cancel()

	assistant, err := c.api.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        c.cfg.SelectModel,
		Name:         &name,
		Instructions: &instructions,
	})
	if err != nil {
		return "", c.classify(StageCreateAssistant, err)
	}
	if assistant.ID == "" {
		return "", &UpstreamError{Stage: StageCreateAssistant, Err: errors.New("empty assistant id")}
	}
	return assistant.ID, nil
}

func (c *OpenAIClient) Generate(ctx context.Context, stage, task string) (Result, error) {
	model := c.cfg.SelectModel
	timeout := c.cfg.SelectTimeout
	if stage == StageExplanation {
		model = c.cfg.ExplainModel
		timeout = c.cfg.ExplainTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: task},
		},
	})
	if err != nil {
		return Result{}, c.classify(stage, err)
	}
	if len(resp.Choices) == 0 {
		return Result{}, &UpstreamError{Stage: stage, Err: errors.New("empty choices")}
	}

	return Result{Content: resp.Choices[0].Message.Content, Model: model}, nil
}

// classify переводит ошибку SDK в типизированную ошибку границы.
func (c *OpenAIClient) classify(stage string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn("reasoner timeout", zap.String("stage", stage))
		return &TimeoutError{Stage: stage}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		c.logger.Error("reasoner upstream error",
			zap.String("stage", stage),
			zap.Int("status", apiErr.HTTPStatusCode),
			zap.Error(err),
		)
		return &UpstreamError{Stage: stage, Status: apiErr.HTTPStatusCode, Err: err}
	}

	c.logger.Error("reasoner call failed", zap.String("stage", stage), zap.Error(err))
	return &UpstreamError{Stage: stage, Err: err}
}
