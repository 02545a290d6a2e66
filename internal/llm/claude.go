package llm

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"

	"gwi.com/prompt-relay/internal/logging"
)

const (
	ProviderClaude = "claude"

	claudeDisplayName = "Claude"
)

type Claude struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    logging.Logger
}

// NewClaude builds a batch adapter for the Anthropic Messages API. An empty
// baseURL keeps the SDK default.
func NewClaude(apiKey, baseURL, model string, maxTokens int, logger logging.Logger) *Claude {
	opts := []anthropicoption.RequestOption{
		anthropicoption.WithAPIKey(apiKey),
		anthropicoption.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, anthropicoption.WithBaseURL(baseURL))
	}
	return &Claude{
		client:    anthropic.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
		logger:    logger.With("provider", ProviderClaude),
	}
}

func (c *Claude) Name() string { return ProviderClaude }

func (c *Claude) Complete(ctx context.Context, req Request) string {
	model := req.Model
	if model == "" {
		model = c.model
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: c.maxTokens,
		Messages:  toAnthropicMessages(req),
	})
	if err != nil {
		c.logger.Error(ctx, "claude completion failed", "model", model, "error", err)
		return errorText(claudeDisplayName)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			b.WriteString(v.Text)
		}
	}
	content := strings.TrimSpace(b.String())
	if content == "" {
		return emptyText(claudeDisplayName)
	}
	return content
}

func toAnthropicMessages(req Request) []anthropic.MessageParam {
	msgs := make([]anthropic.MessageParam, 0, len(req.History)+1)
	for _, m := range req.History {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		block := anthropic.NewTextBlock(m.Content)
		if m.Role == RoleAssistant {
			msgs = append(msgs, anthropic.NewAssistantMessage(block))
			continue
		}
		msgs = append(msgs, anthropic.NewUserMessage(block))
	}
	return append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))
}
