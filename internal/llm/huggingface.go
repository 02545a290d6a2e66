package llm

import (
	"context"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"gwi.com/prompt-relay/internal/logging"
)

const (
	ProviderHuggingFace = "huggingface"

	hfDisplayName = "Hugging Face"
)

// HuggingFace calls a hosted instruct model through the Hugging Face
// OpenAI-compatible router.
type HuggingFace struct {
	client    openai.Client
	model     string
	maxTokens int64
	logger    logging.Logger
}

func NewHuggingFace(token, baseURL, model string, maxTokens int, logger logging.Logger) *HuggingFace {
	opts := []option.RequestOption{
		option.WithAPIKey(token),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &HuggingFace{
		client:    openai.NewClient(opts...),
		model:     model,
		maxTokens: int64(maxTokens),
		logger:    logger.With("provider", ProviderHuggingFace),
	}
}

func (h *HuggingFace) Name() string { return ProviderHuggingFace }

func (h *HuggingFace) Complete(ctx context.Context, req Request) string {
	model := req.Model
	if model == "" {
		model = h.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: toOpenAIMessages(req),
	}
	if h.maxTokens > 0 {
		params.MaxTokens = openai.Int(h.maxTokens)
	}

	resp, err := h.client.Chat.Completions.New(ctx, params)
	if err != nil {
		h.logger.Error(ctx, "huggingface completion failed", "model", model, "error", err)
		return errorText(hfDisplayName)
	}
	if len(resp.Choices) == 0 {
		return emptyText(hfDisplayName)
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return emptyText(hfDisplayName)
	}
	return content
}

func toOpenAIMessages(req Request) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.History)+1)
	for _, m := range req.History {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		if m.Role == RoleAssistant {
			msgs = append(msgs, openai.AssistantMessage(m.Content))
			continue
		}
		msgs = append(msgs, openai.UserMessage(m.Content))
	}
	return append(msgs, openai.UserMessage(req.Prompt))
}

func errorText(provider string) string {
	return "Error getting a response from " + provider + "."
}

func emptyText(provider string) string {
	return provider + " returned an empty response."
}
