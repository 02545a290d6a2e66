package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"gwi.com/prompt-relay/internal/logging"
)

const (
	ProviderGemini     = "gemini"
	defaultGeminiModel = "gemini-1.5-flash-latest"

	geminiRoleModel = "model"
	geminiRoleUser  = "user"
)

type Gemini struct {
	client *genai.Client
	model  string
	logger logging.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, logger logging.Logger) (*Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if model == "" {
		model = defaultGeminiModel
	}
	return &Gemini{client: client, model: model, logger: logger.With("provider", ProviderGemini)}, nil
}

func (g *Gemini) Name() string { return ProviderGemini }

func (g *Gemini) Close() {
	if g.client == nil {
		return
	}
	if err := g.client.Close(); err != nil {
		g.logger.Warn(context.Background(), "closing GenAI client", "error", err)
	}
}

// Stream sends the prompt as the next message of a chat seeded with
// req.History and yields the non-empty text of every streamed chunk.
func (g *Gemini) Stream(ctx context.Context, req Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		name := req.Model
		if name == "" {
			name = g.model
		}
		model := g.client.GenerativeModel(name)

		chat := model.StartChat()
		chat.History = ToGeminiHistory(req.History)

		it := chat.SendMessageStream(ctx, genai.Text(req.Prompt))
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				g.logger.Error(ctx, "gemini stream failed", "model", name, "error", err)
				yield("", fmt.Errorf("gemini stream failed: %w", err))
				return
			}
			text := ResponseText(resp)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

// ToGeminiHistory maps chat turns onto Gemini contents. Assistant turns
// become "model"; every other role is sent as "user". Blank turns are
// dropped since the API rejects empty parts.
func ToGeminiHistory(history []Message) []*genai.Content {
	if len(history) == 0 {
		return nil
	}
	out := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		if strings.TrimSpace(m.Content) == "" {
			continue
		}
		role := geminiRoleUser
		if m.Role == RoleAssistant {
			role = geminiRoleModel
		}
		out = append(out, &genai.Content{
			Role:  role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}
	return out
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}
