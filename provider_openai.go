package main

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"
)

// OpenAIProvider covers every backend speaking the OpenAI chat completions
// API: openai itself, openrouter and ollama.
type OpenAIProvider struct {
	client  *openai.Client
	backend string
	model   string
}

func NewOpenAIProvider(backend string, cfg Config) (*OpenAIProvider, error) {
	pc := cfg.ProviderCfg(backend)
	var opts []option.RequestOption

	switch backend {
	case "openai":
		if pc.APIKey == "" {
			return nil, missingKey("openai", "OPENAI_API_KEY")
		}
		opts = append(opts, option.WithAPIKey(pc.APIKey))
		if pc.URL != "" {
			opts = append(opts, option.WithBaseURL(pc.URL))
		}
	case "openrouter":
		if pc.APIKey == "" {
			return nil, missingKey("openrouter", "OPENROUTER_API_KEY")
		}
		url := pc.URL
		if url == "" {
			url = "https://openrouter.ai/api/v1"
		}
		opts = append(opts, option.WithAPIKey(pc.APIKey), option.WithBaseURL(url))
	case "ollama":
		url := pc.URL
		if url == "" {
			url = "http://localhost:11434"
		}
		opts = append(opts, option.WithBaseURL(url+"/v1/"), option.WithAPIKey("ollama"))
	default:
		return nil, fmt.Errorf("%w: %s is not openai-compatible", ErrUnknownProvider, backend)
	}

	client := openai.NewClient(opts...)
	return &OpenAIProvider{client: &client, backend: backend, model: pc.Model}, nil
}

func (p *OpenAIProvider) Name() string  { return p.backend }
func (p *OpenAIProvider) Model() string { return p.model }

func (p *OpenAIProvider) MaxContext() int {
	switch p.backend {
	case "openrouter":
		return 200000
	case "ollama":
		return 32000
	default:
		return 128000
	}
}

func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (*Reply, error) {
	params := openai.ChatCompletionNewParams{
		Model:    p.model,
		Messages: convertToOpenAIMessages(req.Messages, req.System),
	}
	if req.MaxTokens > 0 {
		params.MaxTokens = param.NewOpt(int64(req.MaxTokens))
	}
	if tools := convertToOpenAITools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}

	completion, err := p.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("%s chat completion: %w", p.backend, err)
	}

	reply := &Reply{Message: Message{Role: "assistant"}}
	if len(completion.Choices) > 0 {
		msg := completion.Choices[0].Message
		reply.Message.Content = msg.Content
		for _, tc := range msg.ToolCalls {
			reply.Message.ToolCalls = append(reply.Message.ToolCalls, ToolCall{
				ID:   tc.ID,
				Name: tc.Function.Name,
				Args: []byte(tc.Function.Arguments),
			})
		}
	}
	if completion.Usage.TotalTokens > 0 {
		reply.Usage = &Usage{
			InputTokens:  int(completion.Usage.PromptTokens),
			OutputTokens: int(completion.Usage.CompletionTokens),
		}
	}
	return reply, nil
}

func convertToOpenAIMessages(msgs []Message, systemPrompt string) []openai.ChatCompletionMessageParamUnion {
	result := []openai.ChatCompletionMessageParamUnion{openai.SystemMessage(systemPrompt)}

	for _, m := range msgs {
		switch m.Role {
		case "user":
			result = append(result, openai.UserMessage(m.Content))
		case "assistant":
			asst := &openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				asst.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
					OfString: param.NewOpt(m.Content),
				}
			}
			for _, tc := range m.ToolCalls {
				asst.ToolCalls = append(asst.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: string(tc.Args),
					},
				})
			}
			result = append(result, openai.ChatCompletionMessageParamUnion{OfAssistant: asst})
		case "tool":
			result = append(result, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}

	return result
}

func convertToOpenAITools(tools []ToolDef) []openai.ChatCompletionToolParam {
	var result []openai.ChatCompletionToolParam
	for _, t := range tools {
		result = append(result, openai.ChatCompletionToolParam{
			Function: shared.FunctionDefinitionParam{
				Name:        t.Name,
				Description: param.NewOpt(t.Description),
				Parameters:  shared.FunctionParameters(t.Parameters),
			},
		})
	}
	return result
}

var _ Provider = (*OpenAIProvider)(nil)
