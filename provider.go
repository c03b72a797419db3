package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUnknownProvider = errors.New("unknown provider")
	ErrMissingAPIKey   = errors.New("api key not set")
)

// Provider is the hosted model the agent talks to. Generate sends the whole
// conversation and returns the next assistant message, which may carry
// tool calls.
type Provider interface {
	Name() string
	Model() string
	Generate(ctx context.Context, req Request) (*Reply, error)
	MaxContext() int
}

var providerNames = []string{"gemini", "anthropic", "openai", "openrouter", "ollama", "bedrock"}

func NewProvider(name string, cfg Config) (Provider, error) {
	switch name {
	case "gemini":
		return NewGeminiProvider(cfg)
	case "anthropic":
		return NewAnthropicProvider(cfg)
	case "openai", "openrouter", "ollama":
		return NewOpenAIProvider(name, cfg)
	case "bedrock":
		return NewBedrockProvider(cfg)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
}

func missingKey(provider, env string) error {
	return fmt.Errorf("%s %w (set %s or providers.%s.api_key in config)", provider, ErrMissingAPIKey, env, provider)
}

// requiredNames extracts the "required" list of a JSON-schema-ish parameter
// map, which is []string when built in code and []any when decoded.
func requiredNames(params map[string]any) []string {
	switch req := params["required"].(type) {
	case []string:
		return req
	case []any:
		var out []string
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// decodeToolArgs turns the arguments of an earlier tool call back into a map
// for SDKs that want structured input. Missing args decode to an empty map.
func decodeToolArgs(tc ToolCall) (map[string]any, error) {
	args := map[string]any{}
	if len(tc.Args) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(tc.Args, &args); err != nil {
		return nil, fmt.Errorf("decoding args of %s call %s: %w", tc.Name, tc.ID, err)
	}
	return args, nil
}
