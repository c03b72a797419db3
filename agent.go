package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
)

var ErrMaxTurns = errors.New("model did not finish within the turn limit")

// AgentSpec is what the agent is configured with once at start-up.
type AgentSpec struct {
	Name        string
	Description string
	Instruction string
}

// ToolSet is a ToolInvoker that can also describe its tools to the model.
type ToolSet interface {
	ToolInvoker
	Definitions() []ToolDef
}

type Agent struct {
	spec        AgentSpec
	provider    Provider
	tools       ToolSet
	cfg         Config
	render      *Renderer
	baseLogger  *slog.Logger
	logger      *slog.Logger
	messages    []Message
	totalUsage  Usage
	runID       string
	newProvider func(string, Config) (Provider, error)
}

func NewAgent(spec AgentSpec, provider Provider, tools ToolSet, cfg Config, logger *slog.Logger, render *Renderer) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		spec:        spec,
		provider:    provider,
		tools:       tools,
		cfg:         cfg,
		render:      render,
		baseLogger:  logger.With("agent", spec.Name),
		newProvider: NewProvider,
	}
	a.Reset()
	return a
}

// Reset drops the conversation and starts a new run.
func (a *Agent) Reset() {
	a.messages = nil
	a.totalUsage = Usage{}
	a.runID = uuid.NewString()
	a.logger = a.baseLogger.With("run_id", a.runID)
}

func (a *Agent) Messages() []Message { return a.messages }
func (a *Agent) TotalUsage() Usage   { return a.totalUsage }

func (a *Agent) systemPrompt() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are an agent. Your internal name is %q.\n", a.spec.Name)
	if d := strings.TrimSpace(a.spec.Description); d != "" {
		fmt.Fprintf(&sb, "The description about you is %q.\n", d)
	}
	sb.WriteString("\n")
	sb.WriteString(a.spec.Instruction)
	return sb.String()
}

// Run sends input to the model and keeps executing the tool calls it asks
// for until it answers with plain text. The final text is returned.
// If the model call fails the user message is dropped again so the
// conversation stays well-formed.
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	start := len(a.messages)
	a.messages = append(a.messages, Message{Role: "user", Content: input})

	for turn := 1; turn <= a.cfg.MaxTurns; turn++ {
		stop := a.render.Thinking()
		reply, err := a.provider.Generate(ctx, Request{
			System:    a.systemPrompt(),
			Messages:  a.messages,
			Tools:     a.tools.Definitions(),
			MaxTokens: a.cfg.MaxTokens,
		})
		stop()
		if err != nil {
			a.messages = a.messages[:start]
			return "", err
		}
		a.totalUsage.Add(reply.Usage)
		if reply.Usage != nil {
			a.logger.Debug("model turn", "turn", turn,
				"input_tokens", reply.Usage.InputTokens, "output_tokens", reply.Usage.OutputTokens)
		}

		msg := reply.Message
		msg.Role = "assistant"
		for i := range msg.ToolCalls {
			if msg.ToolCalls[i].ID == "" {
				msg.ToolCalls[i].ID = "call_" + uuid.NewString()
			}
		}
		a.messages = append(a.messages, msg)

		if len(msg.ToolCalls) == 0 {
			a.render.Markdown(msg.Content)
			a.render.ContextLine(reply.Usage, a.provider.MaxContext())
			return msg.Content, nil
		}

		if msg.Content != "" {
			a.render.Markdown(msg.Content)
		}
		for _, tc := range msg.ToolCalls {
			a.messages = append(a.messages, a.invoke(ctx, tc))
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w (%d turns)", ErrMaxTurns, a.cfg.MaxTurns)
}

// invoke runs one tool call and turns the outcome into a tool message.
// A failing tool is reported to the model, not retried.
func (a *Agent) invoke(ctx context.Context, tc ToolCall) Message {
	result, err := a.tools.InvokeTool(ctx, tc.Name, tc.Args)
	a.render.ToolCall(tc.Name, err != nil)
	if err != nil {
		a.logger.Error("tool call failed", "tool", tc.Name, "call_id", tc.ID, "err", err)
		return Message{Role: "tool", Content: failureResult(err), ToolCallID: tc.ID, IsError: true}
	}
	a.logger.Info("tool call", "tool", tc.Name, "call_id", tc.ID, "result", result)
	return Message{Role: "tool", Content: result, ToolCallID: tc.ID}
}

// RunLoop reads requests line by line until EOF or /exit. Ctrl+C cancels
// the request in flight, not the loop.
func (a *Agent) RunLoop(ctx context.Context, lines *lineReader) error {
	a.render.Banner(a.spec, a.provider)

	for {
		input, err := lines.ReadLine("> ")
		if errors.Is(err, io.EOF) {
			a.render.Println("Goodbye!")
			return nil
		}
		if err != nil {
			return err
		}

		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if strings.HasPrefix(input, "/") {
			if !a.handleSlashCommand(input) {
				return nil
			}
			continue
		}

		reqCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
		_, err = a.Run(reqCtx, input)
		stop()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			a.logger.Error("request failed", "err", err)
		}
	}
}

// handleSlashCommand returns false when the loop should stop.
func (a *Agent) handleSlashCommand(input string) bool {
	cmd, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/exit", "/quit":
		a.render.Println("Goodbye!")
		return false
	case "/new":
		a.Reset()
		a.render.Println("Started new conversation.")
	case "/info":
		a.render.Info(a.spec, a.provider, a.cfg.Output.Dir)
	case "/model":
		if arg == "" {
			a.render.Printf("Current model: %s\n", a.provider.Model())
			return true
		}
		cfg := a.cfg
		cfg.Providers = cloneProviders(a.cfg.Providers)
		cfg.SetModel(arg)
		a.switchProvider(cfg)
	case "/provider":
		if arg == "" {
			a.render.Printf("Current provider: %s\n", a.provider.Name())
			return true
		}
		cfg := a.cfg
		cfg.Provider = arg
		a.switchProvider(cfg)
	case "/help":
		a.render.Help()
	default:
		a.render.Printf("Unknown command: %s (try /help)\n", cmd)
	}
	return true
}

func (a *Agent) switchProvider(cfg Config) {
	p, err := a.newProvider(cfg.Provider, cfg)
	if err != nil {
		a.logger.Error("switching provider", "provider", cfg.Provider, "err", err)
		return
	}
	a.cfg = cfg
	a.provider = p
	a.render.Printf("Using %s (%s).\n", p.Name(), p.Model())
}

func cloneProviders(in map[string]ProviderConfig) map[string]ProviderConfig {
	out := make(map[string]ProviderConfig, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
