package main

import (
	_ "embed"
	"log/slog"
)

// The shipped prompt files double as the fallbacks for a missing or
// unreadable file at the configured path.
var (
	//go:embed prompts/instructions.txt
	defaultInstruction string

	//go:embed prompts/description.txt
	defaultDescription string
)

func loadAgentSpec(logger *slog.Logger, cfg AgentConfig) AgentSpec {
	spec := AgentSpec{
		Name:        cfg.Name,
		Instruction: defaultInstruction,
		Description: defaultDescription,
	}
	if cfg.InstructionsFile != "" {
		spec.Instruction = LoadTextFile(logger, cfg.InstructionsFile, defaultInstruction)
	}
	if cfg.DescriptionFile != "" {
		spec.Description = LoadTextFile(logger, cfg.DescriptionFile, defaultDescription)
	}
	return spec
}
