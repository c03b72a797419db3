package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

var errSetupCancelled = errors.New("setup cancelled")

type providerOption struct {
	name    string
	label   string
	needKey bool
}

var providerMenu = []providerOption{
	{"gemini", "gemini       (Gemini — recommended)", true},
	{"anthropic", "anthropic    (Claude)", true},
	{"openai", "openai       (GPT-4o)", true},
	{"openrouter", "openrouter   (Multi-model gateway)", true},
	{"ollama", "ollama       (Local — no API key needed)", false},
	{"bedrock", "bedrock      (AWS — uses env credentials)", false},
}

// runSetupWizard asks for provider, key and model, updates cfg and saves
// the choice to savePath. An empty answer keeps the default shown in brackets.
func runSetupWizard(lines *lineReader, out io.Writer, cfg *Config, savePath string) error {
	ask := func(question string) (string, error) {
		answer, err := lines.Ask(question)
		if errors.Is(err, io.EOF) {
			return "", errSetupCancelled
		}
		return strings.TrimSpace(answer), err
	}

	fmt.Fprintln(out, "  Provider:")
	fmt.Fprintln(out)
	for i, p := range providerMenu {
		fmt.Fprintf(out, "    %d. %s\n", i+1, p.label)
	}
	fmt.Fprintln(out)

	answer, err := ask("  Choice [1]: ")
	if err != nil {
		return err
	}
	choice := 1
	if answer != "" {
		n, err := strconv.Atoi(answer)
		if err != nil || n < 1 || n > len(providerMenu) {
			return fmt.Errorf("invalid choice %q", answer)
		}
		choice = n
	}

	selected := providerMenu[choice-1]
	if cfg.Providers == nil {
		cfg.Providers = make(map[string]ProviderConfig)
	}
	pc := cfg.ProviderCfg(selected.name)

	if selected.needKey {
		key, err := ask("  API key: ")
		if err != nil {
			return err
		}
		if key == "" {
			return fmt.Errorf("%s: %w", selected.name, ErrMissingAPIKey)
		}
		pc.APIKey = key
		fmt.Fprintf(out, "  Key:     %s\n", maskKey(key))
	}

	if selected.name == "ollama" {
		url := pc.URL
		if url == "" {
			url = "http://localhost:11434"
		}
		answer, err := ask(fmt.Sprintf("  URL [%s]: ", url))
		if err != nil {
			return err
		}
		if answer != "" {
			url = answer
		}
		pc.URL = url
	}

	model := pc.Model
	if model == "" {
		model = DefaultConfig().ProviderCfg(selected.name).Model
	}
	answer, err = ask(fmt.Sprintf("  Model [%s]: ", model))
	if err != nil {
		return err
	}
	if answer != "" {
		model = answer
	}
	pc.Model = model

	cfg.Provider = selected.name
	cfg.Providers[selected.name] = pc

	saved := Config{Provider: selected.name, Providers: map[string]ProviderConfig{selected.name: pc}}
	if err := SaveConfig(savePath, saved); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(out, "\n  Saved to %s\n\n", savePath)
	return nil
}

// maskKey shows the first 8 and last 4 characters of a key.
func maskKey(key string) string {
	if len(key) <= 12 {
		return strings.Repeat("*", len(key))
	}
	return key[:8] + strings.Repeat("*", len(key)-12) + key[len(key)-4:]
}
