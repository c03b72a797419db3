package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	configDirName = ".sitebuilder"
	envPrefix     = "SITEBUILDER_"
)

// ProviderConfig holds per-provider LLM settings.
type ProviderConfig struct {
	APIKey string `koanf:"api_key"`
	Model  string `koanf:"model"`
	URL    string `koanf:"url"`
}

type AgentConfig struct {
	Name             string `koanf:"name" validate:"required"`
	InstructionsFile string `koanf:"instructions_file"`
	DescriptionFile  string `koanf:"description_file"`
}

type OutputConfig struct {
	Dir         string `koanf:"dir" validate:"required"`
	UniqueNames bool   `koanf:"unique_names"`
}

type LogConfig struct {
	Level   string `koanf:"level" validate:"omitempty,oneof=debug info warn warning error"`
	NoColor bool   `koanf:"no_color"`
}

type Config struct {
	Provider  string                    `koanf:"provider" validate:"required,oneof=gemini anthropic openai openrouter ollama bedrock"`
	Providers map[string]ProviderConfig `koanf:"providers"`
	MaxTokens int                       `koanf:"max_tokens" validate:"min=0"`
	MaxTurns  int                       `koanf:"max_turns" validate:"min=1,max=100"`
	Agent     AgentConfig               `koanf:"agent"`
	Output    OutputConfig              `koanf:"output"`
	Log       LogConfig                 `koanf:"log"`
}

func DefaultConfig() Config {
	return Config{
		Provider: "gemini",
		Providers: map[string]ProviderConfig{
			"gemini":     {Model: "gemini-2.0-flash-001"},
			"anthropic":  {Model: "claude-sonnet-4-20250514"},
			"openai":     {Model: "gpt-4o"},
			"openrouter": {Model: "google/gemini-2.0-flash-001", URL: "https://openrouter.ai/api/v1"},
			"ollama":     {Model: "qwen2.5-coder:14b", URL: "http://localhost:11434"},
			"bedrock":    {Model: "anthropic.claude-sonnet-4-20250514-v1:0"},
		},
		MaxTokens: 8192,
		MaxTurns:  10,
		Agent: AgentConfig{
			Name:             "website_builder_simple",
			InstructionsFile: filepath.Join("prompts", "instructions.txt"),
			DescriptionFile:  filepath.Join("prompts", "description.txt"),
		},
		Output: OutputConfig{Dir: DefaultOutputDir},
		Log:    LogConfig{Level: "info"},
	}
}

// ProviderCfg returns the config for a named provider (never nil-like).
func (c Config) ProviderCfg(name string) ProviderConfig {
	if pc, ok := c.Providers[name]; ok {
		return pc
	}
	return ProviderConfig{}
}

// SetModel overrides the model of the active provider.
func (c *Config) SetModel(model string) {
	if c.Providers == nil {
		c.Providers = make(map[string]ProviderConfig)
	}
	pc := c.Providers[c.Provider]
	pc.Model = model
	c.Providers[c.Provider] = pc
}

// LoadConfig builds the final config by cascading layers:
//  1. Hardcoded defaults
//  2. ~/.sitebuilder/config.json (user-wide)
//  3. .sitebuilder/config.json (project)
//  4. explicit --config file, which must exist
//  5. SITEBUILDER_* environment variables, "__" separating nested keys
//  6. provider API key variables (GEMINI_API_KEY, ...)
func LoadConfig(explicit string) (Config, error) {
	var paths []string
	if p := UserConfigPath(); p != "" {
		paths = append(paths, p)
	}
	paths = append(paths, filepath.Join(configDirName, "config.json"))
	return loadConfig(paths, explicit)
}

func loadConfig(paths []string, explicit string) (Config, error) {
	k := koanf.New(".")

	for key, value := range defaultValues() {
		k.Set(key, value)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config %s: %w", path, err)
		}
	}

	if explicit != "" {
		if err := k.Load(file.Provider(explicit), json.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading config %s: %w", explicit, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}
	applyAPIKeyEnv(k)

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func defaultValues() map[string]any {
	d := DefaultConfig()
	vals := map[string]any{
		"provider":                d.Provider,
		"max_tokens":              d.MaxTokens,
		"max_turns":               d.MaxTurns,
		"agent.name":              d.Agent.Name,
		"agent.instructions_file": d.Agent.InstructionsFile,
		"agent.description_file":  d.Agent.DescriptionFile,
		"output.dir":              d.Output.Dir,
		"output.unique_names":     d.Output.UniqueNames,
		"log.level":               d.Log.Level,
		"log.no_color":            d.Log.NoColor,
	}
	for name, pc := range d.Providers {
		vals["providers."+name+".model"] = pc.Model
		if pc.URL != "" {
			vals["providers."+name+".url"] = pc.URL
		}
	}
	return vals
}

// envTransform maps SITEBUILDER_OUTPUT__DIR to output.dir and
// SITEBUILDER_MAX_TURNS to max_turns.
func envTransform(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

// Later entries win, so GEMINI_API_KEY beats GOOGLE_API_KEY.
var apiKeyEnv = []struct{ env, key string }{
	{"GOOGLE_API_KEY", "providers.gemini.api_key"},
	{"GEMINI_API_KEY", "providers.gemini.api_key"},
	{"ANTHROPIC_API_KEY", "providers.anthropic.api_key"},
	{"OPENAI_API_KEY", "providers.openai.api_key"},
	{"OPENROUTER_API_KEY", "providers.openrouter.api_key"},
	{"OLLAMA_HOST", "providers.ollama.url"},
}

func applyAPIKeyEnv(k *koanf.Koanf) {
	for _, e := range apiKeyEnv {
		if v := os.Getenv(e.env); v != "" {
			k.Set(e.key, v)
		}
	}
}

// UserConfigPath returns the path to the user-wide config file, or "" when
// the home directory is unknown.
func UserConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, configDirName, "config.json")
}

// SaveConfig merges the provider part of cfg into the file at path. Keys
// already in the file that cfg does not set are kept, and only non-empty
// provider fields are stored so the file stays a thin override layer.
func SaveConfig(path string, cfg Config) error {
	k := koanf.New(".")
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), json.Parser()); err != nil {
			return fmt.Errorf("loading existing config %s: %w", path, err)
		}
	}

	k.Set("provider", cfg.Provider)
	for name, pc := range cfg.Providers {
		prefix := "providers." + name + "."
		if pc.APIKey != "" {
			k.Set(prefix+"api_key", pc.APIKey)
		}
		if pc.Model != "" {
			k.Set(prefix+"model", pc.Model)
		}
		if pc.URL != "" {
			k.Set(prefix+"url", pc.URL)
		}
	}

	data, err := k.Marshal(json.Parser())
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// providerReady returns true if the active provider has enough config to initialize.
func providerReady(cfg Config) bool {
	switch cfg.Provider {
	case "ollama", "bedrock":
		return true // ollama needs no key, bedrock uses the AWS credential chain
	default:
		return cfg.ProviderCfg(cfg.Provider).APIKey != ""
	}
}
