package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type rootOptions struct {
	configFile   string
	provider     string
	model        string
	outputDir    string
	instructions string
	description  string
	logLevel     string
	setup        bool
	showVersion  bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "sitebuilder [description...]",
		Short: "Generate a single-page website from a plain language description",
		Long: `sitebuilder asks a language model to build a web page from your description
and saves the result to <output-dir>/<YYMMDD_HHMMSS>_generated_page.html.

With a description as arguments it runs once; without, it starts a prompt.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.configFile, "config", "", "path to an extra JSON config file")
	f.StringVar(&opts.provider, "provider", "", "LLM provider ("+strings.Join(providerNames, ", ")+")")
	f.StringVarP(&opts.model, "model", "m", "", "model name")
	f.StringVar(&opts.outputDir, "output-dir", "", "directory generated pages are written to")
	f.StringVar(&opts.instructions, "instructions", "", "file with the agent instructions")
	f.StringVar(&opts.description, "description", "", "file with the agent description")
	f.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	f.BoolVar(&opts.setup, "setup", false, "run the provider setup wizard")
	f.BoolVar(&opts.showVersion, "version", false, "print version")

	return cmd
}

// apply layers command line flags over the loaded config.
func (o *rootOptions) apply(cfg *Config) {
	if o.provider != "" {
		cfg.Provider = o.provider
	}
	if o.model != "" {
		cfg.SetModel(o.model)
	}
	if o.outputDir != "" {
		cfg.Output.Dir = o.outputDir
	}
	if o.instructions != "" {
		cfg.Agent.InstructionsFile = o.instructions
	}
	if o.description != "" {
		cfg.Agent.DescriptionFile = o.description
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
}

func run(cmd *cobra.Command, opts *rootOptions, args []string) error {
	out := cmd.OutOrStdout()
	if opts.showVersion {
		fmt.Fprintf(out, "sitebuilder v%s\n", version)
		return nil
	}

	cfg, err := LoadConfig(opts.configFile)
	if err != nil {
		return err
	}
	opts.apply(&cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	level, err := parseLogLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), level, cfg.Log.NoColor)

	lines := newLineReader(cmd.InOrStdin(), out)

	if opts.setup || !providerReady(cfg) {
		if !opts.setup {
			fmt.Fprintln(out, "No provider configured. Let's set one up.")
			fmt.Fprintln(out)
		}
		savePath := UserConfigPath()
		if savePath == "" {
			savePath = filepath.Join(configDirName, "config.json")
		}
		if err := runSetupWizard(lines, out, &cfg, savePath); err != nil {
			return err
		}
	}

	provider, err := NewProvider(cfg.Provider, cfg)
	if err != nil {
		return err
	}

	writer := NewPageWriter(cfg.Output.Dir,
		WithUniqueNames(cfg.Output.UniqueNames),
		WithWriterLogger(logger),
	)
	tools := NewToolRegistry()
	registerPageTools(tools, writer)

	agent := NewAgent(loadAgentSpec(logger, cfg.Agent), provider, tools, cfg, logger, NewRenderer(out))

	if len(args) > 0 {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		_, err := agent.Run(ctx, strings.Join(args, " "))
		return err
	}
	return agent.RunLoop(cmd.Context(), lines)
}
