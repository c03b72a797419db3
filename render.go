package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

const maxWrapWidth = 100

// Renderer prints model output. On a terminal replies are rendered as
// markdown with colors; anywhere else they are printed as-is.
type Renderer struct {
	out   io.Writer
	md    *glamour.TermRenderer
	color bool
}

func NewRenderer(out io.Writer) *Renderer {
	r := &Renderer{out: out}

	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return r
	}
	r.color = true

	width := maxWrapWidth
	if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 20 && w-2 < width {
		width = w - 2
	}
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		r.md = md
	}
	return r
}

func (r *Renderer) Markdown(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	if r.md != nil {
		if out, err := r.md.Render(text); err == nil {
			fmt.Fprint(r.out, out)
			return
		}
	}
	fmt.Fprintln(r.out, text)
}

func (r *Renderer) ToolCall(name string, failed bool) {
	switch {
	case !r.color && failed:
		fmt.Fprintf(r.out, "! %s (failed)\n", name)
	case !r.color:
		fmt.Fprintf(r.out, "> %s\n", name)
	case failed:
		fmt.Fprintf(r.out, "\033[31m✗ %s (failed)\033[0m\n", name)
	default:
		fmt.Fprintf(r.out, "\033[36m▶ %s\033[0m\n", name)
	}
}

func (r *Renderer) ContextLine(usage *Usage, maxContext int) {
	if usage == nil {
		return
	}
	total := float64(usage.InputTokens+usage.OutputTokens) / 1000
	line := fmt.Sprintf("── ctx: %.1fk/%.0fk tokens ──", total, float64(maxContext)/1000)
	if r.color {
		line = "\033[2m" + line + "\033[0m"
	}
	fmt.Fprintln(r.out, line)
}

// Thinking shows a spinner until the returned func is called. Outside a
// terminal it does nothing.
func (r *Renderer) Thinking() (stop func()) {
	if !r.color {
		return func() {}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Writer = r.out
	s.Suffix = " thinking..."
	s.Start()
	return s.Stop
}

func (r *Renderer) Printf(format string, args ...any) { fmt.Fprintf(r.out, format, args...) }
func (r *Renderer) Println(args ...any)               { fmt.Fprintln(r.out, args...) }

func (r *Renderer) Banner(spec AgentSpec, p Provider) {
	fmt.Fprintf(r.out, "sitebuilder v%s · %s · %s/%s\n", version, spec.Name, p.Name(), p.Model())
	fmt.Fprintln(r.out, "Describe the website you want. /help for commands.")
	fmt.Fprintln(r.out)
}

func (r *Renderer) Info(spec AgentSpec, p Provider, outputDir string) {
	fmt.Fprintf(r.out, "Agent:       %s\n", spec.Name)
	fmt.Fprintf(r.out, "Description: %s\n", strings.TrimSpace(spec.Description))
	fmt.Fprintf(r.out, "Provider:    %s\n", p.Name())
	fmt.Fprintf(r.out, "Model:       %s\n", p.Model())
	fmt.Fprintf(r.out, "Output dir:  %s\n", outputDir)
}

func (r *Renderer) Help() {
	fmt.Fprintln(r.out, `Commands:
  /new           Start a new conversation
  /info          Show agent, model and output directory
  /model <name>  Switch model
  /provider <n>  Switch provider
  /help          Show this help
  /exit          Quit

Keys:
  Ctrl+C         Cancel the current request
  Ctrl+D         Exit`)
}
