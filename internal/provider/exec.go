package provider

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"
)

// ExecProvider invokes an LLM through a local CLI command. Any CLI that
// accepts the prompt as its final argument and prints the completion to
// stdout works (claude, gemini, qwen, etc).
type ExecProvider struct {
	name         string
	command      string
	args         []string
	defaultModel string
	models       []string
	timeout      time.Duration
}

// NewExecProvider creates a CLI-backed provider from config.
func NewExecProvider(cfg Config) *ExecProvider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Minute
	}

	return &ExecProvider{
		name:         cfg.Name,
		command:      cfg.Command,
		args:         cfg.Args,
		defaultModel: cfg.DefaultModel,
		models:       cfg.Models,
		timeout:      timeout,
	}
}

// Name returns the provider identifier.
func (p *ExecProvider) Name() string { return p.name }

// DisplayName returns the human-friendly name.
func (p *ExecProvider) DisplayName() string { return p.command + " (CLI)" }

// Models returns available models.
func (p *ExecProvider) Models() []string { return p.models }

// DefaultModel returns the default model.
func (p *ExecProvider) DefaultModel() string { return p.defaultModel }

// Available checks if the CLI is installed.
func (p *ExecProvider) Available() bool {
	_, err := exec.LookPath(p.command)
	return err == nil
}

// Generate sends a prompt to the CLI and returns the response.
func (p *ExecProvider) Generate(ctx context.Context, prompt string) (string, error) {
	return p.run(ctx, prompt, nil)
}

// GenerateWithModel sends a prompt using a specific model.
func (p *ExecProvider) GenerateWithModel(ctx context.Context, prompt, model string) (string, error) {
	if model == "" {
		model = p.defaultModel
	}
	var extra []string
	if model != "" {
		extra = []string{"--model", model}
	}
	return p.run(ctx, prompt, extra)
}

func (p *ExecProvider) run(ctx context.Context, prompt string, extraArgs []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	allArgs := append(append(append([]string(nil), p.args...), extraArgs...), prompt)
	cmd := exec.CommandContext(ctx, p.command, allArgs...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", &CLIError{Provider: p.name, Message: "command timed out", Err: ctx.Err()}
		}
		if stderr.Len() > 0 {
			return "", &CLIError{Provider: p.name, Message: stderr.String(), Err: err}
		}
		return "", &CLIError{Provider: p.name, Message: "command failed", Err: err}
	}

	return strings.TrimSpace(stdout.String()), nil
}
