package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Lifecycle points a batch file can attach commands to.
const (
	BeforeBatch   = "before_batch"
	AfterBatch    = "after_batch"
	BeforeStudent = "before_student"
	AfterStudent  = "after_student"
)

// HookConfig defines a single hook command.
type HookConfig struct {
	Command          string `yaml:"command" json:"command"`
	WorkingDirectory string `yaml:"working_directory,omitempty" json:"working_directory,omitempty"`
	ExitCodes        []int  `yaml:"exit_codes,omitempty" json:"exit_codes,omitempty"`
	ErrorOnFail      bool   `yaml:"error_on_fail,omitempty" json:"error_on_fail,omitempty"`
}

// HooksConfig holds all lifecycle hooks.
type HooksConfig struct {
	BeforeBatch   []HookConfig `yaml:"before_batch,omitempty" json:"before_batch,omitempty"`
	AfterBatch    []HookConfig `yaml:"after_batch,omitempty" json:"after_batch,omitempty"`
	BeforeStudent []HookConfig `yaml:"before_student,omitempty" json:"before_student,omitempty"`
	AfterStudent  []HookConfig `yaml:"after_student,omitempty" json:"after_student,omitempty"`
}

// Empty reports whether no hooks are configured.
func (c HooksConfig) Empty() bool {
	return len(c.BeforeBatch)+len(c.AfterBatch)+len(c.BeforeStudent)+len(c.AfterStudent) == 0
}

// Runner executes hook commands at lifecycle points.
type Runner struct {
	Verbose bool
	Logger  *slog.Logger
}

// Execute runs all hooks for a given lifecycle point.
// name identifies the lifecycle point (e.g. "before_batch") for logging and error context.
// env entries are appended to the process environment as KEY=VALUE.
func (r *Runner) Execute(ctx context.Context, name string, hooks []HookConfig, env ...string) error {
	for i, h := range hooks {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("hook %s: context canceled: %w", name, err)
		}

		if err := r.runHook(ctx, name, i, h, env); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

func (r *Runner) runHook(ctx context.Context, name string, index int, h HookConfig, env []string) error {
	if strings.TrimSpace(h.Command) == "" {
		return fmt.Errorf("hook %s[%d]: empty command", name, index)
	}

	parts := strings.Fields(h.Command)
	//nolint:gosec // hook commands are user-configured in batch YAML, not untrusted input
	cmd := exec.CommandContext(ctx, parts[0], parts[1:]...)

	if h.WorkingDirectory != "" {
		cmd.Dir = h.WorkingDirectory
	}
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	output, err := cmd.CombinedOutput()

	if r.Verbose && len(output) > 0 {
		fmt.Printf("[hook:%s] %s\n", name, string(output))
	}

	log := r.logger().With("hook", name, "index", index)

	if err != nil {
		var exitErr *exec.ExitError
		if ok := errors.As(err, &exitErr); ok {
			exitCode := exitErr.ExitCode()

			if !isAcceptableExit(exitCode, h.ExitCodes) {
				if h.ErrorOnFail {
					return fmt.Errorf("hook %s[%d]: command exited with code %d", name, index, exitCode)
				}
				log.Warn("hook exited with unexpected code, continuing", "exit_code", exitCode)
			}
		} else {
			// Non-exit error (e.g. command not found)
			if h.ErrorOnFail {
				return fmt.Errorf("hook %s[%d]: %w", name, index, err)
			}
			log.Warn("hook failed, continuing", "error", err)
		}
		return nil
	}

	// err == nil means exit code 0; verify 0 is acceptable
	if !isAcceptableExit(0, h.ExitCodes) {
		if h.ErrorOnFail {
			return fmt.Errorf("hook %s[%d]: command exited with code 0 but expected %v", name, index, h.ExitCodes)
		}
		log.Warn("hook exited with code 0 but other codes were expected, continuing", "expected", h.ExitCodes)
	}

	return nil
}

// isAcceptableExit checks whether exitCode is in the allowed list.
// An empty allowedCodes list defaults to allowing only exit code 0.
func isAcceptableExit(exitCode int, allowedCodes []int) bool {
	if len(allowedCodes) == 0 {
		return exitCode == 0
	}
	for _, code := range allowedCodes {
		if exitCode == code {
			return true
		}
	}
	return false
}
