package manager

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"go.uber.org/zap"
)

// Result is the captured output of one finished command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Runner executes one package manager command, e.g. Run(ctx, "search", "git").
// A non-zero exit is returned as a *CommandError.
type Runner interface {
	Run(ctx context.Context, args ...string) (Result, error)
}

// ShellRunner runs Tool through Shell and waits for it. There is no retry
// and no timeout. A done ctx stops the command from starting, but a command
// that has started always runs to completion.
type ShellRunner struct {
	Shell  Shell
	Tool   string
	Logger *zap.Logger
}

func NewShellRunner(shell Shell, tool string, logger *zap.Logger) *ShellRunner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShellRunner{Shell: shell, Tool: tool, Logger: logger.Named("exec")}
}

func (r *ShellRunner) Run(ctx context.Context, args ...string) (Result, error) {
	argv := append([]string{r.Tool}, args...)
	if err := ctx.Err(); err != nil {
		return Result{ExitCode: -1}, &CommandError{Args: argv, ExitCode: -1, Err: err}
	}

	shellArgv := r.Shell.Argv(r.Shell.CommandLine(argv))
	cmd := exec.Command(shellArgv[0], shellArgv[1:]...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	} else {
		res.ExitCode = -1
	}

	r.Logger.Debug("command finished",
		zap.Strings("argv", argv),
		zap.Int("exit_code", res.ExitCode),
		zap.Duration("took", time.Since(start)),
	)

	if err != nil {
		cerr := &CommandError{Args: argv, ExitCode: res.ExitCode, Stdout: res.Stdout, Stderr: res.Stderr}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			cerr.Err = err
		}
		return res, cerr
	}
	return res, nil
}
