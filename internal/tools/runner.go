package tools

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/danmuck/emberctl/internal/protocol/ber"
	"github.com/rs/zerolog/log"
)

var ErrEmptyCommand = errors.New("tools: empty command")

// CommandRunner abstracts command execution so handlers can be tested
// without a host.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error)
}

// ExecRunner executes commands on the local host.
type ExecRunner struct{}

func (r ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, int32, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), stderr.Bytes(), 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return stdout.Bytes(), stderr.Bytes(), int32(exitErr.ExitCode()), err
	}

	exitCode := int32(1)
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		exitCode = 127
	}
	return stdout.Bytes(), stderr.Bytes(), exitCode, err
}

// CommandHandler returns a function handler running command through runner.
// Arguments are appended in their text form. A non-zero exit fails the
// invocation with stderr in the error.
func CommandHandler(runner CommandRunner, command []string, timeout time.Duration) (func([]ber.Value) ([]ber.Value, error), error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, ErrEmptyCommand
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	name, fixed := command[0], append([]string{}, command[1:]...)
	return func(args []ber.Value) ([]ber.Value, error) {
		argv := append([]string{}, fixed...)
		for _, a := range args {
			argv = append(argv, argText(a))
		}
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		started := time.Now()
		stdout, stderr, code, err := runner.Run(ctx, name, argv...)
		log.Debug().
			Str("command", name).
			Strs("args", argv).
			Int32("exit_code", code).
			Dur("took", time.Since(started)).
			Msg("function command finished")
		if err != nil {
			msg := strings.TrimSpace(string(stderr))
			if msg == "" {
				msg = err.Error()
			}
			return nil, fmt.Errorf("%s exited %d: %s", name, code, msg)
		}
		return []ber.Value{
			ber.StringValue(strings.TrimSpace(string(stdout))),
			ber.IntegerValue(int64(code)),
		}, nil
	}, nil
}

func argText(v ber.Value) string {
	if v.Type == ber.ValueString {
		return v.String
	}
	return v.Format()
}
