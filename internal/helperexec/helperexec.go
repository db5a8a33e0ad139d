// Package helperexec runs git credential helper commands and speaks the
// protocol they expect: "key=value" attribute lines over stdin and stdout,
// terminated by a blank line.
package helperexec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Attributes are the credential protocol fields handed to a helper's
// stdin for the "get" operation.
type Attributes struct {
	Protocol string
	Host     string
	Path     string
	Username string
}

// Encode renders the attributes as protocol lines with the terminating
// blank line. Empty fields are omitted, matching what git sends.
func (a Attributes) Encode() string {
	var b strings.Builder
	write := func(key, value string) {
		if value == "" {
			return
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
		b.WriteByte('\n')
	}
	write("protocol", a.Protocol)
	write("host", a.Host)
	write("path", a.Path)
	write("username", a.Username)
	b.WriteByte('\n')
	return b.String()
}

// Decode parses a helper reply into attribute key/value pairs. Parsing
// stops at the first blank line; values keep any '=' they contain. A
// non-blank line without '=' is malformed.
func Decode(reply string) (map[string]string, error) {
	attrs := make(map[string]string)
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			break
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("malformed credential attribute line %q", line)
		}
		attrs[key] = value
	}
	return attrs, nil
}

// Result holds the output from one helper execution.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// CommandRunner executes helper commands as subprocesses.
type CommandRunner struct {
	// Env entries are appended to the inherited environment.
	Env map[string]string
}

// NewCommandRunner creates a runner with the default environment.
func NewCommandRunner() *CommandRunner {
	return &CommandRunner{}
}

// Run executes argv with input on stdin and returns its stdout. A non-zero
// exit is an error carrying the exit code and the helper's stderr. It
// satisfies the runner interface the credential sources consume.
func (r *CommandRunner) Run(ctx context.Context, argv []string, input string) (string, error) {
	result, err := r.Exec(ctx, argv, input)
	if err != nil {
		return "", err
	}
	if result.ExitCode != 0 {
		msg := strings.TrimSpace(result.Stderr)
		if msg == "" {
			msg = "no error output"
		}
		return "", fmt.Errorf("helper exited with code %d: %s", result.ExitCode, msg)
	}
	return result.Stdout, nil
}

// Exec executes argv and captures its output. Unlike Run it reports a
// non-zero exit through Result.ExitCode rather than an error, so callers
// can inspect stderr themselves.
func (r *CommandRunner) Exec(ctx context.Context, argv []string, input string) (*Result, error) {
	if len(argv) == 0 {
		return nil, errors.New("helper command is empty")
	}

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if input != "" {
		cmd.Stdin = strings.NewReader(input)
	}
	if len(r.Env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range r.Env {
			cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
		}
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = &stdoutBuf
	cmd.Stderr = &stderrBuf

	err := cmd.Run()
	result := &Result{
		Stdout: stdoutBuf.String(),
		Stderr: stderrBuf.String(),
	}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		result.ExitCode = 0
	case errors.As(err, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		// The process never ran (not found, permission, canceled context).
		return nil, fmt.Errorf("running helper %q: %w", argv[0], err)
	}

	return result, nil
}
