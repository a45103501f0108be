// Package external drives training and evaluation through user supplied
// commands. Each call writes one JSON request to the command's stdin and
// reads one JSON response from its stdout.
package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/haskel/variantlab/internal/config"
)

const (
	stderrTail = 2048
	waitDelay  = 2 * time.Second
)

// ErrCommandFailed wraps non-zero exits of the external command.
var ErrCommandFailed = errors.New("external command failed")

// Runner executes one configured command per call.
type Runner struct {
	cmd     config.CommandConfig
	timeout time.Duration
	logger  *slog.Logger
}

// NewRunner creates a Runner. A zero timeout means calls are bounded only by
// the caller's context.
func NewRunner(cmd config.CommandConfig, timeout time.Duration, logger *slog.Logger) *Runner {
	return &Runner{cmd: cmd, timeout: timeout, logger: logger}
}

// Call sends req and decodes the response into resp.
func (r *Runner) Call(ctx context.Context, op string, req, resp any) error {
	if r.cmd.Command == "" {
		return fmt.Errorf("%s: no command configured", op)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("%s: encode request: %w", op, err)
	}

	cmd := exec.CommandContext(ctx, r.cmd.Command, r.cmd.Args...)
	cmd.Dir = r.cmd.Dir
	// Children that inherit stdout would otherwise keep Wait blocked after a kill.
	cmd.WaitDelay = waitDelay
	cmd.Env = os.Environ()
	for k, v := range r.cmd.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Env = append(cmd.Env, "VARIANTLAB_OP="+op)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err = cmd.Run()
	r.logger.Debug("external command finished",
		"op", op,
		"command", r.cmd.Command,
		"duration", time.Since(start),
		"error", err,
	)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s: %w", op, ctxErr)
		}
		return fmt.Errorf("%s: %w: %v: %s", op, ErrCommandFailed, err, tail(stderr.String()))
	}

	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), resp); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		s = "..." + s[len(s)-stderrTail:]
	}
	return s
}
