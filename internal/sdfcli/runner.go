// Package sdfcli wraps the external suitecloud CLI. Every invocation runs
// with the CI-mode flag exported so the CLI never falls back to an
// interactive browser prompt.
package sdfcli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"github.com/twx-tools/twx-deploy/internal/logging"
	"github.com/twx-tools/twx-deploy/internal/secure"
)

const (
	// DefaultBinary is the suitecloud CLI executable name.
	DefaultBinary = "suitecloud"

	// ciFlagVar tells the CLI to run unattended.
	ciFlagVar = "SUITECLOUD_CI"

	// passkeyVar carries the CI passkey to the CLI. Passed through the
	// process environment, never argv, so it stays out of ps output.
	passkeyVar = "SUITECLOUD_CI_PASSKEY"
)

// SetupParams are the inputs to an identity registration call.
type SetupParams struct {
	AuthID         string
	AccountID      string
	CertificateID  string
	PrivateKeyPath string
	Passkey        *secure.Buffer
}

// Runner abstracts the external CLI so the auth lifecycle can be exercised
// without a suitecloud installation.
type Runner interface {
	// SetupCI registers the auth identity. Failures carry the CLI output
	// as an *ExecError for outcome classification.
	SetupCI(ctx context.Context, params SetupParams) error

	// Validate runs project validation against the target account.
	Validate(ctx context.Context, projectDir string) error

	// Deploy pushes the project to the target account.
	Deploy(ctx context.Context, projectDir string, dryRun bool) error

	// Build runs the configured build command in dir.
	Build(ctx context.Context, command, dir string) error
}

// ExecError is a failed external invocation with its captured output.
type ExecError struct {
	Command  string
	ExitCode int
	Output   string
}

func (e *ExecError) Error() string {
	msg := fmt.Sprintf("command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code %d)", e.ExitCode)
	}
	if e.Output != "" {
		msg += ": " + strings.TrimSpace(e.Output)
	}
	return msg
}

// CLI runs the real suitecloud binary.
type CLI struct {
	binary string
	logger *logging.Logger
}

// New creates a runner for the default suitecloud binary.
func New(logger *logging.Logger) *CLI {
	return NewWithBinary(DefaultBinary, logger)
}

// NewWithBinary creates a runner for a specific executable path.
func NewWithBinary(binary string, logger *logging.Logger) *CLI {
	return &CLI{binary: binary, logger: logger}
}

// SetupCI invokes account:setup:ci. Output is captured rather than streamed:
// the registrar needs it for classification, and it may echo account detail
// that has no business in the deployment log.
func (c *CLI) SetupCI(ctx context.Context, params SetupParams) error {
	args := setupArgs(params)

	cmd := exec.CommandContext(ctx, c.binary, args...)

	var passkey string
	if params.Passkey != nil {
		locked, err := params.Passkey.Open()
		if err != nil {
			return fmt.Errorf("opening passkey buffer: %w", err)
		}
		defer locked.Destroy()
		passkey = locked.String()
	}
	cmd.Env = ciEnviron(passkey)

	c.logger.Debug("running %s %s", c.binary, strings.Join(args, " "))

	output, err := cmd.CombinedOutput()
	if err != nil {
		return &ExecError{
			Command:  c.binary + " account:setup:ci",
			ExitCode: exitCode(err),
			Output:   logging.Redact(string(output), []string{passkey}),
		}
	}
	return nil
}

// Validate invokes project:validate, streaming the CLI's diagnostics.
func (c *CLI) Validate(ctx context.Context, projectDir string) error {
	return c.stream(ctx, projectDir, "project:validate")
}

// Deploy invokes project:deploy, streaming the CLI's output.
func (c *CLI) Deploy(ctx context.Context, projectDir string, dryRun bool) error {
	args := []string{"project:deploy"}
	if dryRun {
		args = append(args, "--dryrun")
	}
	return c.stream(ctx, projectDir, args...)
}

// Build runs the configured build command through the shell.
func (c *CLI) Build(ctx context.Context, command, dir string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	c.logger.Debug("running build command: %s", command)

	if err := cmd.Run(); err != nil {
		return twxerrors.CommandError{
			Command:    command,
			ExitCode:   exitCode(err),
			Message:    err.Error(),
			Suggestion: "Check the build output above for details",
		}
	}
	return nil
}

func (c *CLI) stream(ctx context.Context, projectDir string, args ...string) error {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = projectDir
	cmd.Env = ciEnviron("")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	c.logger.Debug("running %s %s in %s", c.binary, strings.Join(args, " "), projectDir)

	if err := cmd.Run(); err != nil {
		return twxerrors.CommandError{
			Command:    c.binary + " " + args[0],
			ExitCode:   exitCode(err),
			Message:    err.Error(),
			Suggestion: "Check the suitecloud output above for details",
		}
	}
	return nil
}

// setupArgs builds the account:setup:ci argument list.
func setupArgs(params SetupParams) []string {
	return []string{
		"account:setup:ci",
		"--authid", params.AuthID,
		"--account", params.AccountID,
		"--certificateid", params.CertificateID,
		"--privatekeypath", params.PrivateKeyPath,
	}
}

// ciEnviron extends the process environment with the CI-mode flag and, when
// present, the passkey.
func ciEnviron(passkey string) []string {
	env := append(os.Environ(), ciFlagVar+"=1")
	if passkey != "" {
		env = append(env, passkeyVar+"="+passkey)
	}
	return env
}

// exitCode extracts the child exit code, or -1 when the process never ran.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
