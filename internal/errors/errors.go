package errors

import (
	"fmt"
	"strings"
)

// UserError is an error shown to the user with actionable context.
type UserError struct {
	Message    string
	Suggestion string
	Details    string
	Err        error
}

func (e UserError) Error() string {
	var parts []string

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}

	if e.Details != "" {
		parts = append(parts, "\n  Details: "+e.Details)
	}

	if e.Suggestion != "" {
		parts = append(parts, "\n  💡 Try: "+e.Suggestion)
	}

	return strings.Join(parts, "")
}

func (e UserError) Unwrap() error {
	return e.Err
}

// ConfigError reports a missing or invalid project configuration value.
// Deployment never starts when one of these is returned.
type ConfigError struct {
	Field      string
	Value      interface{}
	Message    string
	Suggestion string
}

func (e ConfigError) Error() string {
	msg := "Configuration error"
	if e.Field != "" {
		msg += fmt.Sprintf(" in field '%s'", e.Field)
	}
	if e.Value != nil {
		msg += fmt.Sprintf(" (value: %v)", e.Value)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// CredentialError reports that no certificate id or private key could be
// resolved for an environment. Deployment never starts.
type CredentialError struct {
	Environment string
	What        string
	Message     string
	Suggestion  string
}

func (e CredentialError) Error() string {
	msg := fmt.Sprintf("Credential error for environment '%s'", e.Environment)
	if e.What != "" {
		msg += fmt.Sprintf(" (%s)", e.What)
	}
	msg += ": " + e.Message

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// KeyFileNotFoundError reports that the resolved private key path does not
// reference a readable file. Raised at resolution time so the failure stays
// local instead of surfacing later from the external CLI.
type KeyFileNotFoundError struct {
	Path string
	Err  error
}

func (e KeyFileNotFoundError) Error() string {
	return fmt.Sprintf("private key file not found or unreadable: %s", e.Path)
}

func (e KeyFileNotFoundError) Unwrap() error {
	return e.Err
}

// RegistrationError reports that the external identity registration failed
// for a reason other than "already registered".
type RegistrationError struct {
	AuthID string
	Output string
	Err    error
}

func (e RegistrationError) Error() string {
	msg := fmt.Sprintf("registration of auth id '%s' failed", e.AuthID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e RegistrationError) Unwrap() error {
	return e.Err
}

// RefreshError reports that a credential refresh could not safely complete.
// StoreIntact states whether the credential store matches its pre-refresh
// content; callers must surface this explicitly, never leave it implied.
type RefreshError struct {
	AuthID      string
	StoreIntact bool
	Err         error
}

func (e RefreshError) Error() string {
	msg := fmt.Sprintf("credential refresh for auth id '%s' failed", e.AuthID)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.StoreIntact {
		msg += "\n  The credential store was restored to its pre-refresh state."
	} else {
		msg += "\n  ⚠ The credential store could NOT be restored; re-register this auth id before the next deployment."
	}
	return msg
}

func (e RefreshError) Unwrap() error {
	return e.Err
}

// CommandError reports a failed external command.
type CommandError struct {
	Command    string
	ExitCode   int
	Message    string
	Suggestion string
}

func (e CommandError) Error() string {
	msg := fmt.Sprintf("Command '%s' failed", e.Command)
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" (exit code: %d)", e.ExitCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}

	if e.Suggestion != "" {
		msg += "\n  💡 " + e.Suggestion
	}

	return msg
}

// Phase names the deployment stage an error belongs to.
type Phase string

const (
	PhaseResolution   Phase = "resolution"
	PhaseRegistration Phase = "registration"
	PhaseRefresh      Phase = "refresh"
	PhaseValidation   Phase = "validation"
	PhaseBuild        Phase = "build"
	PhaseDeploy       Phase = "deploy"
)

// PhaseError wraps an error with the deployment phase it occurred in, so
// every failure names the stage that produced it.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e PhaseError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Phase, e.Err)
}

func (e PhaseError) Unwrap() error {
	return e.Err
}

// InPhase wraps err with the given phase, passing nil through unchanged.
func InPhase(phase Phase, err error) error {
	if err == nil {
		return nil
	}
	return PhaseError{Phase: phase, Err: err}
}
