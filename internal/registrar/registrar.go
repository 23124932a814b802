// Package registrar wraps the external identity registration call and
// classifies its three possible outcomes.
package registrar

import (
	"context"
	"errors"

	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"github.com/twx-tools/twx-deploy/internal/logging"
	"github.com/twx-tools/twx-deploy/internal/sdfcli"
)

// Outcome is the result of attempting to register an auth id. It drives all
// downstream branching and is never coerced to success.
type Outcome string

const (
	// OutcomeSuccess: no prior registration existed, the identity now
	// binds the resolved credentials.
	OutcomeSuccess Outcome = "success"

	// OutcomeAlreadyRegistered: the auth id exists with credentials of
	// unknown freshness. The caller must refresh before deploying.
	OutcomeAlreadyRegistered Outcome = "already_registered"

	// OutcomeFailed: the registration call failed for any other reason.
	OutcomeFailed Outcome = "failed"
)

// Registrar performs registration calls. It holds no retry logic; what an
// "already registered" outcome means for the deployment is the
// orchestrator's decision.
type Registrar struct {
	runner sdfcli.Runner
	logger *logging.Logger
}

// New creates a registrar.
func New(runner sdfcli.Runner, logger *logging.Logger) *Registrar {
	return &Registrar{runner: runner, logger: logger}
}

// Register attempts to register the auth identity. The error is non-nil only
// for OutcomeFailed.
func (r *Registrar) Register(ctx context.Context, params sdfcli.SetupParams) (Outcome, error) {
	err := r.runner.SetupCI(ctx, params)
	if err == nil {
		r.logger.Debug("auth id %s registered", params.AuthID)
		return OutcomeSuccess, nil
	}

	var execErr *sdfcli.ExecError
	if errors.As(err, &execErr) && IsAlreadyRegistered(execErr.Output) {
		r.logger.Debug("auth id %s already registered", params.AuthID)
		return OutcomeAlreadyRegistered, nil
	}

	return OutcomeFailed, twxerrors.RegistrationError{
		AuthID: params.AuthID,
		Output: outputOf(execErr),
		Err:    err,
	}
}

func outputOf(execErr *sdfcli.ExecError) string {
	if execErr == nil {
		return ""
	}
	return execErr.Output
}
