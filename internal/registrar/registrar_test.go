package registrar

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"github.com/twx-tools/twx-deploy/internal/logging"
	"github.com/twx-tools/twx-deploy/internal/sdfcli"
)

// fakeRunner returns canned results for SetupCI.
type fakeRunner struct {
	setupErr error
	calls    int
}

func (f *fakeRunner) SetupCI(ctx context.Context, params sdfcli.SetupParams) error {
	f.calls++
	return f.setupErr
}

func (f *fakeRunner) Validate(ctx context.Context, projectDir string) error { return nil }

func (f *fakeRunner) Deploy(ctx context.Context, projectDir string, dryRun bool) error { return nil }

func (f *fakeRunner) Build(ctx context.Context, command, dir string) error { return nil }

func params() sdfcli.SetupParams {
	return sdfcli.SetupParams{
		AuthID:         "twx-ci-sb1",
		AccountID:      "1234567_SB1",
		CertificateID:  "cert-A",
		PrivateKeyPath: "/keys/sb1.pem",
	}
}

func TestRegister_Success(t *testing.T) {
	t.Parallel()

	r := New(&fakeRunner{}, logging.New(false, true))
	outcome, err := r.Register(context.Background(), params())

	require.NoError(t, err)
	assert.Equal(t, OutcomeSuccess, outcome)
}

func TestRegister_AlreadyRegistered(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{setupErr: &sdfcli.ExecError{
		Command:  "suitecloud account:setup:ci",
		ExitCode: 1,
		Output:   "The authentication ID twx-ci-sb1 is already in use.",
	}}

	r := New(runner, logging.New(false, true))
	outcome, err := r.Register(context.Background(), params())

	require.NoError(t, err)
	assert.Equal(t, OutcomeAlreadyRegistered, outcome)
}

func TestRegister_HardFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{setupErr: &sdfcli.ExecError{
		Command:  "suitecloud account:setup:ci",
		ExitCode: 1,
		Output:   "The certificate ID is invalid or has been revoked.",
	}}

	r := New(runner, logging.New(false, true))
	outcome, err := r.Register(context.Background(), params())

	assert.Equal(t, OutcomeFailed, outcome)

	var regErr twxerrors.RegistrationError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "twx-ci-sb1", regErr.AuthID)
	assert.Contains(t, regErr.Output, "invalid or has been revoked")
}

func TestRegister_NonExecErrorIsFailure(t *testing.T) {
	t.Parallel()

	runner := &fakeRunner{setupErr: errors.New("fork/exec: no such file or directory")}
	r := New(runner, logging.New(false, true))

	outcome, err := r.Register(context.Background(), params())
	assert.Equal(t, OutcomeFailed, outcome)
	require.Error(t, err)
}
