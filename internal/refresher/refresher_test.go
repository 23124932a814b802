package refresher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"github.com/twx-tools/twx-deploy/internal/logging"
	"github.com/twx-tools/twx-deploy/internal/registrar"
	"github.com/twx-tools/twx-deploy/internal/sdfcli"
)

// fakeRunner simulates the external CLI regenerating the credential store
// on a successful registration.
type fakeRunner struct {
	storePath  string
	newContent string
	setupErr   error
	setupCalls int
}

func (f *fakeRunner) SetupCI(ctx context.Context, params sdfcli.SetupParams) error {
	f.setupCalls++
	if f.setupErr != nil {
		return f.setupErr
	}
	if f.storePath != "" {
		return os.WriteFile(f.storePath, []byte(f.newContent), 0o600)
	}
	return nil
}

func (f *fakeRunner) Validate(ctx context.Context, projectDir string) error { return nil }

func (f *fakeRunner) Deploy(ctx context.Context, projectDir string, dryRun bool) error { return nil }

func (f *fakeRunner) Build(ctx context.Context, command, dir string) error { return nil }

func newRefresher(runner sdfcli.Runner) *Refresher {
	logger := logging.New(false, true)
	return New(registrar.New(runner, logger), logger)
}

func params() sdfcli.SetupParams {
	return sdfcli.SetupParams{
		AuthID:         "twx-ci-sb1",
		AccountID:      "1234567_SB1",
		CertificateID:  "cert-A",
		PrivateKeyPath: "/keys/sb1.pem",
	}
}

func TestRefresh_SuccessReplacesStoreAndRemovesBackup(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "credentials_ci.p12")
	require.NoError(t, os.WriteFile(store, []byte("stale snapshot"), 0o600))

	runner := &fakeRunner{storePath: store, newContent: "fresh snapshot"}
	err := newRefresher(runner).Refresh(context.Background(), params(), store)
	require.NoError(t, err)

	content, readErr := os.ReadFile(store)
	require.NoError(t, readErr)
	assert.Equal(t, "fresh snapshot", string(content))
	assert.NoFileExists(t, store+".backup")
	assert.Equal(t, 1, runner.setupCalls)
}

func TestRefresh_FailureRestoresStoreByteForByte(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "credentials_ci.p12")
	original := []byte("pre-refresh snapshot bytes")
	require.NoError(t, os.WriteFile(store, original, 0o600))

	runner := &fakeRunner{setupErr: &sdfcli.ExecError{
		Command:  "suitecloud account:setup:ci",
		ExitCode: 1,
		Output:   "The certificate ID is invalid or has been revoked.",
	}}

	err := newRefresher(runner).Refresh(context.Background(), params(), store)

	var refreshErr twxerrors.RefreshError
	require.True(t, errors.As(err, &refreshErr))
	assert.True(t, refreshErr.StoreIntact)
	assert.Contains(t, refreshErr.Error(), "restored to its pre-refresh state")

	content, readErr := os.ReadFile(store)
	require.NoError(t, readErr)
	assert.Equal(t, original, content)
	assert.NoFileExists(t, store+".backup")
}

func TestRefresh_BackupFailureLeavesStoreUntouched(t *testing.T) {
	dir := t.TempDir()
	// A directory at the store path makes the backup copy fail while the
	// "store" itself still exists.
	store := filepath.Join(dir, "credentials_ci.p12")
	require.NoError(t, os.Mkdir(store, 0o755))

	runner := &fakeRunner{}
	err := newRefresher(runner).Refresh(context.Background(), params(), store)

	var refreshErr twxerrors.RefreshError
	require.True(t, errors.As(err, &refreshErr))
	assert.True(t, refreshErr.StoreIntact)
	assert.Equal(t, 0, runner.setupCalls, "must never re-register without a confirmed backup")
	assert.DirExists(t, store)
}

func TestRefresh_MissingStoreStillReregisters(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "credentials_ci.p12")

	runner := &fakeRunner{storePath: store, newContent: "fresh snapshot"}
	err := newRefresher(runner).Refresh(context.Background(), params(), store)
	require.NoError(t, err)

	assert.FileExists(t, store)
	assert.NoFileExists(t, store+".backup")
}

func TestRefresh_AlreadyRegisteredAgainstEmptyStoreFailsClosed(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "credentials_ci.p12")
	original := []byte("pre-refresh snapshot")
	require.NoError(t, os.WriteFile(store, original, 0o600))

	runner := &fakeRunner{setupErr: &sdfcli.ExecError{
		Command:  "suitecloud account:setup:ci",
		ExitCode: 1,
		Output:   "The authentication ID twx-ci-sb1 is already in use.",
	}}

	err := newRefresher(runner).Refresh(context.Background(), params(), store)

	var refreshErr twxerrors.RefreshError
	require.True(t, errors.As(err, &refreshErr))
	assert.True(t, refreshErr.StoreIntact)
	assert.Contains(t, refreshErr.Err.Error(), "already_registered")

	content, readErr := os.ReadFile(store)
	require.NoError(t, readErr)
	assert.Equal(t, original, content)
}
