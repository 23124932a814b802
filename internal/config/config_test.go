package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"github.com/twx-tools/twx-deploy/internal/logging"
)

func writeConfig(t *testing.T, content string) *Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "twx.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return &Config{Path: path, Logger: logging.New(false, true)}
}

const validConfig = `version: 0
projectDir: ./src
build: npm run build
environments:
  sb1:
    accountId: "1234567_SB1"
    authId: twx-ci-sb1
    certificateId: cert-A
    privateKeyPath: ./keys/sb1.pem
  prod:
    accountId: "1234567"
    authId: twx-ci-prod
`

func TestConfig_Load(t *testing.T) {
	cfg := writeConfig(t, validConfig)
	require.NoError(t, cfg.Load())

	env, err := cfg.Environment("sb1")
	require.NoError(t, err)
	assert.Equal(t, "1234567_SB1", env.AccountID)
	assert.Equal(t, "twx-ci-sb1", env.AuthID)
	assert.Equal(t, "cert-A", env.CertificateID)
	assert.Equal(t, "./keys/sb1.pem", env.PrivateKeyPath)

	assert.Equal(t, []string{"prod", "sb1"}, cfg.EnvironmentNames())
	assert.Equal(t, "./src", cfg.ProjectDir())
}

func TestConfig_Load_MissingFile(t *testing.T) {
	cfg := &Config{Path: filepath.Join(t.TempDir(), "nope.yaml"), Logger: logging.New(false, true)}
	err := cfg.Load()

	var configErr twxerrors.ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Contains(t, configErr.Error(), "configuration file not found")
}

func TestConfig_Load_InvalidYAML(t *testing.T) {
	cfg := writeConfig(t, "environments:\n  sb1: [not\n")
	err := cfg.Load()

	var configErr twxerrors.ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Contains(t, configErr.Error(), "invalid YAML")
}

func TestConfig_Load_UnsupportedVersion(t *testing.T) {
	cfg := writeConfig(t, "version: 3\nenvironments:\n  sb1:\n    accountId: a\n    authId: b\n")
	err := cfg.Load()

	var configErr twxerrors.ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Contains(t, configErr.Error(), "unsupported configuration version")
}

func TestConfig_Load_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "missing accountId",
			content: "version: 0\nenvironments:\n  sb1:\n    authId: twx-ci-sb1\n",
		},
		{
			name:    "missing authId",
			content: "version: 0\nenvironments:\n  sb1:\n    accountId: \"1234567\"\n",
		},
		{
			name:    "no environments",
			content: "version: 0\nprojectDir: ./src\n",
		},
		{
			name:    "unknown environment field",
			content: "version: 0\nenvironments:\n  sb1:\n    accountId: a\n    authId: b\n    passkey: nope\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := writeConfig(t, tt.content)
			err := cfg.Load()
			require.Error(t, err)

			var configErr twxerrors.ConfigError
			assert.True(t, errors.As(err, &configErr), "expected ConfigError, got %T: %v", err, err)
		})
	}
}

func TestConfig_Environment_NotFound(t *testing.T) {
	cfg := writeConfig(t, validConfig)
	require.NoError(t, cfg.Load())

	_, err := cfg.Environment("sb9")
	var configErr twxerrors.ConfigError
	require.True(t, errors.As(err, &configErr))
	assert.Contains(t, configErr.Error(), "Available environments: prod, sb1")
}

func TestConfig_Defaults(t *testing.T) {
	cfg := writeConfig(t, "version: 0\nenvironments:\n  sb1:\n    accountId: a\n    authId: b\n")
	require.NoError(t, cfg.Load())

	assert.Equal(t, ".", cfg.ProjectDir())
	assert.Equal(t, []string{
		filepath.Join(".", "project.json"),
		filepath.Join(".", "src", "project.json"),
	}, cfg.ProjectFilePaths())

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".suitecloud-sdk", "credentials_ci.p12"), cfg.CredentialStorePath())
	assert.Equal(t, filepath.Join(home, ".twx", "keys"), cfg.KeyDir())
}

func TestConfig_Overrides(t *testing.T) {
	cfg := writeConfig(t, `version: 0
credentialStore: /var/ci/store.p12
keyDir: /var/ci/keys
projectFiles:
  - deploy/project.json
environments:
  sb1:
    accountId: a
    authId: b
`)
	require.NoError(t, cfg.Load())

	assert.Equal(t, "/var/ci/store.p12", cfg.CredentialStorePath())
	assert.Equal(t, "/var/ci/keys", cfg.KeyDir())
	assert.Equal(t, []string{"deploy/project.json"}, cfg.ProjectFilePaths())
}
