package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"github.com/twx-tools/twx-deploy/internal/logging"
	"gopkg.in/yaml.v3"
)

// DefaultCredentialStore is where the suitecloud CLI keeps its CI credential
// snapshot when twx.yaml does not override it.
const DefaultCredentialStore = "~/.suitecloud-sdk/credentials_ci.p12"

// Config holds the runtime configuration.
type Config struct {
	Path       string
	Logger     *logging.Logger
	Definition *Definition
}

// Definition represents the twx.yaml structure.
type Definition struct {
	Version         int                          `yaml:"version"`
	ProjectDir      string                       `yaml:"projectDir,omitempty"`
	Build           string                       `yaml:"build,omitempty"`
	CredentialStore string                       `yaml:"credentialStore,omitempty"`
	KeyDir          string                       `yaml:"keyDir,omitempty"`
	MetricsTextfile string                       `yaml:"metricsTextfile,omitempty"`
	ProjectFiles    []string                     `yaml:"projectFiles,omitempty"`
	Environments    map[string]EnvironmentConfig `yaml:"environments"`
}

// EnvironmentConfig is one named deployment target. Immutable for the
// duration of a deployment run.
type EnvironmentConfig struct {
	AccountID      string `yaml:"accountId"`
	AuthID         string `yaml:"authId"`
	CertificateID  string `yaml:"certificateId,omitempty"`
	PrivateKeyPath string `yaml:"privateKeyPath,omitempty"`
}

// Load reads, parses and schema-validates the twx.yaml file.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return twxerrors.ConfigError{
				Field:      "path",
				Value:      c.Path,
				Message:    "configuration file not found",
				Suggestion: "Create a twx.yaml with an 'environments:' section, or pass --config",
			}
		}
		return twxerrors.UserError{
			Message:    "Failed to read configuration file",
			Details:    err.Error(),
			Suggestion: "Check file permissions and path",
			Err:        err,
		}
	}

	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return twxerrors.ConfigError{
			Message:    "invalid YAML syntax in configuration file",
			Suggestion: "Check for indentation errors, missing quotes, or invalid characters",
		}
	}

	if def.Version != 0 {
		return twxerrors.ConfigError{
			Field:      "version",
			Value:      def.Version,
			Message:    "unsupported configuration version",
			Suggestion: "Set 'version: 0' at the top of your twx.yaml file",
		}
	}

	if err := validateSchema(data); err != nil {
		return err
	}

	c.Definition = &def
	return nil
}

// Environment returns the configuration for a named environment.
func (c *Config) Environment(name string) (EnvironmentConfig, error) {
	if c.Definition == nil {
		return EnvironmentConfig{}, twxerrors.UserError{
			Message:    "Configuration not loaded",
			Suggestion: "This is an internal error. Please report it",
		}
	}

	env, ok := c.Definition.Environments[name]
	if !ok {
		suggestion := "Check your twx.yaml for available environments"
		if names := c.EnvironmentNames(); len(names) > 0 {
			suggestion = fmt.Sprintf("Available environments: %s", strings.Join(names, ", "))
		}
		return EnvironmentConfig{}, twxerrors.ConfigError{
			Field:      "environment",
			Value:      name,
			Message:    "environment not found",
			Suggestion: suggestion,
		}
	}

	return env, nil
}

// EnvironmentNames returns the configured environment names, sorted.
func (c *Config) EnvironmentNames() []string {
	if c.Definition == nil {
		return nil
	}
	names := make([]string, 0, len(c.Definition.Environments))
	for name := range c.Definition.Environments {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ProjectDir returns the SDF project directory, defaulting to the current
// directory.
func (c *Config) ProjectDir() string {
	if c.Definition != nil && c.Definition.ProjectDir != "" {
		return c.Definition.ProjectDir
	}
	return "."
}

// ProjectFilePaths returns the project config files whose auth id field is
// swapped for the duration of a deployment.
func (c *Config) ProjectFilePaths() []string {
	if c.Definition != nil && len(c.Definition.ProjectFiles) > 0 {
		return c.Definition.ProjectFiles
	}
	dir := c.ProjectDir()
	return []string{
		filepath.Join(dir, "project.json"),
		filepath.Join(dir, "src", "project.json"),
	}
}

// CredentialStorePath returns the credential store file location with any
// leading ~ expanded.
func (c *Config) CredentialStorePath() string {
	path := DefaultCredentialStore
	if c.Definition != nil && c.Definition.CredentialStore != "" {
		path = c.Definition.CredentialStore
	}
	return expandHome(path)
}

// KeyDir returns the directory searched for convention-named private keys
// (<authId>.pem).
func (c *Config) KeyDir() string {
	if c.Definition != nil && c.Definition.KeyDir != "" {
		return expandHome(c.Definition.KeyDir)
	}
	return expandHome("~/.twx/keys")
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}
