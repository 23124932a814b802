// Package credentials resolves the machine-to-machine credentials for a
// named environment from layered sources: environment-specific override,
// shared override, twx.yaml, then convention-based defaults.
package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/twx-tools/twx-deploy/internal/config"
	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"github.com/twx-tools/twx-deploy/internal/logging"
	"github.com/twx-tools/twx-deploy/internal/secure"
)

// envPrefix is the prefix of every override variable twx-deploy consumes.
const envPrefix = "TWX"

// LookupFunc reports the value of an environment variable. Modeled as an
// explicit dependency so resolution stays a pure function of its inputs.
type LookupFunc func(key string) (string, bool)

// Keyring is an optional passkey source consulted after the environment
// overrides. The production implementation is backed by the OS keyring and
// reports nothing in headless CI sessions.
type Keyring interface {
	Passkey(authID string) (string, bool)
}

// Resolved is the outcome of applying the priority chain for one
// environment. Created fresh per deployment invocation, never persisted.
type Resolved struct {
	CertificateID  string
	PrivateKeyPath string

	// Passkey is nil when no passkey is configured anywhere. The caller
	// owns the buffer and must Destroy it.
	Passkey *secure.Buffer
}

// Plan names the source each credential value would be read from, without
// resolving the values themselves. Used by the environments command.
type Plan struct {
	CertificateSource string
	PrivateKeySource  string
	PasskeySource     string
}

// Resolver applies the layered resolution chain.
type Resolver struct {
	cfg     *config.Config
	lookup  LookupFunc
	keyring Keyring
	logger  *logging.Logger
}

// New creates a resolver with explicit sources.
func New(cfg *config.Config, lookup LookupFunc, kr Keyring) *Resolver {
	return &Resolver{cfg: cfg, lookup: lookup, keyring: kr, logger: cfg.Logger}
}

// NewFromEnv creates a resolver reading the process environment and the OS
// keyring.
func NewFromEnv(cfg *config.Config) *Resolver {
	return New(cfg, os.LookupEnv, SystemKeyring(cfg.Logger))
}

// Resolve derives the effective credentials for envName. It fails rather
// than silently defaulting when no certificate id or no readable private key
// can be determined.
func (r *Resolver) Resolve(envName string) (*Resolved, error) {
	envCfg, err := r.cfg.Environment(envName)
	if err != nil {
		return nil, err
	}

	certID, _ := r.certificateID(envName, envCfg)
	if certID == "" {
		return nil, twxerrors.CredentialError{
			Environment: envName,
			What:        "certificateId",
			Message:     "no certificate id resolved from any layer",
			Suggestion: fmt.Sprintf("Set %s or %s, or add certificateId under environments.%s in twx.yaml",
				envVar(envName, "CERT_ID"), sharedVar("CERT_ID"), envName),
		}
	}

	keyPath, _ := r.privateKeyPath(envName, envCfg)
	if keyPath == "" {
		return nil, twxerrors.CredentialError{
			Environment: envName,
			What:        "privateKeyPath",
			Message:     "no private key path resolved from any layer",
			Suggestion: fmt.Sprintf("Set %s or %s, or add privateKeyPath under environments.%s in twx.yaml",
				envVar(envName, "PRIVATE_KEY_PATH"), sharedVar("PRIVATE_KEY_PATH"), envName),
		}
	}

	if err := checkReadable(keyPath); err != nil {
		return nil, twxerrors.KeyFileNotFoundError{Path: keyPath, Err: err}
	}

	resolved := &Resolved{CertificateID: certID, PrivateKeyPath: keyPath}

	if passkey, _ := r.passkey(envName, envCfg); passkey != "" {
		resolved.Passkey = secure.NewBufferFromString(passkey)
	}

	return resolved, nil
}

// PlanFor reports which layer each value would come from for envName.
func (r *Resolver) PlanFor(envName string) (*Plan, error) {
	envCfg, err := r.cfg.Environment(envName)
	if err != nil {
		return nil, err
	}

	plan := &Plan{}
	_, plan.CertificateSource = r.certificateID(envName, envCfg)
	_, plan.PrivateKeySource = r.privateKeyPath(envName, envCfg)
	_, plan.PasskeySource = r.passkey(envName, envCfg)
	return plan, nil
}

// certificateID resolves highest priority first: per-environment override,
// shared override, twx.yaml.
func (r *Resolver) certificateID(envName string, envCfg config.EnvironmentConfig) (string, string) {
	if v, ok := r.lookup(envVar(envName, "CERT_ID")); ok && v != "" {
		return v, "env:" + envVar(envName, "CERT_ID")
	}
	if v, ok := r.lookup(sharedVar("CERT_ID")); ok && v != "" {
		return v, "env:" + sharedVar("CERT_ID")
	}
	if envCfg.CertificateID != "" {
		return envCfg.CertificateID, "config"
	}
	return "", "none"
}

// privateKeyPath resolves per-environment override, shared override,
// twx.yaml, then the convention path <keyDir>/<authId>.pem.
func (r *Resolver) privateKeyPath(envName string, envCfg config.EnvironmentConfig) (string, string) {
	if v, ok := r.lookup(envVar(envName, "PRIVATE_KEY_PATH")); ok && v != "" {
		return v, "env:" + envVar(envName, "PRIVATE_KEY_PATH")
	}
	if v, ok := r.lookup(sharedVar("PRIVATE_KEY_PATH")); ok && v != "" {
		return v, "env:" + sharedVar("PRIVATE_KEY_PATH")
	}
	if envCfg.PrivateKeyPath != "" {
		return envCfg.PrivateKeyPath, "config"
	}
	if envCfg.AuthID != "" {
		return filepath.Join(r.cfg.KeyDir(), envCfg.AuthID+".pem"), "default"
	}
	return "", "none"
}

// passkey resolves the optional CI passkey. The shared override outranks the
// per-environment one here; the OS keyring is consulted last.
func (r *Resolver) passkey(envName string, envCfg config.EnvironmentConfig) (string, string) {
	if v, ok := r.lookup(sharedVar("CI_PASSKEY")); ok && v != "" {
		return v, "env:" + sharedVar("CI_PASSKEY")
	}
	if v, ok := r.lookup(envVar(envName, "CI_PASSKEY")); ok && v != "" {
		return v, "env:" + envVar(envName, "CI_PASSKEY")
	}
	if r.keyring != nil {
		if v, ok := r.keyring.Passkey(envCfg.AuthID); ok && v != "" {
			return v, "keyring"
		}
	}
	return "", "none"
}

// checkReadable verifies the key file exists and can be opened, keeping the
// failure local instead of deferring it to the external registration call.
func checkReadable(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	return f.Close()
}

// envVar builds the per-environment override name, e.g. TWX_SB1_CERT_ID.
func envVar(envName, suffix string) string {
	return envPrefix + "_" + sanitizeEnvName(envName) + "_" + suffix
}

// sharedVar builds the shared override name, e.g. TWX_CERT_ID.
func sharedVar(suffix string) string {
	return envPrefix + "_" + suffix
}

// sanitizeEnvName upper-cases the environment name and maps anything outside
// [A-Z0-9] to an underscore.
func sanitizeEnvName(name string) string {
	upper := strings.ToUpper(name)
	var b strings.Builder
	b.Grow(len(upper))
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}
