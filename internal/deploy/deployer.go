// Package deploy sequences credential resolution, config guarding, identity
// registration, refresh and the external validate/build/deploy calls for one
// environment. Any authentication-layer failure halts the run; the guard's
// restore is the only step guaranteed to execute regardless of outcome.
package deploy

import (
	"context"
	"time"

	"github.com/twx-tools/twx-deploy/internal/config"
	"github.com/twx-tools/twx-deploy/internal/credentials"
	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"github.com/twx-tools/twx-deploy/internal/guard"
	"github.com/twx-tools/twx-deploy/internal/logging"
	"github.com/twx-tools/twx-deploy/internal/metrics"
	"github.com/twx-tools/twx-deploy/internal/refresher"
	"github.com/twx-tools/twx-deploy/internal/registrar"
	"github.com/twx-tools/twx-deploy/internal/sdfcli"
)

// Options adjust a single deployment run.
type Options struct {
	// Build runs the configured build command between validation and
	// deploy.
	Build bool

	// DryRun asks the external deploy for a preview instead of applying.
	DryRun bool

	// ValidateOnly stops after project validation.
	ValidateOnly bool
}

// Deployer owns the deployment sequence.
type Deployer struct {
	cfg       *config.Config
	resolver  *credentials.Resolver
	runner    sdfcli.Runner
	registrar *registrar.Registrar
	refresher *refresher.Refresher
	guard     *guard.Guard
	metrics   *metrics.Recorder
	logger    *logging.Logger
}

// New wires a deployer from loaded configuration, a resolver and a runner.
func New(cfg *config.Config, resolver *credentials.Resolver, runner sdfcli.Runner) *Deployer {
	logger := cfg.Logger
	reg := registrar.New(runner, logger)

	textfile := ""
	if cfg.Definition != nil {
		textfile = cfg.Definition.MetricsTextfile
	}

	return &Deployer{
		cfg:       cfg,
		resolver:  resolver,
		runner:    runner,
		registrar: reg,
		refresher: refresher.New(reg, logger),
		guard:     guard.New(logger),
		metrics:   metrics.New(textfile),
		logger:    logger,
	}
}

// Deploy runs the full sequence for envName.
func (d *Deployer) Deploy(ctx context.Context, envName string, opts Options) (err error) {
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "failure"
		}
		d.metrics.RecordOutcome(envName, outcome)
		if flushErr := d.metrics.Flush(); flushErr != nil {
			d.logger.Warn("failed to write metrics textfile: %v", flushErr)
		}
	}()

	envCfg, err := d.cfg.Environment(envName)
	if err != nil {
		return err
	}

	if opts.Build && d.buildCommand() == "" {
		return twxerrors.ConfigError{
			Field:      "build",
			Message:    "--build requested but no build command is configured",
			Suggestion: "Add 'build: <command>' to your twx.yaml",
		}
	}

	var resolved *credentials.Resolved
	err = d.timed(twxerrors.PhaseResolution, func() error {
		var resolveErr error
		resolved, resolveErr = d.resolver.Resolve(envName)
		return resolveErr
	})
	if err != nil {
		return err
	}
	if resolved.Passkey != nil {
		defer resolved.Passkey.Destroy()
	}
	d.logger.Info("resolved credentials for %s (account %s)", envName, envCfg.AccountID)

	params := sdfcli.SetupParams{
		AuthID:         envCfg.AuthID,
		AccountID:      envCfg.AccountID,
		CertificateID:  resolved.CertificateID,
		PrivateKeyPath: resolved.PrivateKeyPath,
		Passkey:        resolved.Passkey,
	}

	return d.guard.WithAuthID(d.cfg.ProjectFilePaths(), envCfg.AuthID, func() error {
		return d.authenticateAndShip(ctx, envName, params, opts)
	})
}

// authenticateAndShip runs inside the guard's protected scope: register,
// refresh when stale, then validate/build/deploy, each gated on the
// previous step succeeding.
func (d *Deployer) authenticateAndShip(ctx context.Context, envName string, params sdfcli.SetupParams, opts Options) error {
	var outcome registrar.Outcome
	err := d.timed(twxerrors.PhaseRegistration, func() error {
		var regErr error
		outcome, regErr = d.registrar.Register(ctx, params)
		return regErr
	})
	if err != nil {
		return err
	}

	if outcome == registrar.OutcomeAlreadyRegistered {
		d.logger.Info("auth id %s already registered; refreshing credential bindings", params.AuthID)

		err = d.timed(twxerrors.PhaseRefresh, func() error {
			return d.refresher.Refresh(ctx, params, d.cfg.CredentialStorePath())
		})
		if err != nil {
			d.metrics.RecordRefresh("rolled_back")
			return err
		}
		d.metrics.RecordRefresh("succeeded")
	}

	if err := d.timed(twxerrors.PhaseValidation, func() error {
		return d.runner.Validate(ctx, d.cfg.ProjectDir())
	}); err != nil {
		return err
	}
	d.logger.Info("project validated against %s", envName)

	if opts.ValidateOnly {
		return nil
	}

	if opts.Build {
		if err := d.timed(twxerrors.PhaseBuild, func() error {
			return d.runner.Build(ctx, d.buildCommand(), ".")
		}); err != nil {
			return err
		}
	}

	if err := d.timed(twxerrors.PhaseDeploy, func() error {
		return d.runner.Deploy(ctx, d.cfg.ProjectDir(), opts.DryRun)
	}); err != nil {
		return err
	}

	if opts.DryRun {
		d.logger.Info("dry run for %s completed", envName)
	} else {
		d.logger.Info("deployed to %s", envName)
	}
	return nil
}

func (d *Deployer) buildCommand() string {
	if d.cfg.Definition == nil {
		return ""
	}
	return d.cfg.Definition.Build
}

// timed runs fn, records its duration under the phase label, and wraps any
// error with the phase name.
func (d *Deployer) timed(phase twxerrors.Phase, fn func() error) error {
	start := time.Now()
	err := fn()
	d.metrics.RecordPhase(string(phase), time.Since(start))
	return twxerrors.InPhase(phase, err)
}
