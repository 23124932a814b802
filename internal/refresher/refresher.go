// Package refresher replaces a stale auth identity registration with one
// built from the currently resolved credentials. The central property: it is
// always acceptable to fail the deployment; it is never acceptable to let it
// proceed against credentials of uncertain freshness.
package refresher

import (
	"context"
	"fmt"
	"io"
	"os"

	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"github.com/twx-tools/twx-deploy/internal/logging"
	"github.com/twx-tools/twx-deploy/internal/registrar"
	"github.com/twx-tools/twx-deploy/internal/sdfcli"
)

// backupSuffix is appended to the store path for the pre-refresh copy.
const backupSuffix = ".backup"

// Refresher performs the backup / remove / re-register / restore sequence.
type Refresher struct {
	registrar *registrar.Registrar
	logger    *logging.Logger
}

// New creates a refresher.
func New(reg *registrar.Registrar, logger *logging.Logger) *Refresher {
	return &Refresher{registrar: reg, logger: logger}
}

// Refresh re-registers params.AuthID against an emptied credential store.
// Invoked only after a registration reported "already registered". On any
// failure the store is restored to its pre-refresh content and the returned
// RefreshError states whether that restoration succeeded.
func (f *Refresher) Refresh(ctx context.Context, params sdfcli.SetupParams, storePath string) error {
	r := newRun()
	backupPath := storePath + backupSuffix

	storeExists := false
	if _, err := os.Stat(storePath); err == nil {
		storeExists = true
	}

	// Never delete the live store without a confirmed backup.
	if storeExists {
		if err := copyFile(storePath, backupPath); err != nil {
			_ = os.Remove(backupPath)
			r.to(StateFailed, "backup copy failed")
			return twxerrors.RefreshError{
				AuthID:      params.AuthID,
				StoreIntact: true,
				Err:         fmt.Errorf("backing up credential store: %w", err),
			}
		}
	}
	r.to(StateBackedUp, "credential store backed up")

	if storeExists {
		if err := os.Remove(storePath); err != nil {
			f.removeBackup(backupPath, storeExists)
			r.to(StateFailed, "store removal failed")
			return twxerrors.RefreshError{
				AuthID:      params.AuthID,
				StoreIntact: true,
				Err:         fmt.Errorf("removing credential store: %w", err),
			}
		}
	}
	r.to(StateStoreRemoved, "stale credential store removed")

	r.to(StateReregistering, "re-registering against empty store")
	outcome, regErr := f.registrar.Register(ctx, params)

	if regErr == nil && outcome == registrar.OutcomeSuccess {
		r.to(StateSucceeded, "re-registration succeeded")
		f.removeBackup(backupPath, storeExists)
		f.logger.Info("auth id %s re-registered with current credentials", params.AuthID)
		return nil
	}

	cause := regErr
	if cause == nil {
		// AlreadyRegistered against a store we just emptied means the
		// registration lives somewhere we did not clear. Fail closed.
		cause = fmt.Errorf("re-registration against empty store reported outcome %q", outcome)
	}

	if storeExists {
		if restoreErr := copyFile(backupPath, storePath); restoreErr != nil {
			r.to(StateFailed, "restore from backup failed")
			f.logger.Error("could not restore credential store from %s: %v", backupPath, restoreErr)
			return twxerrors.RefreshError{
				AuthID:      params.AuthID,
				StoreIntact: false,
				Err:         fmt.Errorf("re-registration failed (%v) and restore failed: %w", cause, restoreErr),
			}
		}
		f.removeBackup(backupPath, storeExists)
	}

	r.to(StateRolledBack, "credential store restored to pre-refresh state")
	return twxerrors.RefreshError{
		AuthID:      params.AuthID,
		StoreIntact: true,
		Err:         cause,
	}
}

func (f *Refresher) removeBackup(backupPath string, existed bool) {
	if !existed {
		return
	}
	if err := os.Remove(backupPath); err != nil {
		f.logger.Warn("failed to remove backup file %s: %v", backupPath, err)
	}
}

// copyFile copies src over dst, preserving src's permission bits.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
