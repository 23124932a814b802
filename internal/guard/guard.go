// Package guard points the shared project config files at one environment's
// auth id for the duration of a single deployment, and restores the prior
// content on every exit path.
package guard

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	twxerrors "github.com/twx-tools/twx-deploy/internal/errors"
	"github.com/twx-tools/twx-deploy/internal/logging"
)

// authIDField is the single field the guard is allowed to rewrite.
const authIDField = "defaultAuthId"

// backupSuffix is appended to each file path for its backup copy.
const backupSuffix = ".bak"

// Guard performs restorable mutations of project config files.
type Guard struct {
	logger *logging.Logger
}

// New creates a guard.
func New(logger *logging.Logger) *Guard {
	return &Guard{logger: logger}
}

// fileBackup pairs an original path with its backup copy. Scoped strictly to
// one WithAuthID call.
type fileBackup struct {
	original string
	backup   string
}

// WithAuthID backs up every existing file in files, rewrites its auth id
// field to authID, verifies the write landed, runs work, and restores the
// original content before returning — whether the mutation or work failed or
// not. Restore failures are logged loudly but never mask the result of work.
func (g *Guard) WithAuthID(files []string, authID string, work func() error) (err error) {
	var existing []string
	for _, file := range files {
		if _, statErr := os.Stat(file); statErr == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return twxerrors.ConfigError{
			Field:      "projectFiles",
			Value:      files,
			Message:    "none of the project config files exist",
			Suggestion: "Check projectDir/projectFiles in twx.yaml point at your SDF project",
		}
	}

	// Back up before touching anything. A failure here aborts cleanly:
	// nothing has been mutated yet.
	var backups []fileBackup
	for _, file := range existing {
		bak := file + backupSuffix
		if copyErr := copyFile(file, bak); copyErr != nil {
			g.discardBackups(backups)
			return fmt.Errorf("backing up %s: %w", file, copyErr)
		}
		backups = append(backups, fileBackup{original: file, backup: bak})
	}

	defer func() {
		g.restore(backups)
	}()

	for _, file := range existing {
		if mutErr := setAuthID(file, authID); mutErr != nil {
			return fmt.Errorf("rewriting auth id in %s: %w", file, mutErr)
		}
		if verifyErr := verifyAuthID(file, authID); verifyErr != nil {
			return fmt.Errorf("verifying auth id in %s: %w", file, verifyErr)
		}
	}

	return work()
}

// restore copies each backup over its original and removes the backup file.
// At this point the protected operation's own result takes precedence, so
// failures here are surfaced as warnings only.
func (g *Guard) restore(backups []fileBackup) {
	for _, b := range backups {
		if err := copyFile(b.backup, b.original); err != nil {
			g.logger.Warn("FAILED to restore %s from %s: %v — restore it manually before the next deployment", b.original, b.backup, err)
			continue
		}
		if err := os.Remove(b.backup); err != nil {
			g.logger.Warn("failed to remove backup file %s: %v", b.backup, err)
		}
	}
}

// discardBackups removes backup copies created before an aborted backup
// pass. The originals were never mutated.
func (g *Guard) discardBackups(backups []fileBackup) {
	for _, b := range backups {
		if err := os.Remove(b.backup); err != nil {
			g.logger.Warn("failed to remove backup file %s: %v", b.backup, err)
		}
	}
}

// setAuthID rewrites the auth id field, leaving every other field in the
// document untouched.
func setAuthID(path, authID string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	doc[authIDField] = authID

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, out, info.Mode().Perm())
}

// verifyAuthID reads the file back and confirms the auth id field holds the
// expected value.
func verifyAuthID(path, authID string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var doc map[string]interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	got, _ := doc[authIDField].(string)
	if got != authID {
		return fmt.Errorf("read-back mismatch: %s is %q, want %q", authIDField, got, authID)
	}
	return nil
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
