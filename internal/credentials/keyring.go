package credentials

import (
	"errors"
	"os"
	"runtime"

	"github.com/twx-tools/twx-deploy/internal/logging"
	"github.com/zalando/go-keyring"
)

// keyringService is the service name twx-deploy stores passkeys under in the
// OS keyring.
const keyringService = "twx-deploy"

// systemKeyring reads passkeys from the OS keyring (Keychain, Secret
// Service, Credential Manager). Headless CI sessions have no keyring agent,
// so it reports nothing there instead of hanging on a D-Bus prompt.
type systemKeyring struct {
	logger *logging.Logger
}

// SystemKeyring returns the OS-backed passkey source.
func SystemKeyring(logger *logging.Logger) Keyring {
	return &systemKeyring{logger: logger}
}

func (k *systemKeyring) Passkey(authID string) (string, bool) {
	if authID == "" || isHeadless() {
		return "", false
	}

	value, err := keyring.Get(keyringService, authID)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			k.logger.Debug("keyring lookup for %s failed: %v", authID, err)
		}
		return "", false
	}
	return value, true
}

// isHeadless reports whether the process runs without a user session that
// could serve keyring requests.
func isHeadless() bool {
	if os.Getenv("CI") != "" {
		return true
	}
	if os.Getenv("SSH_TTY") != "" {
		return true
	}
	// Secret Service needs a display session; the other platforms don't.
	if runtime.GOOS == "linux" && os.Getenv("DISPLAY") == "" && os.Getenv("WAYLAND_DISPLAY") == "" {
		return true
	}
	return false
}
