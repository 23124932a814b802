package registrar

import "strings"

// The suitecloud CLI reports the already-registered condition only as
// human-readable text, with no structured code. Every wording the CLI is
// known to use lives in this one list so a future phrasing change touches a
// single place. Matching is case-insensitive.
var alreadyRegisteredMarkers = []string{
	"already in use",
	"already registered",
	"already exists",
	"is already being used",
	"authid is not available",
}

// IsAlreadyRegistered reports whether the registration output describes the
// "this auth id already exists" condition rather than a hard failure.
func IsAlreadyRegistered(output string) bool {
	lower := strings.ToLower(output)
	for _, marker := range alreadyRegisteredMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
