package ast

import (
	"regexp"
	"strings"

	"github.com/gofrs/uuid"
)

// ifidPattern is the canonical UUID mask spec §3/§8 require for a valid
// IFID: XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX.
var ifidPattern = regexp.MustCompile(`^[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}$`)

const IFIDMask = "XXXXXXXX-XXXX-XXXX-XXXX-XXXXXXXXXXXX"

// ValidIFID reports whether s matches the canonical UUID mask. A v4 UUID
// is preferred but any syntactically valid UUID form is accepted leniently
// at the runtime boundary, per spec §4.5.
func ValidIFID(s string) bool {
	return ifidPattern.MatchString(s)
}

// NewIFID mints a fresh IFID for a new Story using a v4 UUID, the same
// generator the teacher repo uses for ephemeral per-test database names in
// sqltest/fixture.go, repurposed here for a work's permanent identity.
func NewIFID() string {
	id, err := uuid.NewV4()
	if err != nil {
		// crypto/rand failure; extremely unlikely and not worth
		// propagating through every caller of NewIFID.
		return strings.Repeat("0", 8) + "-" + strings.Repeat("0", 4) + "-4000-8000-" + strings.Repeat("0", 12)
	}
	return id.String()
}
