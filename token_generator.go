package auth

import (
	"strings"

	"github.com/google/uuid"
)

// NewToken returns an opaque single-use identifier used for both email
// confirmation and password reset deep links. Tokens carry no expiry;
// they are invalidated only by consumption.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
