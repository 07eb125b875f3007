package applications

import "time"

// Rate tier values stored on an application record. The throttle package
// owns the interpretation of these strings.
const (
	TierStandard = "standard"
	TierEnhanced = "enhanced"
	TierExempt   = "exempt"
)

// Application is a registered credential holder. SecretHash is a bcrypt hash
// of the client secret; the cleartext secret is disclosed exactly once, in
// the registration response, and is never stored.
type Application struct {
	ID           string
	ClientID     string
	SecretHash   string
	Name         string
	ContactEmail string
	Verified     bool
	RateTier     string
	CreatedAt    time.Time
}
