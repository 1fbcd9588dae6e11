package gateway

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCredentialsMissing indicates that the merchant credentials are not fully
// configured. It is raised at client construction, before any network call.
var ErrCredentialsMissing = errors.New("gateway: credentials missing")

// Credentials identify the merchant application to the gateway. They are
// loaded once at startup, stay immutable for the process lifetime and are
// never written to logs.
type Credentials struct {
	ClientID            string
	Secret              string
	ExperienceProfileID string
}

// Validate fails fast when the client id or secret is absent. It runs eagerly
// at client construction so a misconfigured deployment surfaces at startup
// rather than at the first checkout.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return fmt.Errorf("%w: clientId must be set", ErrCredentialsMissing)
	}
	if strings.TrimSpace(c.Secret) == "" {
		return fmt.Errorf("%w: secret must be set", ErrCredentialsMissing)
	}
	return nil
}
