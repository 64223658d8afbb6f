package fcm

import (
	"fmt"
	"strings"
)

// Credentials is the service-account triple required to authenticate
// against the messaging API. All three values must be present before any
// send is possible.
type Credentials struct {
	ClientEmail string
	PrivateKey  string
	ProjectID   string
}

// Validate reports every missing credential field at once.
func (c Credentials) Validate() error {
	var missing []string
	if c.ClientEmail == "" {
		missing = append(missing, "client_email")
	}
	if c.PrivateKey == "" {
		missing = append(missing, "private_key")
	}
	if c.ProjectID == "" {
		missing = append(missing, "project_id")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing FCM service account credentials: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Complete reports whether all credential fields are configured.
func (c Credentials) Complete() bool {
	return c.Validate() == nil
}
