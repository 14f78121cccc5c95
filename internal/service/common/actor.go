//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
)

// Host identifies the machine and user an alert was raised for.
type Host struct {
	// Hostname is the machine name.
	Hostname string
	// Username is the logged-in system user.
	Username string
}

// DetectHost gathers host and user information to tag published alerts.
func DetectHost() (*Host, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return nil, fmt.Errorf("current user: %w", err)
	}

	return &Host{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
