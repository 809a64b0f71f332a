//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"
	"os"
	"os/user"
)

// Actor identifies the operator issuing remote commands.
type Actor struct {
	Hostname string
	Username string
}

// String renders the actor as username@hostname.
func (a Actor) String() string {
	return a.Username + "@" + a.Hostname
}

// DetectActor gathers host and user information for the node's command log.
func DetectActor() (Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return Actor{}, fmt.Errorf("hostname: %w", err)
	}

	currentUser, err := user.Current()
	if err != nil {
		return Actor{}, fmt.Errorf("current user: %w", err)
	}

	return Actor{
		Hostname: hostname,
		Username: currentUser.Username,
	}, nil
}
