package app

import "github.com/google/uuid"

// newID mints a player or bearer-token identifier.
func newID() string {
	return uuid.NewString()
}
