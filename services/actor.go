package services

import (
	"github.com/google/uuid"
)

// Actor identifies the admin performing an operation. It is built from the
// validated session and the freshly loaded account, never from client input.
type Actor struct {
	ID       uuid.UUID
	Username string
}

// SystemActor is used by seed and migration commands
var SystemActor = Actor{Username: "system"}

// IsSystem reports whether the actor is the internal system identity
func (a Actor) IsSystem() bool {
	return a.ID == uuid.Nil
}
