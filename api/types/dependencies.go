package types

import (
	"github.com/confbuddy/companion-api/internal/database"
	"github.com/confbuddy/companion-api/internal/store"
)

// InstallationIDKey is the gin context key carrying the caller's
// identity once the bearer middleware ran.
const InstallationIDKey = "installationID"

// Dependencies holds everything the handlers need.
type Dependencies struct {
	DB          *database.DB
	Store       *store.Store
	Clock       *ServerClock
	AdminSecret string
}
