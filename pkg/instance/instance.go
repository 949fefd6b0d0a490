package instance

import (
	"os"

	"github.com/angelmondragon/liftbooks-backend/pkg/env"
)

const fallbackID = "local-0"

// GetID identifies this process in logs. It prefers LIFTBOOKS_INSTANCE_ID, then
// the platform dyno name, then the hostname.
func GetID() string {
	if id, ok := env.Lookup("LIFTBOOKS_INSTANCE_ID", "DYNO"); ok {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
