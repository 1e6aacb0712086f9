package instance

import (
	"os"
	"strings"
)

const fallbackID = "ludi-0"

// GetID names the running process for logs and lock ownership. It prefers
// LUDI_INSTANCE_ID, then the platform's DYNO, then the hostname.
func GetID() string {
	for _, env := range []string{"LUDI_INSTANCE_ID", "DYNO"} {
		if id := strings.TrimSpace(os.Getenv(env)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return fallbackID
}
