package instance

import (
	"os"
	"strings"
)

// ID names the running process for logs and lock ownership. Heroku dynos set DYNO; containers
// fall back to HOSTNAME.
func ID() string {
	for _, key := range []string{"DYNO", "WORKER_ID", "HOSTNAME"} {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	return "local"
}
