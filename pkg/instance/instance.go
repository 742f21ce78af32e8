package instance

import (
	"os"
	"strings"
)

var sources = []string{"KARDEX_INSTANCE_ID", "K_REVISION", "HOSTNAME"}

// ID names the running replica for log fields. It falls back to "local".
func ID() string {
	for _, key := range sources {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return "local"
}
