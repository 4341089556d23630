package instance

import "os"

// EnvWorkerID overrides the instance identifier for worker processes.
const EnvWorkerID = "WEDPLAN_WORKER_ID"

// GetID returns the worker instance identifier, falling back to the hostname
// and then a fixed default.
func GetID() string {
	if id := os.Getenv(EnvWorkerID); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "worker-0"
}
