package handlers

import (
	"net/http"
	"os"
	"strings"
	"sync"
)

// Version may be set at build time with -ldflags "-X flylow/handlers.Version=1.2.3".
var Version string

var (
	resolvedVersion string
	versionOnce     sync.Once
)

// VersionResponse is the /api/version body.
type VersionResponse struct {
	Version string `json:"version"`
}

// BuildVersion returns the linker-provided version, else version.txt, else "dev".
func BuildVersion() string {
	versionOnce.Do(func() {
		if v := strings.TrimSpace(Version); v != "" {
			resolvedVersion = v
			return
		}
		for _, path := range []string{"version.txt", "/app/version.txt"} {
			if data, err := os.ReadFile(path); err == nil {
				if v := strings.TrimSpace(string(data)); v != "" {
					resolvedVersion = v
					return
				}
			}
		}
		resolvedVersion = "dev"
	})
	return resolvedVersion
}

// GetVersion serves the build version.
func GetVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: BuildVersion()})
}
