package state

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	artifactOnce sync.Once
	artifactRoot string
)

// ArtifactRoot is the optional root under which the default database folder lives.
func ArtifactRoot() string {
	artifactOnce.Do(func() {
		c := strings.TrimSpace(os.Getenv("NAUGHTYDEN_ARTIFACT_ROOT"))
		if c == "" {
			return
		}
		if abs, err := filepath.Abs(c); err == nil {
			artifactRoot = abs
		} else {
			artifactRoot = c
		}
	})
	return artifactRoot
}
