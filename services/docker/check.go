package docker

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ossira/launchkit/models"
)

// CheckSpec validates the launch spec and the build inputs it references
// before any image work starts. Any failure here aborts the build; a
// manifest with conflicting or missing entries has no fallback.
func (p *DockerPlatform) CheckSpec(contextDir string, spec *models.LaunchSpec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("invalid launch spec: %w", err)
	}

	if contextDir == "" {
		contextDir = "."
	}

	manifestPath := filepath.Join(contextDir, spec.Manifest.Path)
	f, err := os.Open(manifestPath)
	if err != nil {
		return fmt.Errorf("open dependency manifest %q: %w", manifestPath, err)
	}
	defer f.Close()

	if _, err := models.ParseManifest(f); err != nil {
		return fmt.Errorf("dependency manifest %q: %w", manifestPath, err)
	}

	srcPath := filepath.Join(contextDir, spec.Source.Path)
	info, err := os.Stat(srcPath)
	if err != nil {
		return fmt.Errorf("stat source tree %q: %w", srcPath, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source tree %q is not a directory", srcPath)
	}

	return nil
}
