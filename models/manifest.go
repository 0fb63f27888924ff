package models

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// DependencyManifest references the application dependency file
// (one package specifier per line) relative to the build context.
type DependencyManifest struct {
	Path string `json:"path"` // e.g. "requirements.txt"
}

func (m DependencyManifest) Validate() error {
	if strings.TrimSpace(m.Path) == "" {
		return fmt.Errorf("dependency manifest path is empty")
	}
	return nil
}

// ParseManifest reads a dependency manifest and returns the package
// specifiers in order. Blank lines and '#' comments are skipped. An empty
// manifest or a duplicate specifier is a fatal build error; there is no
// fallback for unresolvable entries at this layer.
func ParseManifest(r io.Reader) ([]string, error) {
	seen := map[string]struct{}{}
	specs := []string{}

	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		spec := strings.TrimSpace(sc.Text())
		if spec == "" || strings.HasPrefix(spec, "#") {
			continue
		}
		// Dedupe on the package name, not the full specifier, so
		// "foo==1.0" and "foo==2.0" conflict instead of coexisting.
		name := specifierName(spec)
		if _, exists := seen[name]; exists {
			return nil, fmt.Errorf("manifest line %d: duplicate specifier for package %q", line, name)
		}
		seen[name] = struct{}{}
		specs = append(specs, spec)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("manifest declares no packages")
	}

	return specs, nil
}

func specifierName(spec string) string {
	name := spec
	for _, sep := range []string{"==", ">=", "<=", "~=", "!=", ">", "<", "[", ";", " "} {
		if i := strings.Index(name, sep); i >= 0 {
			name = name[:i]
		}
	}
	return strings.ToLower(strings.TrimSpace(name))
}
