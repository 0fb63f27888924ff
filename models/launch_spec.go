package models

import (
	"fmt"
	"strings"
)

// Exposure documents the port the process will listen on. It is intent for
// the orchestration layer; it does not itself bind the port.
type Exposure struct {
	Port int `json:"port"`
}

// SourceTree references the application source directory, copied into the
// image after dependencies are resolved so dependency layers stay reusable
// across source changes.
type SourceTree struct {
	Path string `json:"path"` // e.g. "src"
}

// LaunchSpec is the full build and runtime packaging declaration for one
// service: base environment, native and language-level dependencies, source
// placement, network exposure, and the production launch command.
type LaunchSpec struct {
	Base     BaseImage          `json:"base"`
	Native   []string           `json:"native_packages,omitempty"`
	Manifest DependencyManifest `json:"manifest"`
	Source   SourceTree         `json:"source"`
	Expose   Exposure           `json:"expose"`
	Command  LaunchCommand      `json:"command"`

	// Target is the application object the workers load,
	// e.g. "src.server:app".
	Target string `json:"target"`
}

// Validate checks the cross-field invariants the build must maintain. The
// exposure declaration and the bind port must stay in sync, and the worker
// class must match the asynchronous application framework.
func (s LaunchSpec) Validate() error {
	if err := s.Base.Validate(); err != nil {
		return err
	}
	if err := s.Manifest.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(s.Source.Path) == "" {
		return fmt.Errorf("source tree path is empty")
	}
	if strings.TrimSpace(s.Target) == "" {
		return fmt.Errorf("launch target is empty")
	}
	if !strings.Contains(s.Target, ":") {
		return fmt.Errorf("launch target %q must have the form module_path:attribute_name", s.Target)
	}
	for _, pkg := range s.Native {
		if strings.TrimSpace(pkg) == "" {
			return fmt.Errorf("native package list contains an empty name")
		}
	}
	if err := s.Command.Validate(); err != nil {
		return err
	}
	if s.Expose.Port != s.Command.BindPort {
		return fmt.Errorf("exposed port %d does not match bind port %d; the two must stay in sync", s.Expose.Port, s.Command.BindPort)
	}
	return nil
}

// DefaultLaunchSpec is the stock packaging for the translation service.
func DefaultLaunchSpec() LaunchSpec {
	return LaunchSpec{
		Base:     BaseImage{Runtime: "python", Version: "3.11", Variant: "slim"},
		Native:   []string{"libpq-dev", "gcc"},
		Manifest: DependencyManifest{Path: "requirements.txt"},
		Source:   SourceTree{Path: "src"},
		Expose:   Exposure{Port: 8000},
		Command:  DefaultLaunchCommand(),
		Target:   "src.server:app",
	}
}
