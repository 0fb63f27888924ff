package models

import (
	"github.com/google/uuid"
)

type Configuration struct {
	Job      uuid.UUID   `json:"job"`            // UUID identifying the service deployment
	Run      uuid.UUID   `json:"run"`            // UUID identifying this invocation
	Platform string      `json:"platform"`       // e.g. "docker"
	Action   string      `json:"action"`         // build | run | serve | logs | teardown
	Spec     *LaunchSpec `json:"spec,omitempty"` // the packaging declaration

	// ContextDir is the build context the manifest and source paths are
	// resolved against. Empty means the current directory.
	ContextDir string `json:"context_dir,omitempty"`
}
