package models

import (
	"fmt"
	"strings"
)

// BaseImage identifies the runtime platform the service image is built on.
// Replacing either field means a full rebuild.
type BaseImage struct {
	Runtime string `json:"runtime"`           // e.g. "python"
	Version string `json:"version"`           // e.g. "3.11"
	Variant string `json:"variant,omitempty"` // e.g. "slim" (minimal footprint)
}

// Reference renders the image reference used in the FROM instruction,
// e.g. "python:3.11-slim".
func (b BaseImage) Reference() string {
	tag := b.Version
	if v := strings.TrimSpace(b.Variant); v != "" {
		tag = fmt.Sprintf("%s-%s", tag, v)
	}
	return fmt.Sprintf("%s:%s", b.Runtime, tag)
}

func (b BaseImage) Validate() error {
	if strings.TrimSpace(b.Runtime) == "" {
		return fmt.Errorf("base image runtime is empty")
	}
	if strings.TrimSpace(b.Version) == "" {
		return fmt.Errorf("base image version is empty")
	}
	return nil
}
