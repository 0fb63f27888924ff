package buildfile

import (
	"fmt"
	"strings"

	"github.com/ossira/launchkit/models"
)

// Plan accumulates build instructions in the required stage order and
// renders them as a Dockerfile. A Plan is single-use: once the launch
// command is set it is terminal.
type Plan struct {
	stage Stage
	lines []string
}

func NewPlan() *Plan {
	return &Plan{stage: StageNone}
}

func (p *Plan) Stage() Stage {
	return p.stage
}

func (p *Plan) step(next Stage, lines ...string) error {
	if err := p.stage.advance(next); err != nil {
		return err
	}
	p.lines = append(p.lines, lines...)
	p.stage = next
	return nil
}

// SelectBase picks the base runtime image.
func (p *Plan) SelectBase(base models.BaseImage) error {
	if err := base.Validate(); err != nil {
		return err
	}
	return p.step(StageBaseSelected,
		fmt.Sprintf("FROM %s", base.Reference()),
		"",
		"WORKDIR /app",
	)
}

// InstallNativeDeps installs OS-level packages. The package-index metadata is
// removed in the same instruction so it never persists into the final image.
// An empty package set still advances the stage.
func (p *Plan) InstallNativeDeps(packages []string) error {
	if len(packages) == 0 {
		return p.step(StageNativeDepsInstalled)
	}
	for _, pkg := range packages {
		if strings.TrimSpace(pkg) == "" {
			return fmt.Errorf("native package list contains an empty name")
		}
	}
	return p.step(StageNativeDepsInstalled,
		"",
		fmt.Sprintf("RUN apt-get update && apt-get install -y --no-install-recommends %s \\", strings.Join(packages, " ")),
		"    && rm -rf /var/lib/apt/lists/*",
	)
}

// CopyManifest copies the dependency manifest alone, so the next layer keys
// its cache on the manifest content only.
func (p *Plan) CopyManifest(manifest models.DependencyManifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}
	return p.step(StageManifestCopied,
		"",
		fmt.Sprintf("COPY %s .", manifest.Path),
	)
}

// InstallAppDeps materializes the manifest's packages without keeping the
// installer cache in the layer.
func (p *Plan) InstallAppDeps(manifest models.DependencyManifest) error {
	return p.step(StageAppDepsInstalled,
		fmt.Sprintf("RUN pip install --no-cache-dir -r %s", manifest.Path),
	)
}

// CopySource places the application source tree. This must come after
// dependency installation; the stage machine enforces it.
func (p *Plan) CopySource(src models.SourceTree) error {
	if strings.TrimSpace(src.Path) == "" {
		return fmt.Errorf("source tree path is empty")
	}
	return p.step(StageSourceCopied,
		"",
		fmt.Sprintf("COPY %s ./%s", src.Path, src.Path),
	)
}

// DeclarePort documents the listen port for the orchestration layer.
func (p *Plan) DeclarePort(exp models.Exposure) error {
	if exp.Port < 1 || exp.Port > 65535 {
		return fmt.Errorf("exposed port %d out of range", exp.Port)
	}
	return p.step(StagePortDeclared,
		"",
		fmt.Sprintf("EXPOSE %d", exp.Port),
	)
}

// SetLaunchCommand writes the production start command and makes the plan
// terminal.
func (p *Plan) SetLaunchCommand(cmd models.LaunchCommand, target string) error {
	if err := cmd.Validate(); err != nil {
		return err
	}
	argv := cmd.Argv(target)
	quoted := make([]string, len(argv))
	for i, a := range argv {
		quoted[i] = fmt.Sprintf("%q", a)
	}
	return p.step(StageLaunchCommandSet,
		"",
		fmt.Sprintf("CMD [%s]", strings.Join(quoted, ", ")),
	)
}

// Dockerfile returns the rendered build file. It is an error to render a
// plan that has not reached the terminal stage.
func (p *Plan) Dockerfile() (string, error) {
	if p.stage != StageLaunchCommandSet {
		return "", fmt.Errorf("plan incomplete: stage is %q, want %q", p.stage, StageLaunchCommandSet)
	}
	return strings.Join(p.lines, "\n") + "\n", nil
}

// Render runs a full plan for the spec and returns the Dockerfile text.
// Any validation failure aborts the build; no partial output is returned.
func Render(spec models.LaunchSpec) (string, error) {
	if err := spec.Validate(); err != nil {
		return "", fmt.Errorf("invalid launch spec: %w", err)
	}

	p := NewPlan()

	steps := []func() error{
		func() error { return p.SelectBase(spec.Base) },
		func() error { return p.InstallNativeDeps(spec.Native) },
		func() error { return p.CopyManifest(spec.Manifest) },
		func() error { return p.InstallAppDeps(spec.Manifest) },
		func() error { return p.CopySource(spec.Source) },
		func() error { return p.DeclarePort(spec.Expose) },
		func() error { return p.SetLaunchCommand(spec.Command, spec.Target) },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return "", err
		}
	}

	return p.Dockerfile()
}
