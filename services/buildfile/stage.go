package buildfile

import "fmt"

// Stage is a step in the image build order. Stages advance strictly in
// sequence; skipping or re-entering one requires a fresh Plan (a full
// rebuild). Installing dependencies before copying source is what keeps the
// expensive dependency layer cacheable across source-only changes.
type Stage int

const (
	StageNone Stage = iota
	StageBaseSelected
	StageNativeDepsInstalled
	StageManifestCopied
	StageAppDepsInstalled
	StageSourceCopied
	StagePortDeclared
	StageLaunchCommandSet // terminal; defines the image
)

var stageNames = map[Stage]string{
	StageNone:                "none",
	StageBaseSelected:        "base-selected",
	StageNativeDepsInstalled: "native-deps-installed",
	StageManifestCopied:      "manifest-copied",
	StageAppDepsInstalled:    "app-deps-installed",
	StageSourceCopied:        "source-copied",
	StagePortDeclared:        "port-declared",
	StageLaunchCommandSet:    "launch-command-set",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// advance checks that next immediately follows the current stage.
func (s Stage) advance(next Stage) error {
	if s == StageLaunchCommandSet {
		return fmt.Errorf("plan is terminal at %q; a change requires a full rebuild", s)
	}
	if next != s+1 {
		return fmt.Errorf("step %q out of order: current stage is %q", next, s)
	}
	return nil
}
