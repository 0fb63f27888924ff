package interfaces

import (
	"context"

	"github.com/ossira/launchkit/models"
)

// Platform executes launch-configuration actions (build, run, logs,
// teardown) against a container backend.
type Platform interface {
	Run(ctx context.Context, config models.Configuration) error
}
