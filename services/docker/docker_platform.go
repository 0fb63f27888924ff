package docker

import (
	"context"
	"fmt"

	"github.com/ossira/launchkit/models"

	"github.com/moby/moby/client"
)

// DockerPlatform implements interfaces.Platform for plain Docker (Engine API).
type DockerPlatform struct {
	client *client.Client
}

// NewDockerPlatform initializes the Docker platform using environment variables
// (e.g. DOCKER_HOST) and API version negotiation.
func NewDockerPlatform() (*DockerPlatform, error) {
	c, err := client.New(
		client.FromEnv,
	)
	if err != nil {
		return nil, err
	}

	return &DockerPlatform{
		client: c,
	}, nil
}

// Run executes the requested action for the given configuration.
func (p *DockerPlatform) Run(ctx context.Context, config models.Configuration) error {
	if config.Action == "teardown" {
		return p.Teardown(ctx, config.Job)
	}
	if config.Action == "logs" {
		return p.Logs(ctx, config.Job)
	}

	spec := config.Spec
	if spec == nil {
		return fmt.Errorf("action %q requires a launch spec", config.Action)
	}

	if err := p.CheckSpec(config.ContextDir, spec); err != nil {
		return err
	}

	switch config.Action {
	case "build":
		return p.Build(ctx, config.Job, config.Run, config.ContextDir, spec)
	case "run":
		if err := p.Build(ctx, config.Job, config.Run, config.ContextDir, spec); err != nil {
			return err
		}
		return p.RunService(ctx, config.Job, config.Run, spec)
	default:
		return fmt.Errorf("%q is not a valid action", config.Action)
	}
}
