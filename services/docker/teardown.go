package docker

import (
	"context"
	"fmt"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"
	"github.com/ossira/launchkit/services"

	"github.com/moby/moby/client"
)

// Teardown stops and removes every container belonging to the job, then
// unpins the job's image.
func (p *DockerPlatform) Teardown(ctx context.Context, job uuid.UUID) error {
	f := make(client.Filters).
		Add("label", services.LabelJob+"="+job.String())

	containers, err := p.client.ContainerList(ctx, client.ContainerListOptions{
		All:     true,
		Filters: f,
	})
	if err != nil {
		return fmt.Errorf("list job containers (job=%s): %w", job.String(), err)
	}

	for _, c := range containers.Items {
		// Stop (best-effort) then remove.
		_, _ = p.client.ContainerStop(ctx, c.ID, client.ContainerStopOptions{})
		_, err = p.client.ContainerRemove(ctx, c.ID, client.ContainerRemoveOptions{
			Force: true,
		})
		if err != nil && !errdefs.IsNotFound(err) {
			return fmt.Errorf("remove container %q: %w", c.ID, err)
		}
	}

	tag := services.ImageName(job.String())
	if _, err := p.client.ImageRemove(ctx, tag, client.ImageRemoveOptions{}); err != nil && !errdefs.IsNotFound(err) {
		return fmt.Errorf("remove image %q: %w", tag, err)
	}

	return nil
}
