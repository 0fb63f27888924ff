package docker

import (
	"context"
	"fmt"
	"net/netip"
	"os"
	"strconv"

	"github.com/containerd/errdefs"
	"github.com/google/uuid"
	"github.com/ossira/launchkit/models"
	"github.com/ossira/launchkit/services"

	"github.com/moby/moby/api/types/container"
	"github.com/moby/moby/api/types/network"
	"github.com/moby/moby/client"
)

// RunService starts the built image as the job's service container, with the
// container port published on the host exactly as declared
// (0.0.0.0:<port> -> <port>). A host port already in use fails the start
// immediately; there is no retry.
func (p *DockerPlatform) RunService(
	ctx context.Context,
	job uuid.UUID,
	run uuid.UUID,
	spec *models.LaunchSpec) error {

	containerName := services.ContainerName(job.String())

	// 1) Port declaration: expose the container port and publish it on all
	// interfaces, keeping the published mapping in sync with EXPOSE.
	exposed := network.PortSet{}
	portMap := network.PortMap{}

	port, _ := network.PortFrom(uint16(spec.Expose.Port), "tcp")
	exposed[port] = struct{}{}

	hostAddr, err := netip.ParseAddr(spec.Command.BindHost)
	if err != nil {
		return fmt.Errorf("invalid bind host %q: %w", spec.Command.BindHost, err)
	}
	portMap[port] = append(portMap[port], network.PortBinding{
		HostIP:   hostAddr,
		HostPort: strconv.Itoa(spec.Expose.Port),
	})

	// 2) Remove a prior instance if it exists.
	if _, err := p.client.ContainerInspect(ctx, containerName, client.ContainerInspectOptions{}); err == nil {
		_, _ = p.client.ContainerStop(ctx, containerName, client.ContainerStopOptions{})
		if _, err := p.client.ContainerRemove(ctx, containerName, client.ContainerRemoveOptions{
			Force: true,
		}); err != nil {
			return fmt.Errorf("remove existing container %q: %w", containerName, err)
		}
	}

	// 3) Container configs. The process manager inside the image restarts
	// workers; Docker restarts the whole container if it dies.
	cCfg := &container.Config{
		Image:        services.ImageName(job.String()),
		ExposedPorts: exposed,
		Labels: map[string]string{
			services.LabelJob:     job.String(),
			services.LabelRun:     run.String(),
			services.LabelService: "web",
		},
	}

	hCfg := &container.HostConfig{
		PortBindings: portMap,
		RestartPolicy: container.RestartPolicy{
			Name: container.RestartPolicyAlways,
		},
	}

	containerID := ""

	created, err := p.client.ContainerCreate(ctx, client.ContainerCreateOptions{
		Config:     cCfg,
		HostConfig: hCfg,
		Name:       containerName,
		Image:      cCfg.Image,
	})
	if err != nil {
		// Race-safe: if something else created it, inspect and proceed.
		inspected, ie := p.client.ContainerInspect(ctx, containerName, client.ContainerInspectOptions{})
		if ie != nil {
			return fmt.Errorf("create container %q: %w", containerName, err)
		}
		containerID = inspected.Container.ID
	} else {
		containerID = created.ID
	}

	if _, err := p.client.ContainerStart(ctx, containerID, client.ContainerStartOptions{}); err != nil {
		// Port already bound on the host is fatal here by design.
		return fmt.Errorf("start container %q: %w", containerName, err)
	}

	return nil
}

// Logs follows the service container's output, demultiplexed onto the
// runner's stdout/stderr.
func (p *DockerPlatform) Logs(ctx context.Context, job uuid.UUID) error {
	containerName := services.ContainerName(job.String())

	rc, err := p.client.ContainerLogs(ctx, containerName, client.ContainerLogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
		Since:      "0",
	})
	if err != nil {
		if errdefs.IsNotFound(err) {
			return fmt.Errorf("no container for job %s", job.String())
		}
		return fmt.Errorf("logs container %q: %w", containerName, err)
	}
	defer rc.Close()

	if err := services.DemuxLogs(os.Stdout, os.Stderr, rc); err != nil {
		return fmt.Errorf("stream logs for %q: %w", containerName, err)
	}
	return nil
}
