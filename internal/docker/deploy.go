package docker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	log "github.com/sirupsen/logrus"
)

// pollInterval is the wait between two inspections of a container
// without a healthcheck.
var pollInterval = 100 * time.Millisecond

// DeployOptions controls how the containers of a project are named and
// attached.
type DeployOptions struct {
	Prefix   string
	Networks []string
}

// Deployment maps each service of a running project to its container ID.
type Deployment map[string]string

type deployed struct {
	service     string
	containerID string
	err         error
}

func containerName(prefix, service string) string {
	if prefix == "" {
		return service
	}

	return strings.Join([]string{prefix, service}, "-")
}

func (c *Client) create(ctx context.Context, name string, config *Service) (string, error) {
	var (
		containerConfig = &container.Config{
			Cmd:         config.Command,
			Entrypoint:  config.Entrypoint,
			Env:         config.Environment,
			Image:       config.Image,
			Healthcheck: config.Healthcheck,
		}
		hostConfig = &container.HostConfig{
			ShmSize: config.ShmSize,
		}
	)

	res, err := c.client.ContainerCreate(ctx, containerConfig, hostConfig, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("failed to create Docker container: %w", err)
	}
	log.Debugf("created container %s with config: %v", name, containerConfig)

	return res.ID, nil
}

func (c *Client) isRunning(ctx context.Context, containerID string) (bool, error) {
	stats, err := c.client.ContainerInspect(ctx, containerID)
	if err != nil {
		return false, fmt.Errorf("failed to inspect Docker container: %w", err)
	}

	if stats.Config.Healthcheck == nil || stats.State.Health == nil {
		switch stats.State.Status {
		case "exited":
			if stats.State.ExitCode == 0 {
				return true, nil
			}

			return false, fmt.Errorf("the container exited with status code %d", stats.State.ExitCode)
		case "paused", "restarting", "removing", "dead":
			return false, fmt.Errorf("the container is into state: %s", stats.State.Status)
		default:
			return stats.State.Status == "running", nil
		}
	}

	if stats.State.Health.Status == "healthy" {
		return true, nil
	}

	if stats.State.Health.FailingStreak >= stats.Config.Healthcheck.Retries {
		logs := make([]string, len(stats.State.Health.Log))
		for i, result := range stats.State.Health.Log {
			logs[i] = result.Output
		}

		return false, fmt.Errorf("container healthcheck failing: %s", strings.Join(logs, " "))
	}

	return false, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) waitRunning(ctx context.Context, containerID string, srv *Service) error {
	interval := pollInterval
	if srv.Healthcheck != nil {
		if err := sleep(ctx, srv.Healthcheck.StartPeriod); err != nil {
			return err
		}
		if srv.Healthcheck.Interval > 0 {
			interval = srv.Healthcheck.Interval
		}
	}

	for {
		running, err := c.isRunning(ctx, containerID)
		if err != nil {
			return err
		} else if running {
			return nil
		}

		if err := sleep(ctx, interval); err != nil {
			return err
		}
	}
}

func (c *Client) deployService(ctx context.Context, name string, srv *Service, options DeployOptions) (string, error) {
	containerID, err := c.create(ctx, containerName(options.Prefix, name), srv)
	if err != nil {
		return "", err
	}

	cleanup := func() {
		err := c.client.ContainerRemove(context.Background(), containerID, container.RemoveOptions{Force: true})
		if err != nil {
			log.Errorf("failed to delete failed Docker container: %v", err)
		}
	}

	for _, net := range options.Networks {
		if err := c.client.NetworkConnect(ctx, net, containerID, &network.EndpointSettings{}); err != nil {
			cleanup()
			return "", fmt.Errorf("failed to connect container to network %s: %w", net, err)
		}
	}

	if err := c.client.ContainerStart(ctx, containerID, container.StartOptions{}); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to start Docker container: %w", err)
	}

	if err := c.waitRunning(ctx, containerID, srv); err != nil {
		cleanup()
		return "", err
	}

	return containerID, nil
}

// Deploy starts one container per service of project and waits until
// all of them are running or healthy. On failure every started
// container is removed.
func (c *Client) Deploy(ctx context.Context, project Project, options DeployOptions) (Deployment, error) {
	result := make(Deployment, len(project))
	ch := make(chan deployed)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for name, srv := range project {
		go func() {
			containerID, err := c.deployService(ctx, name, srv, options)
			ch <- deployed{service: name, containerID: containerID, err: err}
		}()
	}

	var deployErr error
	for range len(project) {
		stat := <-ch
		if stat.err != nil {
			if deployErr == nil {
				cancel()
				deployErr = stat.err
			}
			continue
		}
		result[stat.service] = stat.containerID
	}

	if deployErr != nil {
		if err := c.Remove(context.Background(), result); err != nil {
			log.Errorf("failed to remove partial deployment: %v", err)
		}

		return nil, deployErr
	}

	return result, nil
}
