package docker

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	cgo "github.com/compose-spec/compose-go/cli"
	cgotypes "github.com/compose-spec/compose-go/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/strslice"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Service is the container configuration of a Compose service.
type Service struct {
	Command     strslice.StrSlice
	Entrypoint  strslice.StrSlice
	Environment []string
	Image       string
	Healthcheck *container.HealthConfig
	ShmSize     int64
}

// Project maps the name of each service of a Compose project to its
// configuration.
type Project map[string]*Service

// imageName is the name of the image built for a service without one.
func imageName(name string, config *cgotypes.ServiceConfig) string {
	if config.Image != "" {
		return config.Image
	}

	return strings.Join([]string{filepath.Base(config.Build.Context), name}, "-")
}

func newService(name string, config *cgotypes.ServiceConfig) *Service {
	result := Service{
		Command:     strslice.StrSlice(config.Command),
		Entrypoint:  strslice.StrSlice(config.Entrypoint),
		Environment: make([]string, 0, len(config.Environment)),
		Image:       imageName(name, config),
		ShmSize:     int64(config.ShmSize),
	}

	for k, v := range config.Environment {
		if v == nil {
			result.Environment = append(result.Environment, k)
		} else {
			result.Environment = append(result.Environment, k+"="+*v)
		}
	}

	if config.HealthCheck == nil {
		return &result
	}

	result.Healthcheck = &container.HealthConfig{Test: config.HealthCheck.Test}

	if config.HealthCheck.Interval != nil {
		result.Healthcheck.Interval = time.Duration(*config.HealthCheck.Interval)
	}
	if config.HealthCheck.Timeout != nil {
		result.Healthcheck.Timeout = time.Duration(*config.HealthCheck.Timeout)
	}
	if config.HealthCheck.StartPeriod != nil {
		result.Healthcheck.StartPeriod = time.Duration(*config.HealthCheck.StartPeriod)
	}
	if config.HealthCheck.Retries != nil {
		result.Healthcheck.Retries = int(*config.HealthCheck.Retries)
	}
	if config.HealthCheck.Disable {
		result.Healthcheck.Test = []string{"NONE"}
	}

	return &result
}

func (c *Client) pull(ctx context.Context, imageName string) error {
	reader, err := c.client.ImagePull(ctx, imageName, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull Docker image: %w", err)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("failed to read Docker image pull logs: %w", err)
	}

	return nil
}

// LoadProject reads a Compose file and makes the image of every service
// available, pulling or building it.
func (c *Client) LoadProject(ctx context.Context, definition string) (Project, error) {
	project, err := cgo.ProjectFromOptions(&cgo.ProjectOptions{
		ConfigPaths: []string{definition},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load project definition file: %w", err)
	}

	group, groupCtx := errgroup.WithContext(ctx)
	for _, name := range project.ServiceNames() {
		config, err := project.GetService(name)
		if err != nil {
			return nil, fmt.Errorf("failed to read service %s: %w", name, err)
		}

		group.Go(func() error {
			if config.Image != "" {
				return c.pull(groupCtx, config.Image)
			}

			return c.buildImage(groupCtx, imageName(name, &config), config.Build.Context, config.Build.Dockerfile)
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}

	result := make(Project, len(project.ServiceNames()))
	for _, name := range project.ServiceNames() {
		config, _ := project.GetService(name)
		result[name] = newService(name, &config)
	}

	log.Infof("successfully read Docker Compose file from %s", definition)

	return result, nil
}
