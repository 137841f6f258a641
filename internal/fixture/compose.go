package fixture

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/pako-23/layered/internal/docker"
	log "github.com/sirupsen/logrus"
)

// Engine deploys Compose projects. *docker.Client implements it.
type Engine interface {
	LoadProject(ctx context.Context, definition string) (docker.Project, error)
	CreateNetwork(ctx context.Context, name string) (string, error)
	Deploy(ctx context.Context, project docker.Project, options docker.DeployOptions) (docker.Deployment, error)
	Remove(ctx context.Context, deployment docker.Deployment) error
	RemoveNetwork(ctx context.Context, networkID string) error
}

var invalidNameChars = regexp.MustCompile(`[^a-z0-9_.-]+`)

// ResourceName turns a layer name into a valid Docker object name.
func ResourceName(layerName string) string {
	name := invalidNameChars.ReplaceAllString(strings.ToLower(layerName), "-")
	name = strings.Trim(name, "-.")
	if name == "" {
		return "layer"
	}

	return name
}

// Compose runs a Docker Compose project for the lifetime of a layer.
// Containers are named after the layer and attached to a network of
// the same name.
type Compose struct {
	Layer      string
	Definition string

	engine     Engine
	project    docker.Project
	networkID  string
	deployment docker.Deployment
}

func NewCompose(engine Engine, layerName, definition string) *Compose {
	return &Compose{Layer: layerName, Definition: definition, engine: engine}
}

// Deployment returns the running containers by service name.
func (c *Compose) Deployment() docker.Deployment {
	return c.deployment
}

func (c *Compose) SetUp(ctx context.Context) error {
	if c.project == nil {
		project, err := c.engine.LoadProject(ctx, c.Definition)
		if err != nil {
			return err
		}
		c.project = project
	}

	name := ResourceName(c.Layer)
	networkID, err := c.engine.CreateNetwork(ctx, name)
	if err != nil {
		return err
	}

	deployment, err := c.engine.Deploy(ctx, c.project, docker.DeployOptions{
		Prefix:   name,
		Networks: []string{networkID},
	})
	if err != nil {
		if rmErr := c.engine.RemoveNetwork(context.Background(), networkID); rmErr != nil {
			log.Errorf("[layer=%s] failed to remove network: %v", c.Layer, rmErr)
		}

		return fmt.Errorf("failed to deploy %s: %w", c.Definition, err)
	}

	c.networkID = networkID
	c.deployment = deployment
	log.Debugf("[layer=%s] deployed %d services", c.Layer, len(deployment))

	return nil
}

func (c *Compose) TearDown(ctx context.Context) error {
	if c.deployment == nil {
		return nil
	}

	err := c.engine.Remove(ctx, c.deployment)
	if err == nil {
		c.deployment = nil
	}

	if netErr := c.engine.RemoveNetwork(ctx, c.networkID); netErr != nil {
		err = errors.Join(err, netErr)
	} else {
		c.networkID = ""
	}

	return err
}
