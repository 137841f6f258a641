package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/container"
)

// Remove force-removes the containers of a deployment. Removed services
// are deleted from the map.
func (c *Client) Remove(ctx context.Context, deployment Deployment) error {
	options := container.RemoveOptions{Force: true}

	for name, containerID := range deployment {
		if err := c.client.ContainerRemove(ctx, containerID, options); err != nil {
			return fmt.Errorf("failed to remove deployment: %w", err)
		}
		delete(deployment, name)
	}

	return nil
}
