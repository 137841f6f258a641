package docker

import (
	"context"
	"fmt"

	"github.com/docker/docker/api/types/network"
)

// CreateNetwork creates a bridge network and returns its ID.
func (c *Client) CreateNetwork(ctx context.Context, name string) (string, error) {
	res, err := c.client.NetworkCreate(ctx, name, network.CreateOptions{})
	if err != nil {
		return "", fmt.Errorf("failed to create Docker network: %w", err)
	}

	return res.ID, nil
}

func (c *Client) RemoveNetwork(ctx context.Context, networkID string) error {
	if err := c.client.NetworkRemove(ctx, networkID); err != nil {
		return fmt.Errorf("failed to remove Docker network: %w", err)
	}

	return nil
}
