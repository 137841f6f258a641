package docker

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/pkg/archive"
)

func (c *Client) buildImage(ctx context.Context, imageName, srcPath, dockerfile string) error {
	tar, err := archive.TarWithOptions(srcPath, &archive.TarOptions{
		Compression: archive.Gzip,
	})
	if err != nil {
		return fmt.Errorf("failed to archive build context %s: %w", srcPath, err)
	}
	defer tar.Close()

	res, err := c.client.ImageBuild(ctx, tar, types.ImageBuildOptions{
		Dockerfile:     dockerfile,
		ForceRemove:    true,
		Remove:         true,
		SuppressOutput: true,
		Tags:           []string{imageName},
	})
	if err != nil {
		return fmt.Errorf("failed to build Docker image: %w", err)
	}
	defer res.Body.Close()

	scanner := bufio.NewScanner(res.Body)
	var logLine struct {
		Error string `json:"error"`
	}

	for scanner.Scan() {
		if err := json.Unmarshal(scanner.Bytes(), &logLine); err != nil {
			return fmt.Errorf("failed to get Docker image build logs: %w", err)
		}

		if logLine.Error != "" {
			return fmt.Errorf("failed to build Docker image: %s", logLine.Error)
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to get Docker image build logs: %w", err)
	}

	return nil
}
