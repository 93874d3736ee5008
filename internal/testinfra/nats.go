// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

//go:build integration

package testinfra

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// NATSContainer wraps a running NATS JetStream container.
type NATSContainer struct {
	container testcontainers.Container
	URL       string
}

// NewNATSContainer starts a nats:alpine container with JetStream enabled and
// returns its client URL. Call Terminate when the test is done.
func NewNATSContainer(ctx context.Context) (*NATSContainer, error) {
	req := testcontainers.ContainerRequest{
		Image:        "nats:2.10-alpine",
		ExposedPorts: []string{"4222/tcp"},
		Cmd:          []string{"-js"},
		WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start nats container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return nil, fmt.Errorf("get nats container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "4222")
	if err != nil {
		return nil, fmt.Errorf("get nats container port: %w", err)
	}

	return &NATSContainer{
		container: container,
		URL:       fmt.Sprintf("nats://%s:%s", host, port.Port()),
	}, nil
}

// Terminate stops and removes the container.
func (c *NATSContainer) Terminate(ctx context.Context) error {
	return c.container.Terminate(ctx)
}
