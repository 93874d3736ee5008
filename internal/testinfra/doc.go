// Threadline - real-time support-conversation intelligence pipeline.
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package testinfra provides test infrastructure for integration testing with containers.
//
// This package uses testcontainers-go to manage Docker containers for integration
// tests, providing a realistic NATS JetStream broker for broker package tests
// instead of a hand-rolled fake.
//
//	func TestBrokerAgainstRealNATS(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    ctx := context.Background()
//	    c, err := testinfra.NewNATSContainer(ctx)
//	    if err != nil {
//	        t.Fatal(err)
//	    }
//	    defer c.Terminate(ctx)
//	    // ... connect broker.NewNATSAdapter to c.URL
//	}
//
// These tests require Docker and are gated behind the "integration" build tag;
// they are skipped gracefully when Docker is unavailable.
package testinfra
