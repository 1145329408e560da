package gantry

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ecs"
)

// ECSClient provides a common interface to interact with a client backed by
// ECS. Implementations must handle retrying and backoff for transient
// failures; requests the platform rejects outright are never retried.
type ECSClient interface {
	// RegisterTaskDefinition registers the definition for a new task with
	// ECS.
	RegisterTaskDefinition(ctx context.Context, in *ecs.RegisterTaskDefinitionInput) (*ecs.RegisterTaskDefinitionOutput, error)
	// CreateService creates a service that runs the registered task
	// definition.
	CreateService(ctx context.Context, in *ecs.CreateServiceInput) (*ecs.CreateServiceOutput, error)
	// RunTask runs a registered task once without a managing service.
	RunTask(ctx context.Context, in *ecs.RunTaskInput) (*ecs.RunTaskOutput, error)
	// Close closes the client and cleans up its resources. Implementations
	// should ensure that this is idempotent.
	Close(ctx context.Context) error
}
