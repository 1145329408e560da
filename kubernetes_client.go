package gantry

import (
	"context"

	appsv1 "k8s.io/api/apps/v1"
)

// KubernetesClient provides a common interface to interact with a Kubernetes
// cluster's control plane. Implementations are constructed per request from
// caller-supplied cluster credentials and must not outlive the request.
type KubernetesClient interface {
	// CreateDeployment creates the given deployment in a namespace and
	// returns the created object as the control plane recorded it.
	CreateDeployment(ctx context.Context, namespace string, deployment *appsv1.Deployment) (*appsv1.Deployment, error)
	// Close closes the client and cleans up its resources. Implementations
	// should ensure that this is idempotent.
	Close(ctx context.Context) error
}
