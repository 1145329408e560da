package mock

import (
	"context"

	"github.com/google/uuid"
	appsv1 "k8s.io/api/apps/v1"
	k8stypes "k8s.io/apimachinery/pkg/types"
)

// KubernetesClient provides a mock implementation of a
// gantry.KubernetesClient. This makes it possible to introspect on the
// manifest submitted to the cluster and control the client's output. It
// provides a default implementation that echoes the manifest back the way a
// control plane would record it.
type KubernetesClient struct {
	CreateDeploymentNamespace string
	CreateDeploymentInput     *appsv1.Deployment
	CreateDeploymentOutput    *appsv1.Deployment
	CreateDeploymentError     error
	CreateDeploymentCalls     int

	CloseCalls int
}

// CreateDeployment saves the namespace and manifest and returns the created
// deployment. The mock output and error can be customized. By default, it
// returns a copy of the manifest with the namespace and a generated UID
// filled in.
func (c *KubernetesClient) CreateDeployment(ctx context.Context, namespace string, deployment *appsv1.Deployment) (*appsv1.Deployment, error) {
	c.CreateDeploymentCalls++
	c.CreateDeploymentNamespace = namespace
	c.CreateDeploymentInput = deployment

	if c.CreateDeploymentError != nil {
		return nil, c.CreateDeploymentError
	}
	if c.CreateDeploymentOutput != nil {
		return c.CreateDeploymentOutput, nil
	}

	created := deployment.DeepCopy()
	created.Namespace = namespace
	created.UID = k8stypes.UID(uuid.NewString())

	return created, nil
}

// Close closes the mock client and counts the call. It is a no-op that
// returns no error.
func (c *KubernetesClient) Close(ctx context.Context) error {
	c.CloseCalls++
	return nil
}
