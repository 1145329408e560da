// Package kube provides the Kubernetes implementation of the deployment
// operations: a client wrapping the cluster control plane and a deployer
// that translates a validated spec into a Deployment manifest and submits
// it.
package kube

import (
	"context"

	"github.com/pkg/errors"
	appsv1 "k8s.io/api/apps/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
)

// BasicKubernetesClient provides a gantry.KubernetesClient implementation
// that wraps a cluster's control plane API. Whether the underlying
// configuration actually authenticates is discovered on the first call, not
// at construction.
type BasicKubernetesClient struct {
	clientset kubernetes.Interface
}

// NewBasicKubernetesClient creates a new client for the cluster the
// configuration points at.
func NewBasicKubernetesClient(config *rest.Config) (*BasicKubernetesClient, error) {
	if config == nil {
		return nil, errors.New("must provide a client configuration")
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		return nil, errors.Wrap(err, "creating clientset")
	}

	return &BasicKubernetesClient{clientset: clientset}, nil
}

// CreateDeployment creates the deployment in the namespace and returns the
// object as the control plane recorded it.
func (c *BasicKubernetesClient) CreateDeployment(ctx context.Context, namespace string, deployment *appsv1.Deployment) (*appsv1.Deployment, error) {
	return c.clientset.AppsV1().Deployments(namespace).Create(ctx, deployment, metav1.CreateOptions{})
}

// Close closes the client and cleans up its resources. It is idempotent.
func (c *BasicKubernetesClient) Close(ctx context.Context) error {
	return nil
}
