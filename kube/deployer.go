package kube

import (
	"context"
	"fmt"
	"time"

	"github.com/evergreen-ci/utility"
	"github.com/gantryio/gantry"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// appLabel is the label key identifying the workload on the deployment, its
// selector, and its pods.
const appLabel = "app"

// BasicDeployerOptions are options to create a basic Kubernetes deployer.
type BasicDeployerOptions struct {
	// Client is the client the deployer dispatches through. Required.
	Client gantry.KubernetesClient
	// CallTimeout bounds the outbound platform call. When unset, no bound
	// is imposed beyond the request's own deadline.
	CallTimeout *time.Duration
}

// NewBasicDeployerOptions returns new uninitialized options to create a
// basic Kubernetes deployer.
func NewBasicDeployerOptions() *BasicDeployerOptions {
	return &BasicDeployerOptions{}
}

// SetClient sets the client the deployer dispatches through.
func (o *BasicDeployerOptions) SetClient(c gantry.KubernetesClient) *BasicDeployerOptions {
	o.Client = c
	return o
}

// SetCallTimeout sets the bound on the outbound platform call.
func (o *BasicDeployerOptions) SetCallTimeout(timeout time.Duration) *BasicDeployerOptions {
	o.CallTimeout = &timeout
	return o
}

// Validate checks that the deployer has a client and a sensible call
// timeout.
func (o *BasicDeployerOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(o.Client == nil, "must specify a client")
	catcher.NewWhen(o.CallTimeout != nil && *o.CallTimeout <= 0, "call timeout must be a positive duration")
	return catcher.Resolve()
}

// BasicDeployer provides a gantry.KubernetesDeployer implementation that
// translates validated options into a single-replica Deployment manifest
// and submits it in one call.
type BasicDeployer struct {
	client      gantry.KubernetesClient
	callTimeout time.Duration
}

// NewBasicDeployer creates a deployer that dispatches workloads to a
// Kubernetes cluster.
func NewBasicDeployer(opts BasicDeployerOptions) (*BasicDeployer, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid deployer options")
	}

	d := &BasicDeployer{client: opts.Client}
	if opts.CallTimeout != nil {
		d.callTimeout = *opts.CallTimeout
	}

	return d, nil
}

// Deploy validates the options, translates them into a Deployment manifest,
// and dispatches it. Dispatch is at most once: no retry loop, no idempotency
// key. Deploying the same options twice produces a platform-level conflict
// on the second call, which is surfaced, not suppressed.
func (d *BasicDeployer) Deploy(ctx context.Context, opts *gantry.KubernetesDeploymentOptions) (*gantry.DeploymentResult, error) {
	if opts == nil {
		return nil, gantry.NewError(gantry.ErrorKindValidation, "missing deployment options")
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid deployment options")
	}

	cctx, cancel := d.callContext(ctx)
	defer cancel()

	namespace := utility.FromStringPtr(opts.Namespace)
	created, err := d.client.CreateDeployment(cctx, namespace, exportDeployment(opts))
	if err != nil {
		return nil, errors.Wrap(normalizeError(err), "creating deployment")
	}
	if created == nil {
		return nil, errors.New("expected a deployment from the cluster, but none was returned")
	}

	return &gantry.DeploymentResult{
		Message:   fmt.Sprintf("created deployment '%s' in namespace '%s'", created.Name, namespace),
		Namespace: namespace,
		Name:      created.Name,
		UID:       string(created.UID),
	}, nil
}

// callContext bounds the outbound call when a call timeout is configured.
func (d *BasicDeployer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.callTimeout)
}

// exportDeployment converts validated deployment options into a
// single-replica Deployment manifest. The selector's match labels and the
// pod template's labels are the same map built once from the workload name,
// so they cannot drift apart.
func exportDeployment(opts *gantry.KubernetesDeploymentOptions) *appsv1.Deployment {
	name := utility.FromStringPtr(opts.Spec.Name)
	labels := map[string]string{appLabel: name}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:   name,
			Labels: labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: utility.ToInt32Ptr(1),
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{
						{
							Name:  name,
							Image: utility.FromStringPtr(opts.Spec.Image),
							Ports: []corev1.ContainerPort{
								{
									ContainerPort: int32(utility.FromIntPtr(opts.Spec.Port)),
									Protocol:      corev1.ProtocolTCP,
								},
							},
						},
					},
				},
			},
		},
	}
}
