package gantry

import "context"

// KubernetesDeployer provides a means to submit a workload to a Kubernetes
// cluster as a single-replica deployment. Implementations validate the
// options, translate them into a manifest, and dispatch it in one call,
// returning errors from the uniform taxonomy in this package.
type KubernetesDeployer interface {
	Deploy(ctx context.Context, opts *KubernetesDeploymentOptions) (*DeploymentResult, error)
}

// ECSDeployer provides a means to submit a workload to an ECS cluster by
// registering a task definition and then creating a service (or running the
// task once) from it. Dispatch is at most once and fail-fast: if
// registration fails, the follow-up call is never attempted, and a
// registered task definition is not rolled back when the follow-up fails.
// Implementations return errors from the uniform taxonomy in this package.
type ECSDeployer interface {
	Deploy(ctx context.Context, opts *ECSDeploymentOptions) (*DeploymentResult, error)
}
