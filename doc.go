/*
Package gantry translates normalized container deployment requests into
workload submissions against container orchestration back ends. A caller
describes what to run - an image, a port, a name - and gantry produces the
platform-specific object graph and submits it, either as a Kubernetes
Deployment or as an ECS task definition plus service.

The KubernetesClient and ECSClient interfaces are narrow capability wrappers
around the platform control planes. Production implementations live in the
kube and ecs subpackages; the mock subpackage provides fakes for tests. The
rest subpackage exposes the deployment operations over HTTP.

Deployments are one-shot: each request performs a single create against the
target platform with no reconciliation loop, no rollout tracking, and no
teardown. Nothing is persisted between requests.
*/
package gantry
