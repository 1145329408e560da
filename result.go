package gantry

// DeploymentResult reports the outcome of a single successful dispatch. It
// carries raw platform identifiers only, never credential material, and is
// discarded once the response is written; nothing about a past deployment is
// retained.
type DeploymentResult struct {
	// Message is a human-readable summary of what was created.
	Message string

	// Namespace, Name, and UID identify a created Kubernetes deployment.
	Namespace string
	Name      string
	UID       string

	// TaskDefinitionARN is the ARN of the registered ECS task definition.
	TaskDefinitionARN string
	// ServiceARN is the ARN of the created ECS service, when deploying as a
	// managed service.
	ServiceARN string
	// TaskARNs are the ARNs of the launched ECS tasks, when deploying as a
	// one-off task.
	TaskARNs []string
}
