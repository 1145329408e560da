package gantry

import (
	"strings"

	"github.com/evergreen-ci/utility"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/validation"
)

// DeploymentSpec is the normalized, platform-agnostic description of a
// workload to deploy: run this container image, on this port, under this
// name. Once validated, a spec is immutable for the lifetime of the request
// that carries it.
type DeploymentSpec struct {
	// Name identifies the workload. It is used as both the resource name and
	// the label value on every platform, so it is restricted to lowercase
	// alphanumerics and hyphens with a maximum length of 63 characters.
	// Required.
	Name *string
	// Image is the container image reference to run. An http(s) URL form is
	// accepted and treated as a registry reference. Required.
	Image *string
	// Port is the port the container listens on. Required.
	Port *int
	// Region is the geographic location to deploy into. Required for cloud
	// platforms and ignored for cluster platforms, whose endpoint is
	// determined by the cluster configuration.
	Region *string
}

// NewDeploymentSpec returns a new uninitialized deployment spec.
func NewDeploymentSpec() *DeploymentSpec {
	return &DeploymentSpec{}
}

// SetName sets the workload name.
func (s *DeploymentSpec) SetName(name string) *DeploymentSpec {
	s.Name = &name
	return s
}

// SetImage sets the container image reference.
func (s *DeploymentSpec) SetImage(image string) *DeploymentSpec {
	s.Image = &image
	return s
}

// SetPort sets the container port.
func (s *DeploymentSpec) SetPort(port int) *DeploymentSpec {
	s.Port = &port
	return s
}

// SetRegion sets the deployment region.
func (s *DeploymentSpec) SetRegion(region string) *DeploymentSpec {
	s.Region = &region
	return s
}

// Validate checks that all the required fields are given and the values are
// valid. All violations are collected rather than stopping at the first, and
// no platform is contacted.
func (s *DeploymentSpec) Validate() error {
	catcher := grip.NewBasicCatcher()

	if s.Name == nil {
		catcher.New("must specify a name")
	} else {
		for _, msg := range validation.IsDNS1123Label(utility.FromStringPtr(s.Name)) {
			catcher.Errorf("name: %s", msg)
		}
	}

	if utility.FromStringPtr(s.Image) == "" {
		catcher.New("must specify a container image")
	} else if _, err := name.ParseReference(trimImageScheme(utility.FromStringPtr(s.Image))); err != nil {
		catcher.Wrap(err, "invalid container image reference")
	}

	if s.Port == nil {
		catcher.New("must specify a port")
	} else {
		for _, msg := range validation.IsValidPortNum(utility.FromIntPtr(s.Port)) {
			catcher.Errorf("port: %s", msg)
		}
	}

	return catcher.Resolve()
}

// trimImageScheme strips an http(s) scheme prefix from an image reference so
// that a URL-form reference parses as a registry reference.
func trimImageScheme(image string) string {
	for _, scheme := range []string{"https://", "http://"} {
		if strings.HasPrefix(image, scheme) {
			return strings.TrimPrefix(image, scheme)
		}
	}
	return image
}

// DefaultNamespace is the namespace Kubernetes deployments are created in
// unless the options override it.
const DefaultNamespace = "default"

// KubernetesDeploymentOptions provide options to deploy a workload to a
// Kubernetes cluster.
type KubernetesDeploymentOptions struct {
	// Spec describes the workload to deploy. Required.
	Spec DeploymentSpec
	// Namespace is the namespace to create the deployment in. Defaults to
	// DefaultNamespace.
	Namespace *string
}

// NewKubernetesDeploymentOptions returns new uninitialized options to deploy
// a workload to a Kubernetes cluster.
func NewKubernetesDeploymentOptions() *KubernetesDeploymentOptions {
	return &KubernetesDeploymentOptions{}
}

// SetSpec sets the workload spec to deploy.
func (o *KubernetesDeploymentOptions) SetSpec(s DeploymentSpec) *KubernetesDeploymentOptions {
	o.Spec = s
	return o
}

// SetNamespace sets the namespace to create the deployment in.
func (o *KubernetesDeploymentOptions) SetNamespace(namespace string) *KubernetesDeploymentOptions {
	o.Namespace = &namespace
	return o
}

// Validate checks that all the required fields are given and the values are
// valid, and applies defaults to the unset optional fields.
func (o *KubernetesDeploymentOptions) Validate() error {
	catcher := grip.NewBasicCatcher()

	catcher.Add(o.Spec.Validate())
	if o.Namespace != nil {
		for _, msg := range validation.IsDNS1123Label(utility.FromStringPtr(o.Namespace)) {
			catcher.Errorf("namespace: %s", msg)
		}
	}

	if catcher.HasErrors() {
		return WrapError(ErrorKindValidation, catcher.Resolve(), "invalid deployment options")
	}

	if o.Namespace == nil {
		o.Namespace = utility.ToStringPtr(DefaultNamespace)
	}

	return nil
}

// ECSLaunchType represents the capacity an ECS workload runs on.
type ECSLaunchType string

const (
	// LaunchTypeFargate runs the workload on serverless Fargate capacity.
	LaunchTypeFargate ECSLaunchType = "FARGATE"
	// LaunchTypeEC2 runs the workload on self-managed EC2 capacity.
	LaunchTypeEC2 ECSLaunchType = "EC2"
)

// Validate checks that the launch type is a recognized value.
func (t ECSLaunchType) Validate() error {
	switch t {
	case LaunchTypeFargate, LaunchTypeEC2:
		return nil
	default:
		return errors.Errorf("unrecognized launch type '%s'", t)
	}
}

// ECSDeploymentMode determines whether an ECS workload runs as a managed
// service or as a one-off task.
type ECSDeploymentMode string

const (
	// DeploymentModeService creates a long-running service that keeps the
	// task alive.
	DeploymentModeService ECSDeploymentMode = "service"
	// DeploymentModeRunTask launches the task once without a managing
	// service.
	DeploymentModeRunTask ECSDeploymentMode = "run-task"
)

// Validate checks that the deployment mode is a recognized value.
func (m ECSDeploymentMode) Validate() error {
	switch m {
	case DeploymentModeService, DeploymentModeRunTask:
		return nil
	default:
		return errors.Errorf("unrecognized deployment mode '%s'", m)
	}
}

// AWSVPCOptions represent options to configure networking for ECS workloads
// using the awsvpc network mode.
type AWSVPCOptions struct {
	// Subnets are all the subnet IDs associated with the workload. At least
	// one subnet is required.
	Subnets []string
	// SecurityGroups are all the security group IDs associated with the
	// workload.
	SecurityGroups []string
	// AssignPublicIP determines whether the workload receives a public IP
	// address. Defaults to false.
	AssignPublicIP *bool
}

// NewAWSVPCOptions returns new uninitialized options for awsvpc networking.
func NewAWSVPCOptions() *AWSVPCOptions {
	return &AWSVPCOptions{}
}

// SetSubnets sets the subnets associated with the workload. This overrides
// any existing subnets.
func (o *AWSVPCOptions) SetSubnets(subnets []string) *AWSVPCOptions {
	o.Subnets = subnets
	return o
}

// AddSubnets adds new subnets to the existing ones for the workload.
func (o *AWSVPCOptions) AddSubnets(subnets ...string) *AWSVPCOptions {
	o.Subnets = append(o.Subnets, subnets...)
	return o
}

// SetSecurityGroups sets the security groups associated with the workload.
// This overrides any existing security groups.
func (o *AWSVPCOptions) SetSecurityGroups(groups []string) *AWSVPCOptions {
	o.SecurityGroups = groups
	return o
}

// AddSecurityGroups adds new security groups to the existing ones for the
// workload.
func (o *AWSVPCOptions) AddSecurityGroups(groups ...string) *AWSVPCOptions {
	o.SecurityGroups = append(o.SecurityGroups, groups...)
	return o
}

// SetAssignPublicIP sets whether the workload receives a public IP address.
func (o *AWSVPCOptions) SetAssignPublicIP(assign bool) *AWSVPCOptions {
	o.AssignPublicIP = &assign
	return o
}

// Validate checks that the required network configuration is given.
func (o *AWSVPCOptions) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(len(o.Subnets) == 0, "must specify at least one subnet")
	for _, subnet := range o.Subnets {
		catcher.NewWhen(subnet == "", "cannot specify an empty subnet")
	}
	for _, group := range o.SecurityGroups {
		catcher.NewWhen(group == "", "cannot specify an empty security group")
	}
	return catcher.Resolve()
}

// ECSDeploymentOptions provide options to deploy a workload to an ECS
// cluster.
type ECSDeploymentOptions struct {
	// Spec describes the workload to deploy. Required, including its region.
	Spec DeploymentSpec
	// Cluster is the name or ARN of the cluster to deploy into. Required.
	Cluster *string
	// Service is the name of the service to create (or, in run-task mode,
	// the name of the container in the task definition). Defaults to the
	// spec name.
	Service *string
	// TaskFamily is the family name the task definition is registered
	// under. Defaults to the spec name.
	TaskFamily *string
	// LaunchType determines the capacity the workload runs on. Defaults to
	// Fargate.
	LaunchType *ECSLaunchType
	// Mode determines whether the workload runs as a managed service or as
	// a one-off task. Defaults to a managed service.
	Mode *ECSDeploymentMode
	// AWSVPC sets the awsvpc networking configuration for the workload.
	// Required.
	AWSVPC *AWSVPCOptions
	// CPU is the CPU units allotted to the task. Defaults to a value small
	// enough to fit the smallest Fargate size.
	CPU *int
	// MemoryMB is the memory (in MB) allotted to the task. Defaults to a
	// value small enough to fit the smallest Fargate size.
	MemoryMB *int
	// Tags are resource tags applied to everything the deployment creates.
	Tags map[string]string
}

// NewECSDeploymentOptions returns new uninitialized options to deploy a
// workload to an ECS cluster.
func NewECSDeploymentOptions() *ECSDeploymentOptions {
	return &ECSDeploymentOptions{}
}

// SetSpec sets the workload spec to deploy.
func (o *ECSDeploymentOptions) SetSpec(s DeploymentSpec) *ECSDeploymentOptions {
	o.Spec = s
	return o
}

// SetCluster sets the name or ARN of the cluster to deploy into.
func (o *ECSDeploymentOptions) SetCluster(cluster string) *ECSDeploymentOptions {
	o.Cluster = &cluster
	return o
}

// SetService sets the name of the service to create.
func (o *ECSDeploymentOptions) SetService(service string) *ECSDeploymentOptions {
	o.Service = &service
	return o
}

// SetTaskFamily sets the family name the task definition is registered
// under.
func (o *ECSDeploymentOptions) SetTaskFamily(family string) *ECSDeploymentOptions {
	o.TaskFamily = &family
	return o
}

// SetLaunchType sets the capacity the workload runs on.
func (o *ECSDeploymentOptions) SetLaunchType(t ECSLaunchType) *ECSDeploymentOptions {
	o.LaunchType = &t
	return o
}

// SetMode sets whether the workload runs as a managed service or as a
// one-off task.
func (o *ECSDeploymentOptions) SetMode(m ECSDeploymentMode) *ECSDeploymentOptions {
	o.Mode = &m
	return o
}

// SetAWSVPC sets the awsvpc networking configuration for the workload.
func (o *ECSDeploymentOptions) SetAWSVPC(opts AWSVPCOptions) *ECSDeploymentOptions {
	o.AWSVPC = &opts
	return o
}

// SetCPU sets the CPU units allotted to the task.
func (o *ECSDeploymentOptions) SetCPU(cpu int) *ECSDeploymentOptions {
	o.CPU = &cpu
	return o
}

// SetMemoryMB sets the memory (in MB) allotted to the task.
func (o *ECSDeploymentOptions) SetMemoryMB(mem int) *ECSDeploymentOptions {
	o.MemoryMB = &mem
	return o
}

// SetTags sets the resource tags applied to everything the deployment
// creates. This overrides any existing tags.
func (o *ECSDeploymentOptions) SetTags(tags map[string]string) *ECSDeploymentOptions {
	o.Tags = tags
	return o
}

// AddTags adds new resource tags to the existing ones.
func (o *ECSDeploymentOptions) AddTags(tags map[string]string) *ECSDeploymentOptions {
	if o.Tags == nil {
		o.Tags = map[string]string{}
	}
	for k, v := range tags {
		o.Tags[k] = v
	}
	return o
}

// Validate checks that all the required fields are given and the values are
// valid, and applies defaults to the unset optional fields.
func (o *ECSDeploymentOptions) Validate() error {
	catcher := grip.NewBasicCatcher()

	catcher.Add(o.Spec.Validate())
	catcher.NewWhen(utility.FromStringPtr(o.Spec.Region) == "", "must specify a region")
	catcher.NewWhen(utility.FromStringPtr(o.Cluster) == "", "must specify a cluster")
	catcher.NewWhen(o.Service != nil && utility.FromStringPtr(o.Service) == "", "cannot specify an empty service name")
	catcher.NewWhen(o.TaskFamily != nil && utility.FromStringPtr(o.TaskFamily) == "", "cannot specify an empty task definition family")
	if o.LaunchType != nil {
		catcher.Add(o.LaunchType.Validate())
	}
	if o.Mode != nil {
		catcher.Add(o.Mode.Validate())
	}
	if o.AWSVPC == nil {
		catcher.New("must specify awsvpc network configuration")
	} else {
		catcher.Wrap(o.AWSVPC.Validate(), "invalid awsvpc network configuration")
	}
	catcher.ErrorfWhen(o.CPU != nil && utility.FromIntPtr(o.CPU) <= 0, "CPU must be a positive value")
	catcher.ErrorfWhen(o.MemoryMB != nil && utility.FromIntPtr(o.MemoryMB) <= 0, "memory must be a positive value")

	if catcher.HasErrors() {
		return WrapError(ErrorKindValidation, catcher.Resolve(), "invalid deployment options")
	}

	if o.Service == nil {
		o.Service = utility.ToStringPtr(utility.FromStringPtr(o.Spec.Name))
	}
	if o.TaskFamily == nil {
		o.TaskFamily = utility.ToStringPtr(utility.FromStringPtr(o.Spec.Name))
	}
	if o.LaunchType == nil {
		launchType := LaunchTypeFargate
		o.LaunchType = &launchType
	}
	if o.Mode == nil {
		mode := DeploymentModeService
		o.Mode = &mode
	}

	return nil
}
