package ecs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/evergreen-ci/utility"
	"github.com/gantryio/gantry"
	"github.com/mongodb/grip"
	"github.com/pkg/errors"
)

const (
	// defaultTaskCPU and defaultTaskMemoryMB are applied when the options do
	// not size the task. They fit the smallest Fargate configuration.
	defaultTaskCPU      = 256
	defaultTaskMemoryMB = 512
)

// BasicDeployerOptions are options to create a basic ECS deployer.
type BasicDeployerOptions struct {
	// Client is the client the deployer dispatches through. Required.
	Client gantry.ECSClient
	// CallTimeout bounds each outbound platform call. When unset, no bound
	// is imposed beyond the request's own deadline.
	CallTimeout *time.Duration
}

// NewBasicDeployerOptions returns new uninitialized options to create a
// basic ECS deployer.
func NewBasicDeployerOptions() *BasicDeployerOptions {
	return &BasicDeployerOptions{}
}

// SetClient sets the client the deployer dispatches through.
func (o *BasicDeployerOptions) SetClient(c gantry.ECSClient) *BasicDeployerOptions {
	o.Client = c
	return o
}

// SetCallTimeout sets the bound on each outbound platform call.
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

// BasicDeployer provides a gantry.ECSDeployer implementation that registers
// a task definition and then creates a service (or runs the task once) from
// it. The two calls are strictly sequential and fail-fast: when registration
// fails the follow-up call is never issued, and a task definition that
// registered successfully is not rolled back when the follow-up fails.
type BasicDeployer struct {
	client      gantry.ECSClient
	callTimeout time.Duration
}

// NewBasicDeployer creates a deployer that dispatches workloads to AWS ECS.
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

// Deploy validates the options, translates them into a task definition, and
// dispatches the workload. Dispatch is at most once: no retry loop, no
// idempotency key. Deploying the same options twice produces two independent
// task definition revisions and a platform-level conflict on the second
// service, which is surfaced, not suppressed.
func (d *BasicDeployer) Deploy(ctx context.Context, opts *gantry.ECSDeploymentOptions) (*gantry.DeploymentResult, error) {
	if opts == nil {
		return nil, gantry.NewError(gantry.ErrorKindValidation, "missing deployment options")
	}
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid deployment options")
	}

	taskDef, err := d.registerTaskDefinition(ctx, opts)
	if err != nil {
		return nil, errors.Wrap(err, "registering task definition")
	}
	arn := utility.FromStringPtr(taskDef.TaskDefinitionArn)

	result := gantry.DeploymentResult{
		TaskDefinitionARN: arn,
	}

	switch *opts.Mode {
	case gantry.DeploymentModeRunTask:
		tasks, err := d.runTask(ctx, opts, arn)
		if err != nil {
			return nil, errors.Wrap(err, "running task")
		}
		for _, task := range tasks {
			result.TaskARNs = append(result.TaskARNs, utility.FromStringPtr(task.TaskArn))
		}
		result.Message = fmt.Sprintf("launched task from definition '%s' in cluster '%s'", arn, utility.FromStringPtr(opts.Cluster))
	default:
		svc, err := d.createService(ctx, opts, arn)
		if err != nil {
			return nil, errors.Wrap(err, "creating service")
		}
		result.ServiceARN = utility.FromStringPtr(svc.ServiceArn)
		result.Message = fmt.Sprintf("created service '%s' with task definition '%s' in cluster '%s'", utility.FromStringPtr(opts.Service), arn, utility.FromStringPtr(opts.Cluster))
	}

	return &result, nil
}

// registerTaskDefinition makes the request to register a task definition
// from the options and checks that it returns a valid task definition.
func (d *BasicDeployer) registerTaskDefinition(ctx context.Context, opts *gantry.ECSDeploymentOptions) (*types.TaskDefinition, error) {
	cctx, cancel := d.callContext(ctx)
	defer cancel()

	out, err := d.client.RegisterTaskDefinition(cctx, exportTaskDefinition(opts))
	if err != nil {
		return nil, normalizeError(err)
	}

	if err := validateRegisterTaskDefinitionOutput(out); err != nil {
		return nil, errors.Wrap(err, "validating response from registering task definition")
	}

	return out.TaskDefinition, nil
}

// validateRegisterTaskDefinitionOutput checks that the output from
// registering a task definition is a valid task definition.
func validateRegisterTaskDefinitionOutput(out *ecs.RegisterTaskDefinitionOutput) error {
	if out.TaskDefinition == nil {
		return errors.New("expected a task definition from ECS, but none was returned")
	}
	if utility.FromStringPtr(out.TaskDefinition.TaskDefinitionArn) == "" {
		return errors.New("received a task definition, but it is missing an ARN")
	}
	return nil
}

// createService makes the request to create a service running the
// registered task definition and checks that it returns a valid service.
func (d *BasicDeployer) createService(ctx context.Context, opts *gantry.ECSDeploymentOptions, taskDefARN string) (*types.Service, error) {
	cctx, cancel := d.callContext(ctx)
	defer cancel()

	out, err := d.client.CreateService(cctx, exportService(opts, taskDefARN))
	if err != nil {
		return nil, normalizeError(err)
	}

	if out.Service == nil {
		return nil, errors.New("expected a service from ECS, but none was returned")
	}

	return out.Service, nil
}

// runTask makes the request to run the registered task definition once and
// checks that it returns a valid task.
func (d *BasicDeployer) runTask(ctx context.Context, opts *gantry.ECSDeploymentOptions, taskDefARN string) ([]types.Task, error) {
	cctx, cancel := d.callContext(ctx)
	defer cancel()

	out, err := d.client.RunTask(cctx, exportRunTask(opts, taskDefARN))
	if err != nil {
		return nil, normalizeError(err)
	}

	if err := validateRunTaskOutput(out); err != nil {
		return nil, err
	}

	return out.Tasks, nil
}

// validateRunTaskOutput checks that the output from running a task contains
// no failures and includes the expected tasks. Failures reported inline are
// rejections by the platform, not transport errors.
func validateRunTaskOutput(out *ecs.RunTaskOutput) error {
	if len(out.Failures) > 0 {
		catcher := grip.NewBasicCatcher()
		for _, f := range out.Failures {
			catcher.Add(ConvertFailureToError(f))
		}
		return gantry.WrapError(gantry.ErrorKindPlatformRejected, catcher.Resolve(), "running task")
	}

	if len(out.Tasks) == 0 {
		return errors.New("expected a task to be running in ECS, but none was returned")
	}
	if utility.FromStringPtr(out.Tasks[0].TaskArn) == "" {
		return errors.New("received a task, but it is missing an ARN")
	}

	return nil
}

// callContext bounds a single outbound call when a call timeout is
// configured.
func (d *BasicDeployer) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d.callTimeout)
}

// exportTaskDefinition converts validated deployment options into a task
// definition registration input with a single essential container exposing
// the spec's port. Container port and host port are equal, as awsvpc
// networking requires.
func exportTaskDefinition(opts *gantry.ECSDeploymentOptions) *ecs.RegisterTaskDefinitionInput {
	port := int32(utility.FromIntPtr(opts.Spec.Port))

	containerDef := types.ContainerDefinition{
		Name:      aws.String(utility.FromStringPtr(opts.Service)),
		Image:     aws.String(utility.FromStringPtr(opts.Spec.Image)),
		Essential: aws.Bool(true),
		PortMappings: []types.PortMapping{
			{
				ContainerPort: aws.Int32(port),
				HostPort:      aws.Int32(port),
				Protocol:      types.TransportProtocolTcp,
			},
		},
	}

	in := ecs.RegisterTaskDefinitionInput{
		Family:               opts.TaskFamily,
		ContainerDefinitions: []types.ContainerDefinition{containerDef},
		NetworkMode:          types.NetworkModeAwsvpc,
		Cpu:                  aws.String(strconv.Itoa(intOrDefault(opts.CPU, defaultTaskCPU))),
		Memory:               aws.String(strconv.Itoa(intOrDefault(opts.MemoryMB, defaultTaskMemoryMB))),
		Tags:                 ExportTags(opts.Tags),
	}

	if *opts.LaunchType == gantry.LaunchTypeFargate {
		in.RequiresCompatibilities = []types.Compatibility{types.CompatibilityFargate}
	}

	return &in
}

// exportService converts validated deployment options and a registered task
// definition ARN into a single-task service creation input.
func exportService(opts *gantry.ECSDeploymentOptions, taskDefARN string) *ecs.CreateServiceInput {
	return &ecs.CreateServiceInput{
		ServiceName:          opts.Service,
		Cluster:              opts.Cluster,
		TaskDefinition:       aws.String(taskDefARN),
		DesiredCount:         aws.Int32(1),
		LaunchType:           exportLaunchType(opts.LaunchType),
		NetworkConfiguration: exportAWSVPCOptions(opts.AWSVPC),
		Tags:                 ExportTags(opts.Tags),
	}
}

// exportRunTask converts validated deployment options and a registered task
// definition ARN into a one-off task execution input.
func exportRunTask(opts *gantry.ECSDeploymentOptions, taskDefARN string) *ecs.RunTaskInput {
	return &ecs.RunTaskInput{
		Cluster:              opts.Cluster,
		TaskDefinition:       aws.String(taskDefARN),
		Count:                aws.Int32(1),
		LaunchType:           exportLaunchType(opts.LaunchType),
		NetworkConfiguration: exportAWSVPCOptions(opts.AWSVPC),
		Tags:                 ExportTags(opts.Tags),
	}
}

// exportLaunchType converts the launch type into its ECS equivalent.
func exportLaunchType(t *gantry.ECSLaunchType) types.LaunchType {
	if t != nil && *t == gantry.LaunchTypeEC2 {
		return types.LaunchTypeEc2
	}
	return types.LaunchTypeFargate
}

// exportAWSVPCOptions converts networking options into an ECS network
// configuration.
func exportAWSVPCOptions(opts *gantry.AWSVPCOptions) *types.NetworkConfiguration {
	if opts == nil {
		return nil
	}

	converted := types.AwsVpcConfiguration{
		Subnets:        opts.Subnets,
		AssignPublicIp: types.AssignPublicIpDisabled,
	}
	if len(opts.SecurityGroups) != 0 {
		converted.SecurityGroups = opts.SecurityGroups
	}
	if utility.FromBoolPtr(opts.AssignPublicIP) {
		converted.AssignPublicIp = types.AssignPublicIpEnabled
	}

	return &types.NetworkConfiguration{AwsvpcConfiguration: &converted}
}

// ExportTags converts a mapping of tag names to values into ECS tags.
func ExportTags(tags map[string]string) []types.Tag {
	var ecsTags []types.Tag

	for k, v := range tags {
		var tag types.Tag
		tag.Key = aws.String(k)
		tag.Value = aws.String(v)
		ecsTags = append(ecsTags, tag)
	}

	return ecsTags
}

// intOrDefault returns the dereferenced value or a fallback when unset.
func intOrDefault(val *int, fallback int) int {
	if val == nil {
		return fallback
	}
	return *val
}
