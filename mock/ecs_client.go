package mock

import (
	"context"
	"fmt"

	awsarn "github.com/aws/aws-sdk-go-v2/aws/arn"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/evergreen-ci/utility"
)

// ECSClient provides a mock implementation of a gantry.ECSClient. This makes
// it possible to introspect on inputs to the client and control the client's
// output. It provides default implementations that synthesize plausible
// output from the input.
type ECSClient struct {
	RegisterTaskDefinitionInput  *ecs.RegisterTaskDefinitionInput
	RegisterTaskDefinitionOutput *ecs.RegisterTaskDefinitionOutput
	RegisterTaskDefinitionError  error
	RegisterTaskDefinitionCalls  int

	CreateServiceInput  *ecs.CreateServiceInput
	CreateServiceOutput *ecs.CreateServiceOutput
	CreateServiceError  error
	CreateServiceCalls  int

	RunTaskInput  *ecs.RunTaskInput
	RunTaskOutput *ecs.RunTaskOutput
	RunTaskError  error
	RunTaskCalls  int

	CloseCalls int
}

// RegisterTaskDefinition saves the input and returns a new mock task
// definition. The mock output and error can be customized. By default, it
// returns an active task definition whose ARN is derived from the family and
// call count.
func (c *ECSClient) RegisterTaskDefinition(ctx context.Context, in *ecs.RegisterTaskDefinitionInput) (*ecs.RegisterTaskDefinitionOutput, error) {
	c.RegisterTaskDefinitionCalls++
	c.RegisterTaskDefinitionInput = in

	if c.RegisterTaskDefinitionError != nil {
		return nil, c.RegisterTaskDefinitionError
	}
	if c.RegisterTaskDefinitionOutput != nil {
		return c.RegisterTaskDefinitionOutput, nil
	}

	family := utility.FromStringPtr(in.Family)
	revision := c.RegisterTaskDefinitionCalls
	id := awsarn.ARN{
		Partition: "aws",
		Service:   "ecs",
		Region:    "us-east-1",
		AccountID: "000000000000",
		Resource:  fmt.Sprintf("task-definition/%s:%d", family, revision),
	}

	return &ecs.RegisterTaskDefinitionOutput{
		TaskDefinition: &types.TaskDefinition{
			TaskDefinitionArn:       utility.ToStringPtr(id.String()),
			Family:                  in.Family,
			Revision:                int32(revision),
			ContainerDefinitions:    in.ContainerDefinitions,
			Cpu:                     in.Cpu,
			Memory:                  in.Memory,
			NetworkMode:             in.NetworkMode,
			RequiresCompatibilities: in.RequiresCompatibilities,
			Status:                  types.TaskDefinitionStatusActive,
		},
		Tags: in.Tags,
	}, nil
}

// CreateService saves the input and returns a new mock service. The mock
// output and error can be customized. By default, it returns an active
// service echoing back the input.
func (c *ECSClient) CreateService(ctx context.Context, in *ecs.CreateServiceInput) (*ecs.CreateServiceOutput, error) {
	c.CreateServiceCalls++
	c.CreateServiceInput = in

	if c.CreateServiceError != nil {
		return nil, c.CreateServiceError
	}
	if c.CreateServiceOutput != nil {
		return c.CreateServiceOutput, nil
	}

	cluster := utility.FromStringPtr(in.Cluster)
	name := utility.FromStringPtr(in.ServiceName)
	id := awsarn.ARN{
		Partition: "aws",
		Service:   "ecs",
		Region:    "us-east-1",
		AccountID: "000000000000",
		Resource:  fmt.Sprintf("service/%s/%s", cluster, name),
	}

	return &ecs.CreateServiceOutput{
		Service: &types.Service{
			ServiceArn:     utility.ToStringPtr(id.String()),
			ServiceName:    in.ServiceName,
			ClusterArn:     in.Cluster,
			TaskDefinition: in.TaskDefinition,
			DesiredCount:   utility.FromInt32Ptr(in.DesiredCount),
			LaunchType:     in.LaunchType,
			Status:         utility.ToStringPtr("ACTIVE"),
		},
	}, nil
}

// RunTask saves the input and returns a new mock task. The mock output and
// error can be customized. By default, it returns a single provisioning task
// referencing the input task definition.
func (c *ECSClient) RunTask(ctx context.Context, in *ecs.RunTaskInput) (*ecs.RunTaskOutput, error) {
	c.RunTaskCalls++
	c.RunTaskInput = in

	if c.RunTaskError != nil {
		return nil, c.RunTaskError
	}
	if c.RunTaskOutput != nil {
		return c.RunTaskOutput, nil
	}

	cluster := utility.FromStringPtr(in.Cluster)
	id := awsarn.ARN{
		Partition: "aws",
		Service:   "ecs",
		Region:    "us-east-1",
		AccountID: "000000000000",
		Resource:  fmt.Sprintf("task/%s/%s", cluster, utility.RandomString()),
	}

	var tasks []types.Task
	count := int(utility.FromInt32Ptr(in.Count))
	if count == 0 {
		count = 1
	}
	for i := 0; i < count; i++ {
		tasks = append(tasks, types.Task{
			TaskArn:           utility.ToStringPtr(id.String()),
			ClusterArn:        in.Cluster,
			TaskDefinitionArn: in.TaskDefinition,
			LastStatus:        utility.ToStringPtr("PROVISIONING"),
		})
	}

	return &ecs.RunTaskOutput{Tasks: tasks}, nil
}

// Close closes the mock client and counts the call. It is a no-op that
// returns no error.
func (c *ECSClient) Close(ctx context.Context) error {
	c.CloseCalls++
	return nil
}
