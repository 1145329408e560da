package testcase

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/evergreen-ci/utility"
	"github.com/gantryio/gantry"
	"github.com/gantryio/gantry/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ECSClientTestCase represents a test case for a gantry.ECSClient.
type ECSClientTestCase func(ctx context.Context, t *testing.T, c gantry.ECSClient)

// ECSClientTests returns common test cases that any gantry.ECSClient should
// support.
func ECSClientTests() map[string]ECSClientTestCase {
	return map[string]ECSClientTestCase{
		"RegisterTaskDefinitionReturnsTaskDefinitionWithARN": func(ctx context.Context, t *testing.T, c gantry.ECSClient) {
			in := testutil.ValidRegisterTaskDefinitionInput(t)

			out, err := c.RegisterTaskDefinition(ctx, in)
			require.NoError(t, err)
			require.NotZero(t, out)
			require.NotZero(t, out.TaskDefinition)
			assert.NotZero(t, utility.FromStringPtr(out.TaskDefinition.TaskDefinitionArn))
			assert.Equal(t, utility.FromStringPtr(in.Family), utility.FromStringPtr(out.TaskDefinition.Family))
		},
		"CreateServiceReturnsServiceRunningRegisteredTaskDefinition": func(ctx context.Context, t *testing.T, c gantry.ECSClient) {
			registerOut, err := c.RegisterTaskDefinition(ctx, testutil.ValidRegisterTaskDefinitionInput(t))
			require.NoError(t, err)
			require.NotZero(t, registerOut.TaskDefinition)

			out, err := c.CreateService(ctx, &ecs.CreateServiceInput{
				ServiceName:    aws.String("web"),
				Cluster:        aws.String("cluster"),
				TaskDefinition: registerOut.TaskDefinition.TaskDefinitionArn,
				DesiredCount:   aws.Int32(1),
			})
			require.NoError(t, err)
			require.NotZero(t, out)
			require.NotZero(t, out.Service)
			assert.NotZero(t, utility.FromStringPtr(out.Service.ServiceArn))
			assert.Equal(t, utility.FromStringPtr(registerOut.TaskDefinition.TaskDefinitionArn), utility.FromStringPtr(out.Service.TaskDefinition))
		},
		"RunTaskReturnsTaskForRegisteredTaskDefinition": func(ctx context.Context, t *testing.T, c gantry.ECSClient) {
			registerOut, err := c.RegisterTaskDefinition(ctx, testutil.ValidRegisterTaskDefinitionInput(t))
			require.NoError(t, err)
			require.NotZero(t, registerOut.TaskDefinition)

			out, err := c.RunTask(ctx, &ecs.RunTaskInput{
				Cluster:        aws.String("cluster"),
				TaskDefinition: registerOut.TaskDefinition.TaskDefinitionArn,
				Count:          aws.Int32(1),
			})
			require.NoError(t, err)
			require.NotZero(t, out)
			require.Len(t, out.Tasks, 1)
			assert.NotZero(t, utility.FromStringPtr(out.Tasks[0].TaskArn))
		},
	}
}
