package testutil

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/evergreen-ci/utility"
)

// NewTaskDefinitionFamily makes a new test family for a task definition with
// the given name and a random suffix so that concurrent test runs do not
// collide.
func NewTaskDefinitionFamily(name string) string {
	return "gantry-" + name + "-" + utility.RandomString()
}

// ValidRegisterTaskDefinitionInput returns a valid input to register a
// minimal task definition with a single container.
func ValidRegisterTaskDefinitionInput(t *testing.T) *ecs.RegisterTaskDefinitionInput {
	return &ecs.RegisterTaskDefinitionInput{
		Family: aws.String(NewTaskDefinitionFamily(t.Name())),
		ContainerDefinitions: []types.ContainerDefinition{
			{
				Name:      aws.String("web"),
				Image:     aws.String("nginx:latest"),
				Essential: aws.Bool(true),
				PortMappings: []types.PortMapping{
					{
						ContainerPort: aws.Int32(8080),
						HostPort:      aws.Int32(8080),
						Protocol:      types.TransportProtocolTcp,
					},
				},
			},
		},
		NetworkMode: types.NetworkModeAwsvpc,
		Cpu:         aws.String("256"),
		Memory:      aws.String("512"),
	}
}
