package ecs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/smithy-go"
	"github.com/evergreen-ci/utility"
	"github.com/gantryio/gantry/awsutil"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
)

// BasicECSClient provides a gantry.ECSClient implementation that wraps the
// AWS ECS API. It retries transient failures using exponential backoff and
// jitter; requests the platform rejects outright are never retried.
type BasicECSClient struct {
	awsutil.BaseClient
	ecs *ecs.Client
}

// NewBasicECSClient creates a new ECS client from the given options.
func NewBasicECSClient(opts awsutil.ClientOptions) (*BasicECSClient, error) {
	if err := opts.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid options")
	}

	return &BasicECSClient{BaseClient: awsutil.NewBaseClient(opts)}, nil
}

func (c *BasicECSClient) setup(ctx context.Context) error {
	if c.ecs != nil {
		return nil
	}

	config, err := c.GetConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "getting config")
	}

	c.ecs = ecs.NewFromConfig(*config)

	return nil
}

// RegisterTaskDefinition registers the definition for a new task.
func (c *BasicECSClient) RegisterTaskDefinition(ctx context.Context, in *ecs.RegisterTaskDefinitionInput) (*ecs.RegisterTaskDefinitionOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, errors.Wrap(err, "setting up client")
	}

	var out *ecs.RegisterTaskDefinitionOutput
	var err error
	msg := awsutil.MakeAPILogMessage("RegisterTaskDefinition", in)
	if err := utility.Retry(ctx,
		func() (bool, error) {
			out, err = c.ecs.RegisterTaskDefinition(ctx, in)
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) {
				grip.Debug(message.WrapError(apiErr, msg))
				if isNonRetryableErrorCode(apiErr.ErrorCode()) {
					return false, err
				}
			}
			return true, err
		}, c.GetRetryOptions()); err != nil {
		return nil, err
	}

	return out, nil
}

// CreateService creates a service that runs a registered task definition.
func (c *BasicECSClient) CreateService(ctx context.Context, in *ecs.CreateServiceInput) (*ecs.CreateServiceOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, errors.Wrap(err, "setting up client")
	}

	var out *ecs.CreateServiceOutput
	var err error
	msg := awsutil.MakeAPILogMessage("CreateService", in)
	if err := utility.Retry(ctx,
		func() (bool, error) {
			out, err = c.ecs.CreateService(ctx, in)
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) {
				grip.Debug(message.WrapError(apiErr, msg))
				if isNonRetryableErrorCode(apiErr.ErrorCode()) {
					return false, err
				}
			}
			return true, err
		}, c.GetRetryOptions()); err != nil {
		return nil, err
	}

	return out, nil
}

// RunTask runs a registered task once.
func (c *BasicECSClient) RunTask(ctx context.Context, in *ecs.RunTaskInput) (*ecs.RunTaskOutput, error) {
	if err := c.setup(ctx); err != nil {
		return nil, errors.Wrap(err, "setting up client")
	}

	var out *ecs.RunTaskOutput
	var err error
	msg := awsutil.MakeAPILogMessage("RunTask", in)
	if err := utility.Retry(ctx,
		func() (bool, error) {
			out, err = c.ecs.RunTask(ctx, in)
			var apiErr smithy.APIError
			if errors.As(err, &apiErr) {
				grip.Debug(message.WrapError(apiErr, msg))
				if isNonRetryableErrorCode(apiErr.ErrorCode()) {
					return false, err
				}
			}
			return true, err
		}, c.GetRetryOptions()); err != nil {
		return nil, err
	}

	return out, nil
}

// isNonRetryableErrorCode returns whether the error code from ECS indicates
// that the request is defective or unauthorized, in which case retrying it
// cannot succeed.
func isNonRetryableErrorCode(code string) bool {
	switch code {
	case "InvalidParameterException",
		"ClientException",
		"ValidationException",
		"ClusterNotFoundException",
		"AccessDeniedException",
		"UnrecognizedClientException",
		"InvalidSignatureException":
		return true
	default:
		return false
	}
}
