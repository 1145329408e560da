package testutil

import (
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/gantryio/gantry/awsutil"
)

// ValidNonIntegrationAWSOptions returns valid options to create an AWS
// client that doesn't make any actual requests to AWS.
func ValidNonIntegrationAWSOptions() awsutil.ClientOptions {
	return *awsutil.NewClientOptions().
		SetCredentialsProvider(credentials.NewStaticCredentialsProvider("akid", "secret", "")).
		SetRegion("us-east-1")
}
