package gantry

import (
	"github.com/evergreen-ci/utility"
	"github.com/mongodb/grip"
)

// ClusterCredentials hold caller-supplied configuration for reaching a
// Kubernetes cluster. Credentials live for a single request; they are never
// logged, never persisted, and never embedded in a workload or result.
type ClusterCredentials struct {
	// Kubeconfig is the cluster configuration blob. It may be
	// base64-encoded or raw kubeconfig YAML. Required.
	Kubeconfig []byte
}

// NewClusterCredentials returns new uninitialized cluster credentials.
func NewClusterCredentials() *ClusterCredentials {
	return &ClusterCredentials{}
}

// SetKubeconfig sets the cluster configuration blob.
func (c *ClusterCredentials) SetKubeconfig(blob []byte) *ClusterCredentials {
	c.Kubeconfig = blob
	return c
}

// Validate checks that the credential material is present.
func (c *ClusterCredentials) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(len(c.Kubeconfig) == 0, "must specify a cluster configuration blob")
	return catcher.Resolve()
}

// String implements fmt.Stringer without revealing the underlying material.
func (c ClusterCredentials) String() string {
	return "<redacted cluster credentials>"
}

// CloudCredentials hold a caller-supplied key pair for reaching a cloud
// container service. Credentials live for a single request; they are never
// logged, never persisted, and never embedded in a workload or result.
type CloudCredentials struct {
	// AccessKey is the access key ID. Required.
	AccessKey *string
	// SecretKey is the secret access key. Required.
	SecretKey *string
	// SessionToken is the session token accompanying temporary credentials.
	SessionToken *string
	// Role is the ARN of a role to assume before dispatching.
	Role *string
}

// NewCloudCredentials returns new uninitialized cloud credentials.
func NewCloudCredentials() *CloudCredentials {
	return &CloudCredentials{}
}

// SetAccessKey sets the access key ID.
func (c *CloudCredentials) SetAccessKey(key string) *CloudCredentials {
	c.AccessKey = &key
	return c
}

// SetSecretKey sets the secret access key.
func (c *CloudCredentials) SetSecretKey(key string) *CloudCredentials {
	c.SecretKey = &key
	return c
}

// SetSessionToken sets the session token accompanying temporary
// credentials.
func (c *CloudCredentials) SetSessionToken(token string) *CloudCredentials {
	c.SessionToken = &token
	return c
}

// SetRole sets the ARN of a role to assume before dispatching.
func (c *CloudCredentials) SetRole(role string) *CloudCredentials {
	c.Role = &role
	return c
}

// Validate checks that the credential material is present.
func (c *CloudCredentials) Validate() error {
	catcher := grip.NewBasicCatcher()
	catcher.NewWhen(utility.FromStringPtr(c.AccessKey) == "", "must specify an access key")
	catcher.NewWhen(utility.FromStringPtr(c.SecretKey) == "", "must specify a secret key")
	return catcher.Resolve()
}

// String implements fmt.Stringer without revealing the underlying material.
func (c CloudCredentials) String() string {
	return "<redacted cloud credentials>"
}
