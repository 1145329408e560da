package rest

import (
	"github.com/gantryio/gantry"
)

// clusterCredentialsPayload carries the caller's cluster configuration blob.
// It is decoded from the request body and never echoed back in any
// response.
type clusterCredentialsPayload struct {
	ConfigBlob string `json:"configBlob"`
}

// kubernetesDeployDetails describe the workload for the Kubernetes
// endpoint.
type kubernetesDeployDetails struct {
	ClusterName       string `json:"clusterName"`
	Namespace         string `json:"namespace,omitempty"`
	Region            string `json:"region"`
	ContainerImageURL string `json:"containerImageUrl"`
	ContainerPort     int    `json:"containerPort"`
}

// kubernetesDeployRequest is the body of POST /k8s-deploy.
type kubernetesDeployRequest struct {
	Credentials clusterCredentialsPayload `json:"credentials"`
	Details     kubernetesDeployDetails   `json:"details"`
}

// exportCredentials converts the payload's credential material into cluster
// credentials.
func (r *kubernetesDeployRequest) exportCredentials() *gantry.ClusterCredentials {
	return gantry.NewClusterCredentials().SetKubeconfig([]byte(r.Credentials.ConfigBlob))
}

// exportOptions converts the payload's details into deployment options. The
// cluster name identifies the workload; the region is carried for parity
// with the cloud endpoint but the cluster configuration determines the
// endpoint actually contacted.
func (r *kubernetesDeployRequest) exportOptions() *gantry.KubernetesDeploymentOptions {
	spec := gantry.NewDeploymentSpec().
		SetName(r.Details.ClusterName).
		SetImage(r.Details.ContainerImageURL).
		SetPort(r.Details.ContainerPort)
	if r.Details.Region != "" {
		spec.SetRegion(r.Details.Region)
	}

	opts := gantry.NewKubernetesDeploymentOptions().SetSpec(*spec)
	if r.Details.Namespace != "" {
		opts.SetNamespace(r.Details.Namespace)
	}

	return opts
}

// cloudCredentialsPayload carries the caller's cloud key pair. It is
// decoded from the request body and never echoed back in any response.
type cloudCredentialsPayload struct {
	AccessKey    string `json:"accessKey"`
	SecretKey    string `json:"secretKey"`
	SessionToken string `json:"sessionToken,omitempty"`
}

// ecsDeployDetails describe the workload for the ECS endpoint.
type ecsDeployDetails struct {
	ClusterName        string   `json:"clusterName"`
	ServiceName        string   `json:"serviceName"`
	TaskDefinitionName string   `json:"taskDefinitionName"`
	Region             string   `json:"region"`
	ContainerImageURL  string   `json:"containerImageUrl"`
	ContainerPort      int      `json:"containerPort"`
	LaunchType         string   `json:"launchType,omitempty"`
	Mode               string   `json:"mode,omitempty"`
	Subnets            []string `json:"subnets,omitempty"`
	SecurityGroups     []string `json:"securityGroups,omitempty"`
	AssignPublicIP     *bool    `json:"assignPublicIp,omitempty"`
}

// ecsDeployRequest is the body of POST /ecs-deploy.
type ecsDeployRequest struct {
	Credentials cloudCredentialsPayload `json:"credentials"`
	Details     ecsDeployDetails        `json:"details"`
}

// exportCredentials converts the payload's credential material into cloud
// credentials.
func (r *ecsDeployRequest) exportCredentials() *gantry.CloudCredentials {
	creds := gantry.NewCloudCredentials().
		SetAccessKey(r.Credentials.AccessKey).
		SetSecretKey(r.Credentials.SecretKey)
	if r.Credentials.SessionToken != "" {
		creds.SetSessionToken(r.Credentials.SessionToken)
	}
	return creds
}

// exportOptions converts the payload's details into deployment options. The
// service name identifies the workload.
func (r *ecsDeployRequest) exportOptions() *gantry.ECSDeploymentOptions {
	spec := gantry.NewDeploymentSpec().
		SetName(r.Details.ServiceName).
		SetImage(r.Details.ContainerImageURL).
		SetPort(r.Details.ContainerPort).
		SetRegion(r.Details.Region)

	opts := gantry.NewECSDeploymentOptions().
		SetSpec(*spec).
		SetCluster(r.Details.ClusterName)
	if r.Details.ServiceName != "" {
		opts.SetService(r.Details.ServiceName)
	}
	if r.Details.TaskDefinitionName != "" {
		opts.SetTaskFamily(r.Details.TaskDefinitionName)
	}
	if r.Details.LaunchType != "" {
		opts.SetLaunchType(gantry.ECSLaunchType(r.Details.LaunchType))
	}
	if r.Details.Mode != "" {
		opts.SetMode(gantry.ECSDeploymentMode(r.Details.Mode))
	}

	vpc := gantry.NewAWSVPCOptions().
		SetSubnets(r.Details.Subnets).
		SetSecurityGroups(r.Details.SecurityGroups)
	if r.Details.AssignPublicIP != nil {
		vpc.SetAssignPublicIP(*r.Details.AssignPublicIP)
	}
	opts.SetAWSVPC(*vpc)

	return opts
}

// deployResponse is the success body for both deployment endpoints. Only
// the identifiers relevant to the platform are populated.
type deployResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`

	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name,omitempty"`
	UID       string `json:"uid,omitempty"`

	TaskDefinitionARN string   `json:"taskDefinitionArn,omitempty"`
	ServiceARN        string   `json:"serviceArn,omitempty"`
	TaskARNs          []string `json:"taskArns,omitempty"`
}

// newDeployResponse converts a deployment result into the success body.
func newDeployResponse(result *gantry.DeploymentResult) deployResponse {
	return deployResponse{
		Status:            "success",
		Message:           result.Message,
		Namespace:         result.Namespace,
		Name:              result.Name,
		UID:               result.UID,
		TaskDefinitionARN: result.TaskDefinitionARN,
		ServiceARN:        result.ServiceARN,
		TaskARNs:          result.TaskARNs,
	}
}

// errorResponse is the failure body for both deployment endpoints.
type errorResponse struct {
	Detail string `json:"detail"`
}
