package testutil

import "github.com/gantryio/gantry"

// ValidDeploymentSpec returns a spec that passes validation on every
// platform.
func ValidDeploymentSpec() gantry.DeploymentSpec {
	return *gantry.NewDeploymentSpec().
		SetName("web").
		SetImage("nginx:latest").
		SetPort(8080).
		SetRegion("us-east-1")
}

// ValidKubernetesDeploymentOptions returns options that pass validation for
// a Kubernetes deployment.
func ValidKubernetesDeploymentOptions() gantry.KubernetesDeploymentOptions {
	return *gantry.NewKubernetesDeploymentOptions().
		SetSpec(ValidDeploymentSpec())
}

// ValidECSDeploymentOptions returns options that pass validation for an ECS
// deployment.
func ValidECSDeploymentOptions() gantry.ECSDeploymentOptions {
	return *gantry.NewECSDeploymentOptions().
		SetSpec(ValidDeploymentSpec()).
		SetCluster("cluster").
		SetAWSVPC(*gantry.NewAWSVPCOptions().AddSubnets("subnet-12345"))
}
