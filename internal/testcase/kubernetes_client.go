package testcase

import (
	"context"
	"testing"

	"github.com/gantryio/gantry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// KubernetesClientTestCase represents a test case for a
// gantry.KubernetesClient.
type KubernetesClientTestCase func(ctx context.Context, t *testing.T, c gantry.KubernetesClient)

// KubernetesClientTests returns common test cases that any
// gantry.KubernetesClient should support.
func KubernetesClientTests() map[string]KubernetesClientTestCase {
	return map[string]KubernetesClientTestCase{
		"CreateDeploymentReturnsCreatedObject": func(ctx context.Context, t *testing.T, c gantry.KubernetesClient) {
			labels := map[string]string{"app": "web"}
			manifest := &appsv1.Deployment{
				ObjectMeta: metav1.ObjectMeta{
					Name:   "web",
					Labels: labels,
				},
				Spec: appsv1.DeploymentSpec{
					Selector: &metav1.LabelSelector{MatchLabels: labels},
					Template: corev1.PodTemplateSpec{
						ObjectMeta: metav1.ObjectMeta{Labels: labels},
						Spec: corev1.PodSpec{
							Containers: []corev1.Container{
								{
									Name:  "web",
									Image: "nginx:latest",
									Ports: []corev1.ContainerPort{{ContainerPort: 8080}},
								},
							},
						},
					},
				},
			}

			created, err := c.CreateDeployment(ctx, "default", manifest)
			require.NoError(t, err)
			require.NotZero(t, created)
			assert.Equal(t, "default", created.Namespace)
			assert.NotZero(t, created.UID)
			assert.Equal(t, manifest.Spec.Selector.MatchLabels, created.Spec.Template.Labels)
		},
	}
}
