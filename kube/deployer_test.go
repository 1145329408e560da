package kube

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gantryio/gantry"
	"github.com/gantryio/gantry/internal/testutil"
	"github.com/gantryio/gantry/mock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
)

func TestBasicDeployer(t *testing.T) {
	assert.Implements(t, (*gantry.KubernetesDeployer)(nil), &BasicDeployer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("NewBasicDeployerFailsWithMissingClient", func(t *testing.T) {
		d, err := NewBasicDeployer(*NewBasicDeployerOptions())
		assert.Error(t, err)
		assert.Zero(t, d)
	})
	t.Run("NewBasicDeployerFailsWithNonPositiveCallTimeout", func(t *testing.T) {
		d, err := NewBasicDeployer(*NewBasicDeployerOptions().
			SetClient(&mock.KubernetesClient{}).
			SetCallTimeout(-time.Second))
		assert.Error(t, err)
		assert.Zero(t, d)
	})
	t.Run("NewBasicDeployerSucceedsWithClient", func(t *testing.T) {
		d, err := NewBasicDeployer(*NewBasicDeployerOptions().SetClient(&mock.KubernetesClient{}))
		require.NoError(t, err)
		assert.NotZero(t, d)
	})

	for tName, tCase := range map[string]func(ctx context.Context, t *testing.T, c *mock.KubernetesClient, d *BasicDeployer){
		"DeployCreatesSingleReplicaDeployment": func(ctx context.Context, t *testing.T, c *mock.KubernetesClient, d *BasicDeployer) {
			opts := testutil.ValidKubernetesDeploymentOptions()

			result, err := d.Deploy(ctx, &opts)
			require.NoError(t, err)
			require.NotZero(t, result)

			assert.Equal(t, 1, c.CreateDeploymentCalls)
			assert.Equal(t, gantry.DefaultNamespace, c.CreateDeploymentNamespace)

			manifest := c.CreateDeploymentInput
			require.NotZero(t, manifest)
			assert.Equal(t, "web", manifest.Name)
			require.NotZero(t, manifest.Spec.Replicas)
			assert.EqualValues(t, 1, *manifest.Spec.Replicas)

			require.Len(t, manifest.Spec.Template.Spec.Containers, 1)
			container := manifest.Spec.Template.Spec.Containers[0]
			assert.Equal(t, "web", container.Name)
			assert.Equal(t, "nginx:latest", container.Image)
			require.Len(t, container.Ports, 1)
			assert.EqualValues(t, 8080, container.Ports[0].ContainerPort)
			assert.Equal(t, corev1.ProtocolTCP, container.Ports[0].Protocol)

			assert.Equal(t, gantry.DefaultNamespace, result.Namespace)
			assert.Equal(t, "web", result.Name)
			assert.NotZero(t, result.UID)
			assert.NotZero(t, result.Message)
		},
		"DeploySetsSelectorAndPodLabelsFromOneSource": func(ctx context.Context, t *testing.T, c *mock.KubernetesClient, d *BasicDeployer) {
			for _, name := range []string{"web", "api-v2", "a"} {
				opts := testutil.ValidKubernetesDeploymentOptions()
				spec := opts.Spec
				spec.SetName(name)
				opts.SetSpec(spec)

				_, err := d.Deploy(ctx, &opts)
				require.NoError(t, err)

				manifest := c.CreateDeploymentInput
				require.NotZero(t, manifest)
				expected := map[string]string{"app": name}
				assert.Equal(t, expected, manifest.Labels)
				require.NotZero(t, manifest.Spec.Selector)
				assert.Equal(t, expected, manifest.Spec.Selector.MatchLabels)
				assert.Equal(t, manifest.Spec.Selector.MatchLabels, manifest.Spec.Template.Labels)
			}
		},
		"DeployHonorsNamespaceOverride": func(ctx context.Context, t *testing.T, c *mock.KubernetesClient, d *BasicDeployer) {
			opts := testutil.ValidKubernetesDeploymentOptions()
			opts.SetNamespace("staging")

			result, err := d.Deploy(ctx, &opts)
			require.NoError(t, err)
			assert.Equal(t, "staging", c.CreateDeploymentNamespace)
			assert.Equal(t, "staging", result.Namespace)
		},
		"DeployDispatchesEveryRequestWithoutDeduplication": func(ctx context.Context, t *testing.T, c *mock.KubernetesClient, d *BasicDeployer) {
			opts := testutil.ValidKubernetesDeploymentOptions()

			_, err := d.Deploy(ctx, &opts)
			require.NoError(t, err)

			c.CreateDeploymentError = apierrors.NewAlreadyExists(schema.GroupResource{Group: "apps", Resource: "deployments"}, "web")

			result, err := d.Deploy(ctx, &opts)
			assert.Error(t, err)
			assert.Zero(t, result)
			assert.True(t, gantry.IsPlatformRejectedError(err))

			gerr, ok := gantry.AsError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusConflict, gerr.HTTPStatus())
			assert.Equal(t, 2, c.CreateDeploymentCalls)
		},
		"DeployMapsUnauthorizedToAuthenticationFailure": func(ctx context.Context, t *testing.T, c *mock.KubernetesClient, d *BasicDeployer) {
			c.CreateDeploymentError = apierrors.NewUnauthorized("Unauthorized")
			opts := testutil.ValidKubernetesDeploymentOptions()

			result, err := d.Deploy(ctx, &opts)
			assert.Error(t, err)
			assert.Zero(t, result)
			assert.True(t, gantry.IsAuthenticationError(err))

			gerr, ok := gantry.AsError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusUnauthorized, gerr.HTTPStatus())
		},
		"DeployMapsForbiddenToAuthenticationFailure": func(ctx context.Context, t *testing.T, c *mock.KubernetesClient, d *BasicDeployer) {
			c.CreateDeploymentError = apierrors.NewForbidden(schema.GroupResource{Group: "apps", Resource: "deployments"}, "web", errors.New("RBAC: access denied"))
			opts := testutil.ValidKubernetesDeploymentOptions()

			_, err := d.Deploy(ctx, &opts)
			require.Error(t, err)
			assert.True(t, gantry.IsAuthenticationError(err))

			gerr, ok := gantry.AsError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusForbidden, gerr.HTTPStatus())
		},
		"DeployMapsRejectedManifestToPlatformRejection": func(ctx context.Context, t *testing.T, c *mock.KubernetesClient, d *BasicDeployer) {
			c.CreateDeploymentError = apierrors.NewBadRequest("Deployment in version \"v1\" cannot be handled")
			opts := testutil.ValidKubernetesDeploymentOptions()

			_, err := d.Deploy(ctx, &opts)
			require.Error(t, err)
			assert.True(t, gantry.IsPlatformRejectedError(err))

			gerr, ok := gantry.AsError(err)
			require.True(t, ok)
			assert.Equal(t, http.StatusBadRequest, gerr.HTTPStatus())
		},
		"DeployMapsTransportErrorToPlatformUnavailable": func(ctx context.Context, t *testing.T, c *mock.KubernetesClient, d *BasicDeployer) {
			c.CreateDeploymentError = errors.New("dial tcp 10.0.0.1:6443: connect: connection refused")
			opts := testutil.ValidKubernetesDeploymentOptions()

			result, err := d.Deploy(ctx, &opts)
			assert.Error(t, err)
			assert.Zero(t, result)
			assert.True(t, gantry.IsPlatformUnavailableError(err))
		},
		"DeployFailsFastWithInvalidOptions": func(ctx context.Context, t *testing.T, c *mock.KubernetesClient, d *BasicDeployer) {
			opts := testutil.ValidKubernetesDeploymentOptions()
			spec := opts.Spec
			spec.SetPort(70000)
			opts.SetSpec(spec)

			result, err := d.Deploy(ctx, &opts)
			assert.Error(t, err)
			assert.Zero(t, result)
			assert.True(t, gantry.IsValidationError(err))
			assert.Contains(t, err.Error(), "port")

			assert.Zero(t, c.CreateDeploymentCalls)
		},
		"DeployFailsWithMissingOptions": func(ctx context.Context, t *testing.T, c *mock.KubernetesClient, d *BasicDeployer) {
			result, err := d.Deploy(ctx, nil)
			assert.Error(t, err)
			assert.Zero(t, result)
			assert.True(t, gantry.IsValidationError(err))
			assert.Zero(t, c.CreateDeploymentCalls)
		},
	} {
		t.Run(tName, func(t *testing.T) {
			tctx, tcancel := context.WithTimeout(ctx, defaultTestTimeout)
			defer tcancel()

			c := &mock.KubernetesClient{}
			defer func() {
				assert.NoError(t, c.Close(tctx))
			}()

			d, err := NewBasicDeployer(*NewBasicDeployerOptions().SetClient(c))
			require.NoError(t, err)

			tCase(tctx, t, c, d)
		})
	}

	t.Run("DeployTimesOutSlowCallsWhenCallTimeoutIsSet", func(t *testing.T) {
		tctx, tcancel := context.WithTimeout(ctx, defaultTestTimeout)
		defer tcancel()

		c := &blockingKubernetesClient{}
		d, err := NewBasicDeployer(*NewBasicDeployerOptions().
			SetClient(c).
			SetCallTimeout(10 * time.Millisecond))
		require.NoError(t, err)

		opts := testutil.ValidKubernetesDeploymentOptions()

		result, err := d.Deploy(tctx, &opts)
		assert.Error(t, err)
		assert.Zero(t, result)
		assert.True(t, gantry.IsPlatformUnavailableError(err))
	})
}

// blockingKubernetesClient blocks creation until the call's context expires,
// simulating an unresponsive control plane.
type blockingKubernetesClient struct {
	mock.KubernetesClient
}

func (c *blockingKubernetesClient) CreateDeployment(ctx context.Context, namespace string, deployment *appsv1.Deployment) (*appsv1.Deployment, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}
