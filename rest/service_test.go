package rest

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/gantryio/gantry"
	"github.com/gantryio/gantry/awsutil"
	"github.com/gantryio/gantry/internal/testutil"
	"github.com/gantryio/gantry/mock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime/schema"
	krest "k8s.io/client-go/rest"
)

// testService bundles a service with its mock platform clients and counts
// how many times each client factory ran, so tests can assert that invalid
// requests never construct a platform client.
type testService struct {
	svc        *Service
	kube       *mock.KubernetesClient
	ecs        *mock.ECSClient
	kubeBuilds int
	ecsBuilds  int
}

func newTestService(t *testing.T) *testService {
	ts := &testService{
		kube: &mock.KubernetesClient{},
		ecs:  &mock.ECSClient{},
	}

	svc, err := NewService(*NewServiceOptions().
		SetKubernetesClientFactory(func(config *krest.Config) (gantry.KubernetesClient, error) {
			ts.kubeBuilds++
			return ts.kube, nil
		}).
		SetECSClientFactory(func(opts awsutil.ClientOptions) (gantry.ECSClient, error) {
			ts.ecsBuilds++
			return ts.ecs, nil
		}))
	require.NoError(t, err)
	ts.svc = svc

	return ts
}

func (ts *testService) post(t *testing.T, path string, body any) *httptest.ResponseRecorder {
	raw, ok := body.([]byte)
	if !ok {
		var err error
		raw, err = json.Marshal(body)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	ts.svc.Router().ServeHTTP(rec, req)

	return rec
}

func decodeSuccess(t *testing.T, rec *httptest.ResponseRecorder) deployResponse {
	var resp deployResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func validKubernetesBody() kubernetesDeployRequest {
	return kubernetesDeployRequest{
		Credentials: clusterCredentialsPayload{ConfigBlob: string(testutil.Base64Kubeconfig())},
		Details: kubernetesDeployDetails{
			ClusterName:       "web",
			Region:            "us-east-1",
			ContainerImageURL: "nginx:latest",
			ContainerPort:     8080,
		},
	}
}

func validECSBody() ecsDeployRequest {
	return ecsDeployRequest{
		Credentials: cloudCredentialsPayload{
			AccessKey: "AKIA-fake",
			SecretKey: "fake-secret",
		},
		Details: ecsDeployDetails{
			ClusterName:        "cluster",
			ServiceName:        "web",
			TaskDefinitionName: "web",
			Region:             "us-east-1",
			ContainerImageURL:  "nginx:latest",
			ContainerPort:      8080,
			Subnets:            []string{"subnet-12345"},
		},
	}
}

func TestKubernetesDeploy(t *testing.T) {
	for tName, tCase := range map[string]func(t *testing.T, ts *testService){
		"SucceedsAndReportsCreatedDeployment": func(t *testing.T, ts *testService) {
			rec := ts.post(t, "/k8s-deploy", validKubernetesBody())
			require.Equal(t, http.StatusOK, rec.Code)

			resp := decodeSuccess(t, rec)
			assert.Equal(t, "success", resp.Status)
			assert.NotZero(t, resp.Message)
			assert.Equal(t, gantry.DefaultNamespace, resp.Namespace)
			assert.Equal(t, "web", resp.Name)
			assert.NotZero(t, resp.UID)

			assert.Equal(t, 1, ts.kubeBuilds)
			assert.Equal(t, 1, ts.kube.CreateDeploymentCalls)

			manifest := ts.kube.CreateDeploymentInput
			require.NotZero(t, manifest)
			labels := map[string]string{"app": "web"}
			assert.Equal(t, labels, manifest.Spec.Selector.MatchLabels)
			assert.Equal(t, labels, manifest.Spec.Template.Labels)
			require.Len(t, manifest.Spec.Template.Spec.Containers, 1)
			assert.Equal(t, "nginx:latest", manifest.Spec.Template.Spec.Containers[0].Image)
			assert.EqualValues(t, 8080, manifest.Spec.Template.Spec.Containers[0].Ports[0].ContainerPort)
		},
		"HonorsNamespaceOverride": func(t *testing.T, ts *testService) {
			body := validKubernetesBody()
			body.Details.Namespace = "staging"

			rec := ts.post(t, "/k8s-deploy", body)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "staging", ts.kube.CreateDeploymentNamespace)
			assert.Equal(t, "staging", decodeSuccess(t, rec).Namespace)
		},
		"RejectsOutOfRangePortWithoutConstructingClient": func(t *testing.T, ts *testService) {
			body := validKubernetesBody()
			body.Details.ContainerPort = 70000

			rec := ts.post(t, "/k8s-deploy", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeError(t, rec).Detail, "port")

			assert.Zero(t, ts.kubeBuilds)
			assert.Zero(t, ts.kube.CreateDeploymentCalls)
		},
		"RejectsMalformedConfigBlobWithoutLeakingIt": func(t *testing.T, ts *testService) {
			body := validKubernetesBody()
			body.Credentials.ConfigBlob = "%%%neither-base64-nor-yaml%%%"

			rec := ts.post(t, "/k8s-deploy", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotContains(t, decodeError(t, rec).Detail, body.Credentials.ConfigBlob)
			assert.Zero(t, ts.kubeBuilds)
		},
		"RejectsMalformedBody": func(t *testing.T, ts *testService) {
			rec := ts.post(t, "/k8s-deploy", []byte("{not json"))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotZero(t, decodeError(t, rec).Detail)
		},
		"MirrorsClusterConflictStatus": func(t *testing.T, ts *testService) {
			ts.kube.CreateDeploymentError = apierrors.NewAlreadyExists(schema.GroupResource{Group: "apps", Resource: "deployments"}, "web")

			rec := ts.post(t, "/k8s-deploy", validKubernetesBody())
			assert.Equal(t, http.StatusConflict, rec.Code)
			assert.NotZero(t, decodeError(t, rec).Detail)
		},
		"MapsUnauthorizedClusterToAuthenticationFailure": func(t *testing.T, ts *testService) {
			ts.kube.CreateDeploymentError = apierrors.NewUnauthorized("Unauthorized")

			rec := ts.post(t, "/k8s-deploy", validKubernetesBody())
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		},
		"MapsUnreachableClusterToPlatformUnavailable": func(t *testing.T, ts *testService) {
			ts.kube.CreateDeploymentError = errors.New("dial tcp 10.0.0.1:6443: connect: connection refused")

			rec := ts.post(t, "/k8s-deploy", validKubernetesBody())
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		},
	} {
		t.Run(tName, func(t *testing.T) {
			tCase(t, newTestService(t))
		})
	}
}

func TestECSDeploy(t *testing.T) {
	for tName, tCase := range map[string]func(t *testing.T, ts *testService){
		"SucceedsAndReportsARNs": func(t *testing.T, ts *testService) {
			rec := ts.post(t, "/ecs-deploy", validECSBody())
			require.Equal(t, http.StatusOK, rec.Code)

			resp := decodeSuccess(t, rec)
			assert.Equal(t, "success", resp.Status)
			assert.NotZero(t, resp.Message)
			assert.NotZero(t, resp.TaskDefinitionARN)
			assert.NotZero(t, resp.ServiceARN)

			assert.Equal(t, 1, ts.ecsBuilds)
			assert.Equal(t, 1, ts.ecs.RegisterTaskDefinitionCalls)
			assert.Equal(t, 1, ts.ecs.CreateServiceCalls)
		},
		"RunsTaskOnceInRunTaskMode": func(t *testing.T, ts *testService) {
			body := validECSBody()
			body.Details.Mode = string(gantry.DeploymentModeRunTask)

			rec := ts.post(t, "/ecs-deploy", body)
			require.Equal(t, http.StatusOK, rec.Code)

			resp := decodeSuccess(t, rec)
			assert.NotEmpty(t, resp.TaskARNs)
			assert.Zero(t, resp.ServiceARN)
			assert.Equal(t, 1, ts.ecs.RunTaskCalls)
			assert.Zero(t, ts.ecs.CreateServiceCalls)
		},
		"DoesNotCreateServiceWhenRegistrationFails": func(t *testing.T, ts *testService) {
			ts.ecs.RegisterTaskDefinitionError = errors.New("dial tcp 10.0.0.1:443: connect: connection refused")

			rec := ts.post(t, "/ecs-deploy", validECSBody())
			assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
			assert.Equal(t, 1, ts.ecs.RegisterTaskDefinitionCalls)
			assert.Zero(t, ts.ecs.CreateServiceCalls)
		},
		"MapsCredentialRejectionToAuthenticationFailure": func(t *testing.T, ts *testService) {
			ts.ecs.RegisterTaskDefinitionError = &types.AccessDeniedException{Message: aws.String("User is not authorized to perform ecs:RegisterTaskDefinition")}

			rec := ts.post(t, "/ecs-deploy", validECSBody())
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Zero(t, ts.ecs.CreateServiceCalls)
		},
		"DispatchesIdenticalRequestsIndependently": func(t *testing.T, ts *testService) {
			rec := ts.post(t, "/ecs-deploy", validECSBody())
			require.Equal(t, http.StatusOK, rec.Code)

			ts.ecs.CreateServiceError = &types.InvalidParameterException{Message: aws.String("Creation of service was not idempotent.")}

			rec = ts.post(t, "/ecs-deploy", validECSBody())
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			assert.Equal(t, 2, ts.ecs.RegisterTaskDefinitionCalls)
			assert.Equal(t, 2, ts.ecs.CreateServiceCalls)
		},
		"RejectsMissingSubnetsWithoutConstructingClient": func(t *testing.T, ts *testService) {
			body := validECSBody()
			body.Details.Subnets = nil

			rec := ts.post(t, "/ecs-deploy", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeError(t, rec).Detail, "subnet")
			assert.Zero(t, ts.ecsBuilds)
		},
		"RejectsMissingRegion": func(t *testing.T, ts *testService) {
			body := validECSBody()
			body.Details.Region = ""

			rec := ts.post(t, "/ecs-deploy", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeError(t, rec).Detail, "region")
			assert.Zero(t, ts.ecsBuilds)
		},
		"RejectsMissingCredentialsWithoutLeakingThem": func(t *testing.T, ts *testService) {
			body := validECSBody()
			body.Credentials.SecretKey = ""

			rec := ts.post(t, "/ecs-deploy", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotContains(t, decodeError(t, rec).Detail, body.Credentials.AccessKey)
			assert.Zero(t, ts.ecsBuilds)
		},
		"RejectsUnrecognizedLaunchType": func(t *testing.T, ts *testService) {
			body := validECSBody()
			body.Details.LaunchType = "LAMBDA"

			rec := ts.post(t, "/ecs-deploy", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeError(t, rec).Detail, "launch type")
		},
	} {
		t.Run(tName, func(t *testing.T) {
			tCase(t, newTestService(t))
		})
	}
}

func TestService(t *testing.T) {
	t.Run("HealthReportsHealthy", func(t *testing.T) {
		ts := newTestService(t)
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		rec := httptest.NewRecorder()
		ts.svc.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "healthy")
	})
	t.Run("RejectsUnsupportedMethod", func(t *testing.T) {
		ts := newTestService(t)
		req := httptest.NewRequest(http.MethodGet, "/k8s-deploy", nil)
		rec := httptest.NewRecorder()
		ts.svc.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
	t.Run("RecoversFromPanickingHandler", func(t *testing.T) {
		svc, err := NewService(*NewServiceOptions().
			SetKubernetesClientFactory(func(config *krest.Config) (gantry.KubernetesClient, error) {
				panic("boom")
			}))
		require.NoError(t, err)

		body, err := json.Marshal(validKubernetesBody())
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/k8s-deploy", bytes.NewReader(body))
		rec := httptest.NewRecorder()
		svc.Router().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Contains(t, rec.Body.String(), "internal server error")
	})
	t.Run("NewServiceFailsWithNonPositiveCallTimeout", func(t *testing.T) {
		svc, err := NewService(*NewServiceOptions().SetCallTimeout(-1))
		assert.Error(t, err)
		assert.Zero(t, svc)
	})
}
