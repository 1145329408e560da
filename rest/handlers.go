package rest

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gantryio/gantry"
	"github.com/gantryio/gantry/awsutil"
	"github.com/gantryio/gantry/ecs"
	"github.com/gantryio/gantry/kube"
	"github.com/gantryio/gantry/kubeutil"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	"github.com/pkg/errors"
	krest "k8s.io/client-go/rest"
)

// KubernetesClientFactory constructs a platform client from resolved
// cluster credentials. Production services use the real client; tests
// substitute a mock.
type KubernetesClientFactory func(config *krest.Config) (gantry.KubernetesClient, error)

// ECSClientFactory constructs a platform client from resolved cloud
// credentials. Production services use the real client; tests substitute a
// mock.
type ECSClientFactory func(opts awsutil.ClientOptions) (gantry.ECSClient, error)

// Handler implements the deployment endpoints. Each request resolves its
// own credentials into a fresh platform client, validates before any
// platform call, dispatches once, and discards the client; nothing is
// shared between requests.
type Handler struct {
	kubernetesClient KubernetesClientFactory
	ecsClient        ECSClientFactory
	callTimeout      time.Duration
}

// Health reports that the service is up.
func (h *Handler) Health(rw http.ResponseWriter, r *http.Request) {
	writeJSON(rw, http.StatusOK, map[string]string{"status": "healthy"})
}

// KubernetesDeploy handles POST /k8s-deploy: it resolves the cluster
// configuration blob, validates the deployment details, and submits a
// single-replica Deployment to the cluster.
func (h *Handler) KubernetesDeploy(rw http.ResponseWriter, r *http.Request) {
	var req kubernetesDeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(rw, r, gantry.WrapError(gantry.ErrorKindValidation, err, "malformed request body"))
		return
	}

	config, err := kubeutil.RESTConfig(req.exportCredentials())
	if err != nil {
		writeError(rw, r, errors.Wrap(err, "resolving cluster credentials"))
		return
	}

	opts := req.exportOptions()
	if err := opts.Validate(); err != nil {
		writeError(rw, r, err)
		return
	}

	client, err := h.kubernetesClient(config)
	if err != nil {
		writeError(rw, r, errors.Wrap(err, "constructing cluster client"))
		return
	}
	defer func() {
		grip.Error(message.WrapError(client.Close(r.Context()), message.Fields{
			"message": "closing cluster client",
			"path":    r.URL.Path,
		}))
	}()

	deployer, err := kube.NewBasicDeployer(*h.kubernetesDeployerOptions(client))
	if err != nil {
		writeError(rw, r, errors.Wrap(err, "constructing deployer"))
		return
	}

	result, err := deployer.Deploy(r.Context(), opts)
	if err != nil {
		writeError(rw, r, err)
		return
	}

	writeJSON(rw, http.StatusOK, newDeployResponse(result))
}

// ECSDeploy handles POST /ecs-deploy: it binds a client to the caller's key
// pair and region, validates the deployment details, registers a task
// definition, and creates a service (or runs the task once) from it.
func (h *Handler) ECSDeploy(rw http.ResponseWriter, r *http.Request) {
	var req ecsDeployRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(rw, r, gantry.WrapError(gantry.ErrorKindValidation, err, "malformed request body"))
		return
	}

	clientOpts, err := awsutil.NewClientOptionsFromCredentials(req.exportCredentials(), req.Details.Region)
	if err != nil {
		writeError(rw, r, errors.Wrap(err, "resolving cloud credentials"))
		return
	}

	opts := req.exportOptions()
	if err := opts.Validate(); err != nil {
		writeError(rw, r, err)
		return
	}

	client, err := h.ecsClient(*clientOpts)
	if err != nil {
		writeError(rw, r, errors.Wrap(err, "constructing platform client"))
		return
	}
	defer func() {
		grip.Error(message.WrapError(client.Close(r.Context()), message.Fields{
			"message": "closing platform client",
			"path":    r.URL.Path,
		}))
	}()

	deployer, err := ecs.NewBasicDeployer(*h.ecsDeployerOptions(client))
	if err != nil {
		writeError(rw, r, errors.Wrap(err, "constructing deployer"))
		return
	}

	result, err := deployer.Deploy(r.Context(), opts)
	if err != nil {
		writeError(rw, r, err)
		return
	}

	writeJSON(rw, http.StatusOK, newDeployResponse(result))
}

func (h *Handler) kubernetesDeployerOptions(client gantry.KubernetesClient) *kube.BasicDeployerOptions {
	opts := kube.NewBasicDeployerOptions().SetClient(client)
	if h.callTimeout > 0 {
		opts.SetCallTimeout(h.callTimeout)
	}
	return opts
}

func (h *Handler) ecsDeployerOptions(client gantry.ECSClient) *ecs.BasicDeployerOptions {
	opts := ecs.NewBasicDeployerOptions().SetClient(client)
	if h.callTimeout > 0 {
		opts.SetCallTimeout(h.callTimeout)
	}
	return opts
}

// writeError normalizes err into the uniform taxonomy and writes the
// failure body. The normalized message derives from the platform's own
// error text and never contains credential material.
func writeError(rw http.ResponseWriter, r *http.Request, err error) {
	gerr := gantry.NormalizeError(err)

	grip.Warning(message.WrapError(err, message.Fields{
		"message": "deployment request failed",
		"path":    r.URL.Path,
		"kind":    gerr.Kind,
		"status":  gerr.HTTPStatus(),
	}))

	writeJSON(rw, gerr.HTTPStatus(), errorResponse{Detail: gerr.Error()})
}

// writeJSON writes a JSON body with the given status.
func writeJSON(rw http.ResponseWriter, status int, body any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	grip.Error(message.WrapError(json.NewEncoder(rw).Encode(body), message.Fields{
		"message": "writing response body",
		"status":  status,
	}))
}
