// Package rest exposes the deployment operations over HTTP: POST
// /k8s-deploy and POST /ecs-deploy, plus a health check. The HTTP layer
// parses and routes; every deployment decision lives in the root package
// and the platform subpackages.
package rest

import (
	"net/http"
	"time"

	"github.com/gantryio/gantry"
	"github.com/gantryio/gantry/awsutil"
	"github.com/gantryio/gantry/ecs"
	"github.com/gantryio/gantry/kube"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mongodb/grip"
	"github.com/mongodb/grip/message"
	krest "k8s.io/client-go/rest"
)

// ServiceOptions are options to create the deployment service.
type ServiceOptions struct {
	// CallTimeout bounds each outbound platform call made on behalf of a
	// request. When unset, only the request's own lifetime bounds the call.
	CallTimeout *time.Duration
	// KubernetesClientFactory constructs the Kubernetes platform client.
	// Defaults to the real client.
	KubernetesClientFactory KubernetesClientFactory
	// ECSClientFactory constructs the ECS platform client. Defaults to the
	// real client.
	ECSClientFactory ECSClientFactory
}

// NewServiceOptions returns new uninitialized options to create the
// deployment service.
func NewServiceOptions() *ServiceOptions {
	return &ServiceOptions{}
}

// SetCallTimeout sets the bound on each outbound platform call.
func (o *ServiceOptions) SetCallTimeout(timeout time.Duration) *ServiceOptions {
	o.CallTimeout = &timeout
	return o
}

// SetKubernetesClientFactory sets the factory constructing the Kubernetes
// platform client.
func (o *ServiceOptions) SetKubernetesClientFactory(f KubernetesClientFactory) *ServiceOptions {
	o.KubernetesClientFactory = f
	return o
}

// SetECSClientFactory sets the factory constructing the ECS platform
// client.
func (o *ServiceOptions) SetECSClientFactory(f ECSClientFactory) *ServiceOptions {
	o.ECSClientFactory = f
	return o
}

// Validate checks the options and applies defaults for the unset ones.
func (o *ServiceOptions) Validate() error {
	if o.CallTimeout != nil && *o.CallTimeout <= 0 {
		return gantry.NewError(gantry.ErrorKindValidation, "call timeout must be a positive duration")
	}

	if o.KubernetesClientFactory == nil {
		o.KubernetesClientFactory = func(config *krest.Config) (gantry.KubernetesClient, error) {
			return kube.NewBasicKubernetesClient(config)
		}
	}
	if o.ECSClientFactory == nil {
		o.ECSClientFactory = func(opts awsutil.ClientOptions) (gantry.ECSClient, error) {
			return ecs.NewBasicECSClient(opts)
		}
	}

	return nil
}

// Service routes deployment requests to the handlers. It holds no
// per-request state; concurrent requests are independent.
type Service struct {
	handler *Handler
	router  *mux.Router
}

// NewService creates the deployment service from the options.
func NewService(opts ServiceOptions) (*Service, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	h := &Handler{
		kubernetesClient: opts.KubernetesClientFactory,
		ecsClient:        opts.ECSClientFactory,
	}
	if opts.CallTimeout != nil {
		h.callTimeout = *opts.CallTimeout
	}

	s := &Service{
		handler: h,
		router:  mux.NewRouter(),
	}
	s.setupRoutes()

	return s, nil
}

func (s *Service) setupRoutes() {
	s.router.Use(recoveryMiddleware, loggingMiddleware)

	s.router.HandleFunc("/health", s.handler.Health).Methods(http.MethodGet)
	s.router.HandleFunc("/k8s-deploy", s.handler.KubernetesDeploy).Methods(http.MethodPost)
	s.router.HandleFunc("/ecs-deploy", s.handler.ECSDeploy).Methods(http.MethodPost)
}

// Router returns the service's HTTP handler.
func (s *Service) Router() http.Handler {
	return s.router
}

// statusRecorder captures the status written by a handler so the request
// can be logged with it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// loggingMiddleware logs one line per request with a generated request ID.
// Request and response bodies are never logged; they can carry credential
// material.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := uuid.NewString()
		rw.Header().Set("X-Request-Id", id)
		recorder := &statusRecorder{ResponseWriter: rw, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		grip.Info(message.Fields{
			"message":     "handled request",
			"request_id":  id,
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      recorder.status,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

// recoveryMiddleware converts a panicking handler into a 500 response so a
// hostile request can never take the process down.
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		defer func() {
			if p := recover(); p != nil {
				grip.Critical(message.Fields{
					"message": "handler panicked",
					"method":  r.Method,
					"path":    r.URL.Path,
					"panic":   p,
				})
				writeJSON(rw, http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
			}
		}()

		next.ServeHTTP(rw, r)
	})
}
