package gittools

import (
	"context"
	"fmt"

	"github.com/gitscribe/gitscribe/pkg/model"
)

// Registry holds the configured per-service adapters and a default-service
// pointer, resolving which adapter serves a given tool call: explicit
// service type first, then the service named by the repository context,
// then the default. One Registry is built at startup by the composition
// root and passed by reference into request handlers — configuration
// happens once, resolution happens per call.
type Registry struct {
	factory  *Factory
	adapters map[model.Service]Adapter
	def      model.Service
}

// NewRegistry creates an empty Registry backed by the given Factory.
func NewRegistry(factory *Factory) *Registry {
	return &Registry{
		factory:  factory,
		adapters: make(map[model.Service]Adapter),
	}
}

// ConfigureService builds and stores the adapter for a service. The first
// configured service becomes the default automatically; setDefault forces
// it for later ones.
func (r *Registry) ConfigureService(service model.Service, cfg Config, setDefault bool) error {
	adapter, err := r.factory.Create(service, cfg)
	if err != nil {
		return fmt.Errorf("configuring %s: %w", service, err)
	}
	r.adapters[service] = adapter
	if setDefault || r.def == "" {
		r.def = service
	}
	return nil
}

// SetDefaultService changes the default-service pointer. The service must
// already be configured.
func (r *Registry) SetDefaultService(service model.Service) error {
	if _, ok := r.adapters[service]; !ok {
		return fmt.Errorf("service %q is not configured", service)
	}
	r.def = service
	return nil
}

// DefaultService returns the current default service ("" when none).
func (r *Registry) DefaultService() model.Service { return r.def }

// Configured returns whether a service has an adapter.
func (r *Registry) Configured(service model.Service) bool {
	_, ok := r.adapters[service]
	return ok
}

// GetAdapter resolves the adapter for a service. An empty service resolves
// to the default.
func (r *Registry) GetAdapter(service model.Service) (Adapter, error) {
	if service == "" {
		if r.def == "" {
			return nil, fmt.Errorf("no git service specified and no default configured")
		}
		service = r.def
	}
	adapter, ok := r.adapters[service]
	if !ok {
		return nil, fmt.Errorf("git service %q is not configured", service)
	}
	return adapter, nil
}

// resolve infers the service from the repository context when none was
// given explicitly, then resolves the adapter. This indirection is what
// lets a single tool name operate against whichever git host the user is
// viewing.
func (r *Registry) resolve(service model.Service, repoCtx map[string]any) (Adapter, error) {
	if service == "" && repoCtx != nil {
		if v, ok := repoCtx["service"].(string); ok {
			service = model.Service(v)
		}
	}
	// Caller-supplied dicts may carry non-canonical casing.
	if svc, err := model.ParseService(string(service)); err == nil {
		service = svc
	}
	return r.GetAdapter(service)
}

// CreateIssue resolves the right adapter and creates an issue. Resolution
// failures are returned as envelopes, not errors — the caller is an LLM.
func (r *Registry) CreateIssue(ctx context.Context, service model.Service, req IssueRequest) Result {
	adapter, err := r.resolve(service, req.Context)
	if err != nil {
		return Fail(ErrValidation, "%v", err)
	}
	return adapter.CreateIssue(ctx, req)
}

// CreatePullRequest resolves the right adapter and creates a pull request.
func (r *Registry) CreatePullRequest(ctx context.Context, service model.Service, req PullRequestRequest) Result {
	adapter, err := r.resolve(service, req.Context)
	if err != nil {
		return Fail(ErrValidation, "%v", err)
	}
	return adapter.CreatePullRequest(ctx, req)
}

// CheckRepositoryPermissions resolves the right adapter and checks the
// caller's permissions on the repository in view.
func (r *Registry) CheckRepositoryPermissions(ctx context.Context, service model.Service, req PermissionsRequest) Result {
	adapter, err := r.resolve(service, req.Context)
	if err != nil {
		return Fail(ErrValidation, "%v", err)
	}
	return adapter.CheckRepositoryPermissions(ctx, req)
}
