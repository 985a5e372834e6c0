package gittools

import (
	"fmt"
	"sort"

	"github.com/gitscribe/gitscribe/pkg/model"
)

// Config carries the explicit adapter configuration handed to a factory
// function. Fields a service does not use are ignored by its builder;
// missing credentials are resolved from the environment by the builder.
type Config struct {
	// AccessToken is the generic credential, checked before the
	// service-specific fields.
	AccessToken string
	// GitHubToken is the GitHub-specific credential.
	GitHubToken string
	// BaseURL is the instance URL for self-hosted services. Mandatory
	// for Forgejo.
	BaseURL string
	// Token is the Forgejo-specific credential.
	Token string
	// Username and Password are the Forgejo basic-auth fallback.
	Username string
	Password string
}

// FactoryFunc builds a configured Adapter for one service. The signature
// is the capability bound: anything registered necessarily produces an
// Adapter.
type FactoryFunc func(cfg Config) (Adapter, error)

// Factory constructs configured Git tool adapters by service type. It is
// an explicitly constructed object — build one at startup, register the
// services your deployment supports, and pass it by reference.
type Factory struct {
	builders map[model.Service]FactoryFunc
}

// NewFactory creates an empty Factory.
func NewFactory() *Factory {
	return &Factory{builders: make(map[model.Service]FactoryFunc)}
}

// Register adds (or replaces) the builder for a service type. This is the
// extension point for additional Git services.
func (f *Factory) Register(service model.Service, fn FactoryFunc) error {
	if service == "" {
		return fmt.Errorf("service type must not be empty")
	}
	if fn == nil {
		return fmt.Errorf("factory function for %q must not be nil", service)
	}
	f.builders[service] = fn
	return nil
}

// Supported returns the registered service types, sorted for stable
// error messages.
func (f *Factory) Supported() []model.Service {
	out := make([]model.Service, 0, len(f.builders))
	for svc := range f.builders {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Create builds a configured adapter for the requested service type. An
// unregistered service fails immediately, naming the supported set.
func (f *Factory) Create(service model.Service, cfg Config) (Adapter, error) {
	fn, ok := f.builders[service]
	if !ok {
		return nil, fmt.Errorf("unsupported git service %q (supported: %v)", service, f.Supported())
	}
	return fn(cfg)
}

// CreateFromContext builds an adapter from a repository-context dict.
// The context's service field is mandatory. Context-derived values (a
// Forgejo base URL embedded in the context) are merged under the explicit
// config — explicit config always wins, context-derived values win over
// environment defaults inside the builder.
func (f *Factory) CreateFromContext(repoCtx map[string]any, cfg Config) (Adapter, error) {
	if repoCtx == nil {
		return nil, fmt.Errorf("repository context is required")
	}
	svcName, _ := repoCtx["service"].(string)
	if svcName == "" {
		return nil, fmt.Errorf("repository context has no service field")
	}

	if cfg.BaseURL == "" {
		if v, ok := repoCtx["base_url"].(string); ok {
			cfg.BaseURL = v
		}
	}
	if cfg.BaseURL == "" {
		if v, ok := repoCtx["forgejo_base_url"].(string); ok {
			cfg.BaseURL = v
		}
	}

	return f.Create(model.Service(svcName), cfg)
}
