package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"makermate/internal/config"
	"makermate/internal/delegation"
	"makermate/internal/diagnostics"
	"makermate/internal/discovery"
	"makermate/internal/estimating"
	"makermate/internal/logging"
	"makermate/internal/middleware"
	"makermate/internal/providers"
	"makermate/internal/ratelimit"
	"makermate/internal/reference"
	"makermate/internal/solution"
	"makermate/internal/storage"
	"makermate/internal/utils"
)

const discoverCacheKey = "discover"

// ModelCatalog discovers and lists models
type ModelCatalog interface {
	Discover(ctx context.Context) discovery.Response
	ListModels(ctx context.Context, provider, apiKey string) ([]discovery.ListedModel, error)
}

// OptionGenerator drafts architecture options for requirements
type OptionGenerator interface {
	GenerateTripleOptions(ctx context.Context, req solution.GenerateRequest) []solution.TripleItem
	GenerateOptions(ctx context.Context, req solution.GenerateRequest) ([]solution.OptionsItem, error)
}

// Dependencies aggregates all services the HTTP layer needs.
type Dependencies struct {
	Catalog   ModelCatalog
	Options   OptionGenerator
	Analyser  *delegation.Analyser
	Diagnoser *diagnostics.Diagnoser
	RateLimit ratelimit.Limiter
	Audit     logging.Sink

	// Client performs the licensing and M365 upstream fetches
	Client  *http.Client
	M365URL string

	// RequestsPerWindow bounds the upstream-backed endpoints per client; 0 disables it
	RequestsPerWindow int

	// Store backs the roadmap cache and the estimating state
	Store      storage.Store
	Roadmap    *reference.RoadmapCache
	Estimating *estimating.Store

	discovered *storage.TTLCache[discovery.Response]
	m365       *storage.TTLCache[upstreamBody]

	planSummary atomic.Pointer[EstimatingResponse]
	unsubscribe func()
	stopWorkers func() error

	ownsStore bool
	redis     *redis.Client
}

// NewRouter creates an HTTP handler with all dependencies wired up
func NewRouter(ctx context.Context, cfg *config.Config) (http.Handler, *Dependencies, error) {
	sink, err := NewAuditSink(ctx, cfg.LoggingSink)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize audit sink: %w", err)
	}

	store, err := cfg.OpenStore()
	if err != nil {
		sink.Shutdown(ctx)
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}

	deps := &Dependencies{
		Store:      store,
		Roadmap:    reference.NewRoadmapCache(store, reference.RoadmapSourceFor(cfg.Reference.RoadmapURL)),
		Estimating: estimating.NewStore(ctx, store),
		ownsStore:  true,
		Catalog: discovery.NewDiscoverer(discovery.Config{
			OpenAIKey:    cfg.Upstream.OpenAIAPIKey,
			AnthropicKey: cfg.Upstream.AnthropicAPIKey,
		}),
		Options: solution.NewOrchestrator(solution.Config{
			APIKeys:         cfg.Upstream.APIKeys(),
			BaseURLs:        map[string]string{"azure-openai": cfg.Upstream.AzureOpenAIEndpoint},
			AzureAPIVersion: cfg.Upstream.AzureAPIVersion,
			Timeout:         cfg.Upstream.RequestTimeout,
		}, providers.NewProviderFactory(), sink),
		Analyser:          delegation.NewAnalyser(delegation.DefaultRules()),
		Diagnoser:         diagnostics.NewDiagnoser(diagnostics.DefaultRules()),
		Audit:             sink,
		Client:            &http.Client{Timeout: cfg.Upstream.RequestTimeout},
		M365URL:           cfg.Upstream.M365URL,
		RequestsPerWindow: cfg.RateLimit.Requests,
		discovered:        storage.NewTTLCache[discovery.Response](cfg.Cache.DiscoverSize, cfg.Cache.DiscoverTTL),
		m365:              storage.NewTTLCache[upstreamBody](64, cfg.Cache.M365TTL),
	}

	switch {
	case !cfg.RateLimit.Enabled:
		deps.RateLimit = ratelimit.NewNoopLimiter()
		deps.RequestsPerWindow = 0
	case cfg.RateLimit.UseRedis:
		client, err := storage.NewRedisClient(cfg.Redis.StorageRedis())
		if err != nil {
			sink.Shutdown(ctx)
			store.Close()
			return nil, nil, fmt.Errorf("failed to initialize Redis: %w", err)
		}
		deps.redis = client
		deps.RateLimit = ratelimit.NewRateLimiterWithWindow(client, cfg.RateLimit.Window)
	default:
		deps.RateLimit = ratelimit.NewLocalLimiter(cfg.RateLimit.Window)
	}

	return NewHandler(deps), deps, nil
}

// Shutdown stops the background workers, flushes the audit sink and
// releases the store and Redis connections
func (d *Dependencies) Shutdown(ctx context.Context) error {
	var errs []error
	if d.stopWorkers != nil {
		errs = append(errs, d.stopWorkers())
		d.stopWorkers = nil
	}
	if d.unsubscribe != nil {
		d.unsubscribe()
		d.unsubscribe = nil
	}
	if d.ownsStore && d.Store != nil {
		errs = append(errs, d.Store.Close())
	}
	if d.Audit != nil {
		errs = append(errs, d.Audit.Shutdown(ctx))
	}
	if d.redis != nil {
		errs = append(errs, d.redis.Close())
	}
	return errors.Join(errs...)
}

// NewHandler registers the routes of d. Missing optional pieces get
// in-process defaults.
func NewHandler(d *Dependencies) http.Handler {
	if d.Client == nil {
		d.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if d.Analyser == nil {
		d.Analyser = delegation.NewAnalyser(delegation.DefaultRules())
	}
	if d.Diagnoser == nil {
		d.Diagnoser = diagnostics.NewDiagnoser(diagnostics.DefaultRules())
	}
	if d.RateLimit == nil {
		d.RateLimit = ratelimit.NewNoopLimiter()
	}
	if d.discovered == nil {
		d.discovered = storage.NewTTLCache[discovery.Response](1, 5*time.Minute)
	}
	if d.m365 == nil {
		d.m365 = storage.NewTTLCache[upstreamBody](64, 15*time.Minute)
	}
	if d.Store == nil {
		d.Store = storage.NewMemoryStore()
		d.ownsStore = true
	}
	if d.Roadmap == nil {
		d.Roadmap = reference.NewRoadmapCache(d.Store, reference.RoadmapSourceFor(""))
	}
	if d.Estimating == nil {
		d.Estimating = estimating.NewStore(context.Background(), d.Store)
	}
	d.followEstimating()

	limited := middleware.RateLimit(d.RateLimit, d.RequestsPerWindow)

	api := http.NewServeMux()
	api.Handle("/api/ai/discover", only(http.MethodGet, d.handleDiscover))
	api.Handle("/api/ai/list-models", only(http.MethodPost, d.handleListModels))
	api.Handle("/api/licensing/fetch", limited(only(http.MethodPost, d.handleLicensingFetch)))
	api.Handle("/api/m365", limited(only(http.MethodGet, d.handleM365)))
	api.Handle("/api/sa/erd-draft", only(http.MethodPost, d.handleERDDraft))
	api.Handle("/api/sa/hld-draft", only(http.MethodPost, d.handleHLDDraft))
	api.Handle("/api/sa/generate-options", limited(only(http.MethodPost, d.handleGenerateOptions)))
	api.Handle("/api/sa/generate-triple-options", limited(only(http.MethodPost, d.handleGenerateTripleOptions)))
	api.Handle("/api/delegation/analyse", only(http.MethodPost, d.handleDelegationAnalyse))
	api.Handle("/api/diagnostics/analyse", only(http.MethodPost, d.handleDiagnosticsAnalyse))
	api.Handle("/api/roadmap", only(http.MethodGet, d.handleRoadmap))
	api.Handle("/api/estimating", only(http.MethodGet, d.handleEstimating))
	api.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondWithError(w, http.StatusNotFound, "Not found")
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
	mux.Handle("/api/", middleware.CORS(api))

	return middleware.RequestID(middleware.AccessLog(middleware.Recover(mux)))
}

// only rejects every method but method with a JSON 405
func only(method string, h http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != method {
			w.Header().Set("Allow", method+", OPTIONS")
			utils.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h(w, r)
	})
}
