package httpapi

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"makermate/internal/config"
	"makermate/internal/discovery"
	"makermate/internal/estimating"
	"makermate/internal/providers"
	"makermate/internal/ratelimit"
	"makermate/internal/reference"
	"makermate/internal/solution"
	"makermate/internal/storage"
)

type fakeCatalog struct {
	discovers atomic.Int32
}

func (f *fakeCatalog) Discover(ctx context.Context) discovery.Response {
	f.discovers.Add(1)
	return discovery.Response{Providers: []discovery.ProviderCatalog{{
		ID:     "openrouter",
		Name:   "OpenRouter (aggregator)",
		Source: "https://openrouter.ai",
		Models: []discovery.Model{{ID: "a/b", Label: "A B", Source: "openrouter"}},
	}}}
}

func (f *fakeCatalog) ListModels(ctx context.Context, provider, apiKey string) ([]discovery.ListedModel, error) {
	switch provider {
	case "openai":
		return discovery.CuratedOpenAI(), nil
	default:
		return nil, discovery.ErrUnknownProvider
	}
}

func newTestHandler(t *testing.T, mutate ...func(*Dependencies)) (http.Handler, *fakeCatalog) {
	t.Helper()
	catalog := &fakeCatalog{}
	deps := &Dependencies{
		Catalog: catalog,
		Options: solution.NewOrchestrator(solution.Config{}, providers.NewProviderFactory(), nil),
	}
	for _, m := range mutate {
		m(deps)
	}
	return NewHandler(deps), catalog
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	w := do(h, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), "CORS only applies to /api/")
}

func TestRouting(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name   string
		method string
		target string
		code   int
		body   string
	}{
		{"method not allowed", http.MethodGet, "/api/sa/hld-draft", http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`},
		{"post to discover", http.MethodPost, "/api/ai/discover", http.StatusMethodNotAllowed, `{"error":"Method not allowed"}`},
		{"unknown api route", http.MethodGet, "/api/nope", http.StatusNotFound, `{"error":"Not found"}`},
		{"preflight", http.MethodOptions, "/api/licensing/fetch", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, tt.method, tt.target, "")
			assert.Equal(t, tt.code, w.Code)
			assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
			if tt.body != "" {
				assert.JSONEq(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestDiscover_Cached(t *testing.T) {
	h, catalog := newTestHandler(t)

	for i := 0; i < 3; i++ {
		w := do(h, http.MethodGet, "/api/ai/discover", "")
		require.Equal(t, http.StatusOK, w.Code)

		var resp discovery.Response
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		require.Len(t, resp.Providers, 1)
		assert.Equal(t, "openrouter", resp.Providers[0].ID)
	}
	assert.Equal(t, int32(1), catalog.discovers.Load())
}

func TestListModels(t *testing.T) {
	h, _ := newTestHandler(t)

	t.Run("missing provider", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/ai/list-models", `{}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"provider is required"}`, w.Body.String())
	})

	t.Run("openai", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/ai/list-models", `{"provider":"openai"}`)
		require.Equal(t, http.StatusOK, w.Code)
		var resp discovery.ListModelsResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, discovery.CuratedOpenAI(), resp.Models)
	})

	t.Run("unknown provider lists nothing", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/ai/list-models", `{"provider":"bedrock"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"models":[]}`, w.Body.String())
	})

	t.Run("malformed body", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/ai/list-models", `{"provider":`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLicensingFetch(t *testing.T) {
	pdf := []byte("%PDF-1.7 fake")
	var gotPath, gotUA string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotUA = r.URL.Path, r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/docs/guide.pdf":
			w.Write(pdf)
		case "/typed":
			w.Header().Set("Content-Type", "application/octet-stream")
			w.Write(pdf)
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	h, _ := newTestHandler(t)

	t.Run("invalid url", func(t *testing.T) {
		for _, body := range []string{`{}`, `{"url":"ftp://example.com/x.pdf"}`, `{"url":"  "}`, ``} {
			w := do(h, http.MethodPost, "/api/licensing/fetch", body)
			assert.Equal(t, http.StatusBadRequest, w.Code, "body %q", body)
			assert.JSONEq(t, `{"error":"Invalid or missing url"}`, w.Body.String())
		}
	})

	t.Run("collapses duplicate slashes", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/licensing/fetch", `{"url":"`+upstream.URL+`//docs///guide.pdf"}`)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "/docs/guide.pdf", gotPath)
		assert.Contains(t, gotUA, "Mozilla/5.0")
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

		var resp LicensingFetchResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, len(pdf), resp.Size)
		decoded, err := base64.StdEncoding.DecodeString(resp.Base64)
		require.NoError(t, err)
		assert.Equal(t, pdf, decoded)
	})

	t.Run("keeps upstream content type", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/licensing/fetch", `{"url":"`+upstream.URL+`/typed"}`)
		require.Equal(t, http.StatusOK, w.Code)
		var resp LicensingFetchResponse
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, "application/octet-stream", resp.ContentType)
	})

	t.Run("upstream status passes through", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/licensing/fetch", `{"url":"`+upstream.URL+`/missing.pdf"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)

		var resp UpstreamFailure
		require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
		assert.Equal(t, UpstreamFailure{
			Error:      "Upstream fetch failed",
			Status:     http.StatusNotFound,
			StatusText: "Not Found",
			URL:        upstream.URL + "/missing.pdf",
		}, resp)
	})
}

func TestLicensingFetch_DefaultContentType(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header()["Content-Type"] = nil
		w.Write([]byte{0x01, 0x02})
	}))
	defer upstream.Close()

	h, _ := newTestHandler(t)
	w := do(h, http.MethodPost, "/api/licensing/fetch", `{"url":"`+upstream.URL+`/x"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"contentType":"application/pdf","size":2,"base64":"AQI="}`, w.Body.String())
}

func TestM365(t *testing.T) {
	var hits atomic.Int32
	var gotQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		gotQuery = r.URL.RawQuery
		if r.URL.Query().Get("fail") != "" {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"message":"down"}`))
			return
		}
		w.Write([]byte(`[{"id":1,"title":"Copilot"}]`))
	}))
	defer upstream.Close()

	h, _ := newTestHandler(t, func(d *Dependencies) { d.M365URL = upstream.URL + "/m365" })

	w := do(h, http.MethodGet, "/api/m365?$top=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "$top=5", gotQuery)
	assert.Equal(t, `[{"id":1,"title":"Copilot"}]`, w.Body.String())
	assert.Equal(t, "public, max-age=900", w.Header().Get("Cache-Control"))
	assert.Equal(t, "application/json; charset=utf-8", w.Header().Get("Content-Type"))

	again := do(h, http.MethodGet, "/api/m365?$top=5", "")
	assert.Equal(t, w.Body.String(), again.Body.String())
	assert.Equal(t, int32(1), hits.Load(), "second call is served from cache")

	failed := do(h, http.MethodGet, "/api/m365?fail=1", "")
	assert.Equal(t, http.StatusServiceUnavailable, failed.Code)
	assert.JSONEq(t, `{"message":"down"}`, failed.Body.String())
	do(h, http.MethodGet, "/api/m365?fail=1", "")
	assert.Equal(t, int32(3), hits.Load(), "failures are not cached")
}

func TestM365_BadGateway(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	h, _ := newTestHandler(t, func(d *Dependencies) { d.M365URL = url })
	w := do(h, http.MethodGet, "/api/m365", "")
	assert.Equal(t, http.StatusBadGateway, w.Code)

	var resp map[string]string
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, "Bad gateway", resp["error"])
	assert.NotEmpty(t, resp["detail"])
}

func TestDrafts(t *testing.T) {
	h, _ := newTestHandler(t)

	tests := []struct {
		name   string
		target string
		body   string
		code   int
		want   string
	}{
		{"hld missing brief", "/api/sa/hld-draft", `{"brief":"  "}`, http.StatusBadRequest, `{"error":"Missing brief"}`},
		{"hld empty body", "/api/sa/hld-draft", ``, http.StatusBadRequest, `{"error":"Missing brief"}`},
		{"erd missing description", "/api/sa/erd-draft", `{}`, http.StatusBadRequest, `{"error":"Missing description"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(h, http.MethodPost, tt.target, tt.body)
			assert.Equal(t, tt.code, w.Code)
			assert.JSONEq(t, tt.want, w.Body.String())
		})
	}

	t.Run("hld", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/sa/hld-draft", `{"brief":"Expense approvals"}`)
		require.Equal(t, http.StatusOK, w.Code)
		var draft solution.HLDDraft
		require.NoError(t, json.NewDecoder(w.Body).Decode(&draft))
		assert.True(t, strings.HasPrefix(draft.MermaidCode, "graph TD"))
		assert.Contains(t, draft.Narrative, "Expense approvals")
	})

	t.Run("erd", func(t *testing.T) {
		w := do(h, http.MethodPost, "/api/sa/erd-draft", `{"description":"orders"}`)
		require.Equal(t, http.StatusOK, w.Code)
		var draft solution.ERDDraft
		require.NoError(t, json.NewDecoder(w.Body).Decode(&draft))
		assert.Len(t, draft.Entities, 2)
		assert.Len(t, draft.Fields, 5)
	})
}

func TestGenerateOptions(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(h, http.MethodPost, "/api/sa/generate-options", `{"requirements":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing requirements[]"}`, w.Body.String())

	w = do(h, http.MethodPost, "/api/sa/generate-options", `{"requirements":[{"id":"r1","title":"Leave requests"}]}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Missing API key"}`, w.Body.String())
}

func TestGenerateTripleOptions_WithoutKeyUsesMocks(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(h, http.MethodPost, "/api/sa/generate-triple-options",
		`{"requirements":[{"id":"r1","title":"Leave requests"},{"id":"r2","description":"Track assets"}]}`)
	require.Equal(t, http.StatusOK, w.Code)

	var items []solution.TripleItem
	require.NoError(t, json.NewDecoder(w.Body).Decode(&items))
	require.Len(t, items, 2)
	assert.Equal(t, "r1", items[0].RequirementID)
	assert.Equal(t, "r2", items[1].RequirementID)
	assert.Contains(t, items[0].Responses.PowerPlatformOnly.ArchitectureSummary, "Leave requests")

	w = do(h, http.MethodPost, "/api/sa/generate-triple-options", `{}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestDelegationAnalyse(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(h, http.MethodPost, "/api/delegation/analyse", `{"formula":"ForAll(Contacts, Patch(Contacts, ThisRecord, {}))"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp DelegationResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.NotEmpty(t, resp.Findings)
	assert.Equal(t, "forall", resp.Findings[0].Rule)

	w = do(h, http.MethodPost, "/api/delegation/analyse", `{"formula":""}`)
	assert.JSONEq(t, `{"findings":[]}`, w.Body.String())
}

func TestDiagnosticsAnalyse(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(h, http.MethodPost, "/api/diagnostics/analyse", `{"message":"Invalid argument: 'Accounts' is not defined"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp DiagnosticsResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Len(t, resp.Steps, 2)
	assert.Equal(t, "syntax", resp.Steps[0].Rule)
	assert.Equal(t, "reference", resp.Steps[1].Rule)

	w = do(h, http.MethodPost, "/api/diagnostics/analyse", `{"message":"  "}`)
	assert.JSONEq(t, `{"steps":[]}`, w.Body.String())

	w = do(h, http.MethodGet, "/api/diagnostics/analyse", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestUpstreamEndpointsAreRateLimited(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	defer upstream.Close()

	h, _ := newTestHandler(t, func(d *Dependencies) {
		d.M365URL = upstream.URL
		d.RateLimit = ratelimit.NewLocalLimiter(time.Minute)
		d.RequestsPerWindow = 1
	})

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/m365", "").Code)
	limited := do(h, http.MethodGet, "/api/m365", "")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.Equal(t, "*", limited.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusOK, do(h, http.MethodPost, "/api/sa/hld-draft", `{"brief":"x"}`).Code,
		"local drafts are not limited")
}

func TestNewRouter(t *testing.T) {
	cfg := &config.Config{
		Upstream: config.UpstreamConfig{
			RequestTimeout: time.Second,
			M365URL:        "http://127.0.0.1:1/m365",
		},
		Storage:   config.StorageConfig{Driver: "memory"},
		Cache:     config.CacheConfig{DiscoverSize: 4, DiscoverTTL: time.Minute, M365TTL: time.Minute},
		RateLimit: config.RateLimitConfig{Enabled: true, Requests: 5, Window: time.Minute},
	}

	h, deps, err := NewRouter(context.Background(), cfg)
	require.NoError(t, err)
	defer deps.Shutdown(context.Background())

	assert.IsType(t, &ratelimit.LocalLimiter{}, deps.RateLimit)
	assert.Equal(t, 5, deps.RequestsPerWindow)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/health", "").Code)

	assert.IsType(t, &storage.MemoryStore{}, deps.Store)
	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/api/estimating", "").Code)

	cfg.RateLimit.Enabled = false
	_, deps2, err := NewRouter(context.Background(), cfg)
	require.NoError(t, err)
	defer deps2.Shutdown(context.Background())
	assert.IsType(t, &ratelimit.NoopLimiter{}, deps2.RateLimit)
	assert.Zero(t, deps2.RequestsPerWindow)
}

func TestNewRouter_UnknownStorageDriver(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{Driver: "cassandra"}}

	_, _, err := NewRouter(context.Background(), cfg)
	assert.ErrorIs(t, err, storage.ErrUnknownDriver)
}

func TestRoadmap(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(h, http.MethodGet, "/api/roadmap", "")
	require.Equal(t, http.StatusOK, w.Code)

	var body RoadmapResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Items, len(reference.RoadmapSamples(time.Now())))
	assert.Empty(t, body.Warning)
	assert.Equal(t, 1, body.NotifyWindowMonths)

	flagged := 0
	for _, it := range body.Items {
		if it.DueThisOrPrev || it.DueSoon {
			flagged++
		}
	}
	assert.Positive(t, flagged)

	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodPost, "/api/roadmap", "{}").Code)
}

func TestRoadmap_Filter(t *testing.T) {
	h, _ := newTestHandler(t)

	w := do(h, http.MethodGet, "/api/roadmap?query=no-such-feature", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[],"notifyWindowMonths":1}`, w.Body.String())
}

func TestEstimating_FollowsChanges(t *testing.T) {
	var deps *Dependencies
	h, _ := newTestHandler(t, func(d *Dependencies) { deps = d })

	var before EstimatingResponse
	require.NoError(t, json.Unmarshal(do(h, http.MethodGet, "/api/estimating", "").Body.Bytes(), &before))
	assert.Len(t, before.PlanningItems, len(estimating.DefaultPlanItems()))

	deps.Estimating.AddItem(context.Background(), estimating.PlanItem{ID: "az-apim", Component: "API Management", Size: estimating.SizeL, Qty: 2})

	var after EstimatingResponse
	require.NoError(t, json.Unmarshal(do(h, http.MethodGet, "/api/estimating", "").Body.Bytes(), &after))
	assert.Len(t, after.PlanningItems, len(before.PlanningItems)+1)
	assert.Greater(t, after.TotalHours, before.TotalHours)
	assert.Equal(t, "az-apim", after.PlanningItems[len(after.PlanningItems)-1].ID)
}

func TestStart_FollowsOtherHosts(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	store := storage.NewMemoryStore()
	defer store.Close()

	deps := &Dependencies{
		Catalog: &fakeCatalog{},
		Store:   store,
	}
	h := NewHandler(deps)
	deps.Start(ctx)

	shared := estimating.State{PlanningItems: []estimating.PlanItem{{ID: "remote", Category: estimating.CategoryAzure, Component: "Azure Functions", Size: estimating.SizeS, Qty: 1}}}
	assert.Eventually(t, func() bool {
		storage.SetItem(ctx, store, estimating.StorageKey, shared)
		var body EstimatingResponse
		if err := json.Unmarshal(do(h, http.MethodGet, "/api/estimating", "").Body.Bytes(), &body); err != nil {
			return false
		}
		return len(body.PlanningItems) == 1 && body.PlanningItems[0].ID == "remote"
	}, 2*time.Second, 10*time.Millisecond)

	remote := []reference.RoadmapItem{{ID: "rm-1", Title: "Copilot in flows", Area: "Power Automate", Status: "Planned", Due: "2031-01-01"}}
	assert.Eventually(t, func() bool {
		storage.SetItem(ctx, store, reference.RoadmapCacheKey, remote)
		items, _ := deps.Roadmap.Items()
		return len(items) == 1 && items[0].ID == "rm-1"
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, deps.Shutdown(ctx))
}
