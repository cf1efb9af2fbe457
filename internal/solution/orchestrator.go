// Package solution drafts architecture options for requirements, calling an
// upstream chat model per requirement with deterministic fallbacks.
package solution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"makermate/internal/logging"
	"makermate/internal/providers"
)

// DefaultTriplePrompt is the system prompt used when a request carries none
const DefaultTriplePrompt = "You are a senior Microsoft Solution Architect. Return ONLY JSON with the specified schema for three options (Power Platform Only, Hybrid, Azure Only). Keep architectureSummary concise and populate fields as described."

// DefaultOptionsPrompt is the system prompt for the PowerPlatform/Azure pair
const DefaultOptionsPrompt = "You are a senior Microsoft Solution Architect. Return ONLY JSON with an \"options\" array holding exactly two options: one with optionType \"PowerPlatform\" and one with optionType \"Azure\"."

const (
	defaultProvider   = "openai"
	operationTriple   = "generate-triple-options"
	operationOptions  = "generate-options"
	optionTemperature = 0.2
)

var defaultModels = map[string]string{
	"openai":       "gpt-4o-mini",
	"azure-openai": "gpt-4o-mini",
	"anthropic":    "claude-3-5-haiku-20241022",
}

var errMissingKeys = errors.New("response is missing required keys")

// ProviderFactory creates upstream providers
type ProviderFactory interface {
	CreateProvider(config providers.ProviderConfig) (providers.Provider, error)
}

// Config holds server-side upstream settings
type Config struct {
	APIKeys         map[string]string // by provider type
	BaseURLs        map[string]string // by provider type; azure-openai needs its endpoint here
	AzureAPIVersion string
	Timeout         time.Duration
}

// Orchestrator runs per-requirement generation. Requirements are processed
// sequentially in input order and a failure only affects its own item.
type Orchestrator struct {
	cfg     Config
	factory ProviderFactory
	sink    logging.Sink
	log     *zap.SugaredLogger
}

// NewOrchestrator creates an orchestrator. A nil sink discards audit records.
func NewOrchestrator(cfg Config, factory ProviderFactory, sink logging.Sink) *Orchestrator {
	if sink == nil {
		sink = logging.NewNoopSink()
	}
	return &Orchestrator{
		cfg:     cfg,
		factory: factory,
		sink:    sink,
		log:     logging.Named("solution"),
	}
}

type call struct {
	requestID string
	operation string
	provider  string
	model     string
	key       string
	prompt    string
}

func (o *Orchestrator) resolve(req GenerateRequest, operation, defaultPrompt string) call {
	provider := req.Provider
	if provider == "" {
		provider = defaultProvider
	}
	model := req.Model
	if model == "" {
		model = defaultModels[provider]
	}
	key := o.cfg.APIKeys[provider]
	if key == "" {
		key = req.APIKey
	}
	prompt := req.SystemPrompt
	if strings.TrimSpace(prompt) == "" {
		prompt = defaultPrompt
	}
	return call{
		requestID: uuid.NewString(),
		operation: operation,
		provider:  provider,
		model:     model,
		key:       key,
		prompt:    prompt,
	}
}

func (o *Orchestrator) newProvider(c call) (providers.Provider, error) {
	return o.factory.CreateProvider(providers.ProviderConfig{
		Type:       c.provider,
		APIKey:     c.key,
		BaseURL:    o.cfg.BaseURLs[c.provider],
		APIVersion: o.cfg.AzureAPIVersion,
		Timeout:    o.cfg.Timeout,
	})
}

// GenerateTripleOptions drafts three options per requirement. Without a
// resolvable key every item is the mock and no upstream call is made. The
// result is always parallel to req.Requirements.
func (o *Orchestrator) GenerateTripleOptions(ctx context.Context, req GenerateRequest) []TripleItem {
	out := make([]TripleItem, 0, len(req.Requirements))
	if len(req.Requirements) == 0 {
		return out
	}

	c := o.resolve(req, operationTriple, DefaultTriplePrompt)
	p, reason := o.providerFor(c)
	if p != nil {
		defer p.Close()
	}

	for _, r := range req.Requirements {
		if p == nil {
			o.audit(c, r.ID, nil, reason)
			out = append(out, MockTriple(r))
			continue
		}
		resp, err := o.chat(ctx, p, c, triplePrompt(r))
		if err == nil {
			var tr TripleResponses
			if tr, err = parseTriple(resp.Content); err == nil {
				o.audit(c, r.ID, resp, nil)
				out = append(out, TripleItem{RequirementID: r.ID, Responses: tr})
				continue
			}
		}
		o.log.Warnw("falling back to mock triple options", "requirement", r.ID, "error", err)
		o.audit(c, r.ID, resp, err)
		out = append(out, MockTriple(r))
	}
	return out
}

// GenerateOptions drafts a PowerPlatform and an Azure option per
// requirement. It needs at least one requirement and a resolvable key;
// upstream failures fall back to the mock per item.
func (o *Orchestrator) GenerateOptions(ctx context.Context, req GenerateRequest) ([]OptionsItem, error) {
	if len(req.Requirements) == 0 {
		return nil, ErrNoRequirements
	}
	c := o.resolve(req, operationOptions, DefaultOptionsPrompt)
	if c.key == "" {
		return nil, ErrNoAPIKey
	}
	p, err := o.newProvider(c)
	if err != nil {
		return nil, fmt.Errorf("failed to create provider: %w", err)
	}
	defer p.Close()

	out := make([]OptionsItem, 0, len(req.Requirements))
	for _, r := range req.Requirements {
		resp, err := o.chat(ctx, p, c, optionsPrompt(r))
		if err == nil {
			var opts []Option
			if opts, err = parseOptions(resp.Content); err == nil {
				o.audit(c, r.ID, resp, nil)
				out = append(out, OptionsItem{RequirementID: r.ID, Options: opts})
				continue
			}
		}
		o.log.Warnw("falling back to mock options", "requirement", r.ID, "error", err)
		o.audit(c, r.ID, resp, err)
		out = append(out, MockOptions(r))
	}
	return out, nil
}

func (o *Orchestrator) providerFor(c call) (providers.Provider, error) {
	if c.key == "" {
		return nil, ErrNoAPIKey
	}
	p, err := o.newProvider(c)
	if err != nil {
		o.log.Warnw("provider unavailable, using mocks", "provider", c.provider, "error", err)
		return nil, err
	}
	return p, nil
}

func (o *Orchestrator) chat(ctx context.Context, p providers.Provider, c call, user string) (*providers.ChatResponse, error) {
	temp := optionTemperature
	resp, err := p.Chat(ctx, providers.ChatRequest{
		Model: c.model,
		Messages: []providers.Message{
			{Role: "system", Content: c.prompt},
			{Role: "user", Content: user},
		},
		JSONMode:    true,
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return resp, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}
	return resp, nil
}

func (o *Orchestrator) audit(c call, requirementID string, resp *providers.ChatResponse, fallback error) {
	rec := &logging.LogRecord{
		Timestamp:     time.Now().UTC(),
		RequestID:     c.requestID,
		Operation:     c.operation,
		RequirementID: requirementID,
		Provider:      c.provider,
		Model:         c.model,
		Outcome:       logging.OutcomeUpstream,
	}
	if fallback != nil {
		rec.Outcome = logging.OutcomeMock
		rec.FallbackReason = fallback.Error()
	}
	if resp != nil {
		rec.ProviderMs = resp.ProviderLatency.Milliseconds()
		rec.InputTokens = resp.InputTokens
		rec.OutputTokens = resp.OutputTokens
		rec.CostUSD = resp.CostUSD
	}
	if err := o.sink.Enqueue(rec); err != nil {
		o.log.Debugw("audit record dropped", "error", err)
	}
}

func triplePrompt(r RequirementInput) string {
	return fmt.Sprintf(`Requirement ID: %s
Title: %s
Description: %s

Return a JSON object with exactly the keys "powerPlatformOnly", "hybrid" and "azureOnly".
Each value is an object with: architectureSummary (string), components (string array),
services (string array), tradeoffs (string), implementationNotes (string), security (string),
costConsiderations (string), complexity ("low" | "medium" | "high") and scale ("small" | "medium" | "large").`,
		r.ID, r.Title, r.Description)
}

func optionsPrompt(r RequirementInput) string {
	return fmt.Sprintf(`Requirement ID: %s
Title: %s
Description: %s

Return a JSON object {"options": [...]} with two entries, optionType "PowerPlatform" and "Azure".
Each entry has: optionType, architectureSummary (string), components (string array),
services (string array) and tradeoffs (string).`,
		r.ID, r.Title, r.Description)
}

// decodeLenient unmarshals content, retrying on the outermost {...} slice
// for models that wrap JSON in prose
func decodeLenient(content string, v any) error {
	err := json.Unmarshal([]byte(content), v)
	if err == nil {
		return nil
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if err := json.Unmarshal([]byte(content[start:end+1]), v); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func parseTriple(content string) (TripleResponses, error) {
	var raw map[string]json.RawMessage
	if err := decodeLenient(content, &raw); err != nil {
		return TripleResponses{}, err
	}
	for _, k := range []string{"powerPlatformOnly", "hybrid", "azureOnly"} {
		v, ok := raw[k]
		if !ok || string(v) == "null" {
			return TripleResponses{}, fmt.Errorf("%w: %s", errMissingKeys, k)
		}
	}

	var tr TripleResponses
	for k, dst := range map[string]*OptionDetail{
		"powerPlatformOnly": &tr.PowerPlatformOnly,
		"hybrid":            &tr.Hybrid,
		"azureOnly":         &tr.AzureOnly,
	} {
		if err := json.Unmarshal(raw[k], dst); err != nil {
			return TripleResponses{}, fmt.Errorf("failed to parse %s: %w", k, err)
		}
	}
	return tr, nil
}

func parseOptions(content string) ([]Option, error) {
	var body struct {
		Options []Option `json:"options"`
	}
	if err := decodeLenient(content, &body); err != nil {
		return nil, err
	}

	var pp, az *Option
	for i := range body.Options {
		switch strings.ToLower(body.Options[i].OptionType) {
		case strings.ToLower(OptionPowerPlatform):
			pp = &body.Options[i]
		case strings.ToLower(OptionAzure):
			az = &body.Options[i]
		}
	}
	if pp == nil || az == nil {
		return nil, fmt.Errorf("%w: options", errMissingKeys)
	}
	pp.OptionType, az.OptionType = OptionPowerPlatform, OptionAzure
	return []Option{*pp, *az}, nil
}
