package aiclient

import (
	"context"
	"errors"
	"sync"

	"makermate/internal/discovery"
	"makermate/internal/solution"
)

// Endpoint paths
const (
	PathGenerateOptions       = "/api/sa/generate-options"
	PathGenerateTripleOptions = "/api/sa/generate-triple-options"
	PathHLDDraft              = "/api/sa/hld-draft"
	PathERDDraft              = "/api/sa/erd-draft"
	PathListModels            = "/api/ai/list-models"
	PathDiscover              = "/api/ai/discover"
)

// ErrGetUnsupported is returned by Discover when the transport cannot GET
var ErrGetUnsupported = errors.New("transport does not support GET")

// Client exposes typed AI operations. It performs no retries; callers own
// retry and backoff.
type Client struct {
	mu        sync.RWMutex
	transport Transport
}

// New creates a client over t
func New(t Transport) *Client {
	return &Client{transport: t}
}

// SetTransport swaps the transport used by subsequent calls
func (c *Client) SetTransport(t Transport) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transport = t
}

func (c *Client) current() Transport {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.transport
}

func (c *Client) GenerateOptions(ctx context.Context, req solution.GenerateRequest) ([]solution.OptionsItem, error) {
	var out []solution.OptionsItem
	if err := c.current().Post(ctx, PathGenerateOptions, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GenerateTripleOptions(ctx context.Context, req solution.GenerateRequest) ([]solution.TripleItem, error) {
	var out []solution.TripleItem
	if err := c.current().Post(ctx, PathGenerateTripleOptions, req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) HLDDraft(ctx context.Context, req solution.HLDRequest) (solution.HLDDraft, error) {
	var out solution.HLDDraft
	err := c.current().Post(ctx, PathHLDDraft, req, &out)
	return out, err
}

func (c *Client) ERDDraft(ctx context.Context, req solution.ERDRequest) (solution.ERDDraft, error) {
	var out solution.ERDDraft
	err := c.current().Post(ctx, PathERDDraft, req, &out)
	return out, err
}

func (c *Client) ListModels(ctx context.Context, req discovery.ListModelsRequest) ([]discovery.ListedModel, error) {
	var out discovery.ListModelsResponse
	if err := c.current().Post(ctx, PathListModels, req, &out); err != nil {
		return nil, err
	}
	return out.Models, nil
}

// Discover fetches the aggregated model catalog
func (c *Client) Discover(ctx context.Context) (discovery.Response, error) {
	var out discovery.Response
	f, ok := c.current().(Fetcher)
	if !ok {
		return out, ErrGetUnsupported
	}
	err := f.Get(ctx, PathDiscover, &out)
	return out, err
}
