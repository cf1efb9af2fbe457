package providers

import (
	"context"
	"fmt"
	"net/http"
)

// SimpleAPIKeyAuth sends the API key in one header, optionally prefixed
type SimpleAPIKeyAuth struct {
	apiKey     string
	headerName string // e.g., "Authorization", "api-key", "x-api-key"
	prefix     string // e.g., "Bearer "
}

// NewSimpleAPIKeyAuth creates a new simple API key authenticator. An empty
// header name defaults to Authorization.
func NewSimpleAPIKeyAuth(apiKey, headerName, prefix string) *SimpleAPIKeyAuth {
	if headerName == "" {
		headerName = "Authorization"
	}
	return &SimpleAPIKeyAuth{
		apiKey:     apiKey,
		headerName: headerName,
		prefix:     prefix,
	}
}

// Authenticate returns an auth context with the API key
func (a *SimpleAPIKeyAuth) Authenticate(ctx context.Context) (AuthContext, error) {
	if a.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	return &simpleAPIKeyAuthContext{header: a.headerName, value: a.prefix + a.apiKey}, nil
}

type simpleAPIKeyAuthContext struct {
	header string
	value  string
}

func (c *simpleAPIKeyAuthContext) ApplyToRequest(ctx context.Context, req any) error {
	httpReq, ok := req.(*http.Request)
	if !ok {
		return fmt.Errorf("expected *http.Request, got %T", req)
	}
	httpReq.Header.Set(c.header, c.value)
	return nil
}
