// Package pricing projects AI API costs from a static per-token price table.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"unicode/utf8"
)

var (
	// ErrUnknownProvider is returned for providers missing from the table
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrUnknownModel is returned for models missing from the table
	ErrUnknownModel = errors.New("unknown model")
)

// Rate is the price in USD per one million tokens
type Rate struct {
	Input  float64 `json:"input" yaml:"input"`
	Output float64 `json:"output" yaml:"output"`
}

// Table maps provider to model to rate
type Table map[string]map[string]Rate

// DefaultTable holds list prices as of late 2024
func DefaultTable() Table {
	return Table{
		"openai": {
			"gpt-4o":        {Input: 2.50, Output: 10.00},
			"gpt-4o-mini":   {Input: 0.15, Output: 0.60},
			"o1-mini":       {Input: 3.00, Output: 12.00},
			"gpt-4-turbo":   {Input: 10.00, Output: 30.00},
			"gpt-3.5-turbo": {Input: 0.50, Output: 1.50},
		},
		"anthropic": {
			"claude-3-5-sonnet-20241022": {Input: 3.00, Output: 15.00},
			"claude-3-5-haiku-20241022":  {Input: 0.25, Output: 1.25},
			"claude-3-opus-20240229":     {Input: 15.00, Output: 75.00},
			"claude-3-sonnet-20240229":   {Input: 3.00, Output: 15.00},
		},
		"google": {
			"gemini-1.5-pro":    {Input: 1.25, Output: 5.00},
			"gemini-1.5-flash":  {Input: 0.075, Output: 0.30},
			"gemini-1.0-pro":    {Input: 0.50, Output: 1.50},
			"gemini-pro-vision": {Input: 0.25, Output: 0.50},
		},
	}
}

// Providers returns the priced providers, sorted
func (t Table) Providers() []string {
	out := make([]string, 0, len(t))
	for p := range t {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Models returns the priced models of a provider, sorted
func (t Table) Models(provider string) []string {
	out := make([]string, 0, len(t[provider]))
	for m := range t[provider] {
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

// Lookup returns the rate for a provider/model pair
func (t Table) Lookup(provider, model string) (Rate, error) {
	models, ok := t[provider]
	if !ok {
		return Rate{}, fmt.Errorf("%w: %q", ErrUnknownProvider, provider)
	}
	rate, ok := models[model]
	if !ok {
		return Rate{}, fmt.Errorf("%w: %q for %s", ErrUnknownModel, model, provider)
	}
	return rate, nil
}

// Usage describes an expected workload
type Usage struct {
	InputTokens    int `json:"inputTokens"`
	OutputTokens   int `json:"outputTokens"`
	RequestsPerDay int `json:"requestsPerDay"`
	DaysPerMonth   int `json:"daysPerMonth"`
}

// Projection is the projected spend in USD
type Projection struct {
	PerRequest float64 `json:"perRequest"`
	PerDay     float64 `json:"perDay"`
	PerMonth   float64 `json:"perMonth"`
}

// Cost returns the price of a single request
func (r Rate) Cost(inputTokens, outputTokens int) float64 {
	cost := 0.0
	if inputTokens > 0 {
		cost += float64(inputTokens) / 1_000_000 * r.Input
	}
	if outputTokens > 0 {
		cost += float64(outputTokens) / 1_000_000 * r.Output
	}
	return cost
}

// Estimate projects usage onto the rate for provider/model
func (t Table) Estimate(provider, model string, u Usage) (Projection, error) {
	rate, err := t.Lookup(provider, model)
	if err != nil {
		return Projection{}, err
	}

	perRequest := rate.Cost(u.InputTokens, u.OutputTokens)
	perDay := perRequest * float64(max(u.RequestsPerDay, 0))
	return Projection{
		PerRequest: perRequest,
		PerDay:     perDay,
		PerMonth:   perDay * float64(max(u.DaysPerMonth, 0)),
	}, nil
}

// EstimateTokens approximates the token count of English text at four
// characters per token
func EstimateTokens(text string) int {
	return int(math.Ceil(float64(utf8.RuneCountInString(text)) / 4))
}
