package solution

import "errors"

var (
	// ErrNoRequirements is returned when a generate request has an empty list
	ErrNoRequirements = errors.New("missing requirements[]")

	// ErrNoAPIKey is returned by GenerateOptions when no key resolves for the provider
	ErrNoAPIKey = errors.New("missing api key")

	// ErrMissingBrief is returned by HLDDraft for a blank brief
	ErrMissingBrief = errors.New("missing brief")

	// ErrMissingDescription is returned by ERDDraft for a blank description
	ErrMissingDescription = errors.New("missing description")

	// ErrTemplateNotFound is returned when no catalog template has the given id
	ErrTemplateNotFound = errors.New("template not found")
)
