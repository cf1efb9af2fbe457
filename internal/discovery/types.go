package discovery

// Model is one discovered model
type Model struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Source string `json:"source"`
}

// ProviderCatalog groups the models found for one provider or aggregator
type ProviderCatalog struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Source string  `json:"source"`
	Models []Model `json:"models"`
}

// Response is the discovery payload
type Response struct {
	Providers []ProviderCatalog `json:"providers"`
}

// ListModelsRequest is the body of the provider model listing endpoint
type ListModelsRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey,omitempty"`
}

// ListedModel is a model offered for selection
type ListedModel struct {
	ID         string `json:"id"`
	Label      string `json:"label"`
	Deprecated bool   `json:"deprecated,omitempty"`
}

// ListModelsResponse wraps the listed models
type ListModelsResponse struct {
	Models []ListedModel `json:"models"`
}
