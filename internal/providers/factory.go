package providers

import (
	"fmt"
	"sort"
	"sync"
)

// ProviderCreator is a function that creates a provider instance
type ProviderCreator func(config ProviderConfig) (Provider, error)

// ProviderFactory creates providers by type
type ProviderFactory struct {
	mu       sync.RWMutex
	creators map[string]ProviderCreator
}

// NewProviderFactory creates a new provider factory with the built-in
// providers registered
func NewProviderFactory() *ProviderFactory {
	f := &ProviderFactory{creators: make(map[string]ProviderCreator)}
	f.Register("openai", NewOpenAIProvider)
	f.Register("azure-openai", NewAzureOpenAIProvider)
	f.Register("anthropic", NewAnthropicProvider)
	return f
}

// Register registers a provider creator for a specific type
func (f *ProviderFactory) Register(providerType string, creator ProviderCreator) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[providerType] = creator
}

// CreateProvider creates a new provider instance based on the configuration
func (f *ProviderFactory) CreateProvider(config ProviderConfig) (Provider, error) {
	f.mu.RLock()
	creator, exists := f.creators[config.Type]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, config.Type)
	}
	return creator(config)
}

// SupportedTypes returns the registered provider types, sorted
func (f *ProviderFactory) SupportedTypes() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	types := make([]string, 0, len(f.creators))
	for t := range f.creators {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
