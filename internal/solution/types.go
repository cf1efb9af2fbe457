package solution

// RequirementInput is the slice of a requirement sent for option drafting
type RequirementInput struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// GenerateRequest is the body of both option-generation endpoints
type GenerateRequest struct {
	Requirements []RequirementInput `json:"requirements"`
	Provider     string             `json:"provider,omitempty"`
	Model        string             `json:"model,omitempty"`
	SystemPrompt string             `json:"systemPrompt,omitempty"`
	APIKey       string             `json:"apiKey,omitempty"`
}

// OptionDetail describes one architecture approach
type OptionDetail struct {
	ArchitectureSummary string   `json:"architectureSummary"`
	Components          []string `json:"components"`
	Services            []string `json:"services"`
	Tradeoffs           string   `json:"tradeoffs"`
	ImplementationNotes string   `json:"implementationNotes,omitempty"`
	Security            string   `json:"security,omitempty"`
	CostConsiderations  string   `json:"costConsiderations,omitempty"`
	Complexity          string   `json:"complexity,omitempty"`
	Scale               string   `json:"scale,omitempty"`
}

// TripleResponses holds the three approaches drafted for a requirement
type TripleResponses struct {
	PowerPlatformOnly OptionDetail `json:"powerPlatformOnly"`
	Hybrid            OptionDetail `json:"hybrid"`
	AzureOnly         OptionDetail `json:"azureOnly"`
}

// TripleItem is one element of the triple-options response
type TripleItem struct {
	RequirementID string          `json:"requirementId"`
	Responses     TripleResponses `json:"responses"`
}

// Option types in a dual-options response
const (
	OptionPowerPlatform = "PowerPlatform"
	OptionAzure         = "Azure"
)

// Option is one entry of a dual-options response
type Option struct {
	OptionType          string   `json:"optionType"`
	ArchitectureSummary string   `json:"architectureSummary"`
	Components          []string `json:"components"`
	Services            []string `json:"services"`
	Tradeoffs           string   `json:"tradeoffs"`
}

// OptionsItem pairs a requirement with its PowerPlatform and Azure options
type OptionsItem struct {
	RequirementID string   `json:"requirementId"`
	Options       []Option `json:"options"`
}

// HLDRequest asks for a high-level design draft
type HLDRequest struct {
	Brief string   `json:"brief"`
	Docs  []string `json:"docs,omitempty"`
}

// HLDDraft is a mermaid diagram plus narrative
type HLDDraft struct {
	MermaidCode string `json:"mermaidCode"`
	Narrative   string `json:"narrative"`
}

// ERDRequest asks for an entity-relationship draft
type ERDRequest struct {
	Description string `json:"description"`
}

// Entity is a table in an ERD draft
type Entity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Field is a column of an ERD entity
type Field struct {
	ID       string `json:"id"`
	EntityID string `json:"entityId"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// ERDDraft is the response of the ERD endpoint
type ERDDraft struct {
	Entities    []Entity `json:"entities"`
	Fields      []Field  `json:"fields"`
	MermaidCode string   `json:"mermaidCode"`
}
