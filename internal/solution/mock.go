package solution

import "fmt"

const summaryLabelLen = 60

// label names a requirement in templated text: title, else the start of the
// description, else the id
func label(r RequirementInput) string {
	if r.Title != "" {
		return r.Title
	}
	if r.Description != "" {
		runes := []rune(r.Description)
		return string(runes[:min(len(runes), summaryLabelLen)])
	}
	return r.ID
}

// MockTriple is the deterministic triple-option draft for r
func MockTriple(r RequirementInput) TripleItem {
	name := label(r)
	return TripleItem{
		RequirementID: r.ID,
		Responses: TripleResponses{
			PowerPlatformOnly: OptionDetail{
				ArchitectureSummary: fmt.Sprintf("Power Platform approach for: %s. Use Dataverse, Power Apps, Power Automate, and appropriate connectors.", name),
				Components:          []string{"Power Apps", "Dataverse", "Power Automate"},
				Services:            []string{"AAD", "M365 Graph (as needed)"},
				Tradeoffs:           "Low-code speed vs. advanced customization limits.",
				ImplementationNotes: "Model-driven or canvas app; flows for automation; governance in place.",
				Security:            "AAD auth, DLP policies, environment strategies.",
				CostConsiderations:  "Per-user/app licensing; Dataverse capacity; connectors.",
				Complexity:          "medium",
				Scale:               "medium",
			},
			Hybrid: OptionDetail{
				ArchitectureSummary: fmt.Sprintf("Hybrid approach for: %s. Combine Azure APIs with Power Platform UX and automation.", name),
				Components:          []string{"Power Apps", "Azure Functions", "APIM", "Dataverse"},
				Services:            []string{"AAD", "Key Vault", "Storage"},
				Tradeoffs:           "More flexibility and scalability vs. higher operational overhead.",
				ImplementationNotes: "Expose APIs via APIM; secure with AAD; use custom connectors.",
				Security:            "Managed identities, Key Vault, least-privilege; governance in PP.",
				CostConsiderations:  "Azure runtime + PP licensing; APIM, Functions, data egress.",
				Complexity:          "high",
				Scale:               "large",
			},
			AzureOnly: OptionDetail{
				ArchitectureSummary: fmt.Sprintf("Azure approach for: %s. Full-code solution leveraging Azure services.", name),
				Components:          []string{"Web App", "Azure SQL/Storage", "Functions", "Event Grid"},
				Services:            []string{"AAD", "Key Vault", "Monitor"},
				Tradeoffs:           "Max control and scale vs. longer development time and complexity.",
				ImplementationNotes: "IaC, CI/CD, API-first design; consider microservices if needed.",
				Security:            "AAD, RBAC, network isolation, encryption; compliance mapping.",
				CostConsiderations:  "Compute, storage, networking, monitoring; reserved capacity options.",
				Complexity:          "high",
				Scale:               "large",
			},
		},
	}
}

// MockOptions is the deterministic PowerPlatform/Azure pair for r
func MockOptions(r RequirementInput) OptionsItem {
	return OptionsItem{
		RequirementID: r.ID,
		Options: []Option{
			{
				OptionType:          OptionPowerPlatform,
				ArchitectureSummary: "Canvas app + Dataverse for " + r.Title,
				Components:          []string{"Power Apps", "Dataverse"},
				Services:            []string{"M365 Identity"},
				Tradeoffs:           "Faster delivery; platform limits may apply.",
			},
			{
				OptionType:          OptionAzure,
				ArchitectureSummary: "Web app + Azure SQL for " + r.Title,
				Components:          []string{"App Service", "Azure SQL"},
				Services:            []string{"Managed Identity"},
				Tradeoffs:           "More control; higher ops overhead.",
			},
		},
	}
}
