package settings

import (
	"fmt"
	"strings"
)

// ProviderID names an AI provider
type ProviderID string

const (
	ProviderOpenAI      ProviderID = "openai"
	ProviderAnthropic   ProviderID = "anthropic"
	ProviderAzureOpenAI ProviderID = "azure-openai"
)

// DefaultProvider is used when no active provider has been chosen
const DefaultProvider = ProviderOpenAI

// ProcessID names a feature that can be bound to its own provider/model/prompt
type ProcessID string

const (
	ProcessSnippets     ProcessID = "snippets"
	ProcessDelegation   ProcessID = "delegation"
	ProcessExpression   ProcessID = "expression"
	ProcessDiagnostics  ProcessID = "diagnostics"
	ProcessFormatter    ProcessID = "formatter"
	ProcessDataverse    ProcessID = "dataverse"
	ProcessPacks        ProcessID = "packs"
	ProcessIcons        ProcessID = "icons"
	ProcessEstimating   ProcessID = "estimating"
	ProcessRequirements ProcessID = "requirements"
	ProcessHLD          ProcessID = "hld"
	ProcessARM          ProcessID = "arm"
	ProcessERD          ProcessID = "erd"
	ProcessRoadmap      ProcessID = "roadmap"
	ProcessLicensing    ProcessID = "licensing"
)

// Process pairs an id with its display label
type Process struct {
	ID    ProcessID `json:"id"`
	Label string    `json:"label"`
}

var allProcesses = []Process{
	{ProcessSnippets, "Snippets"},
	{ProcessDelegation, "Delegation"},
	{ProcessExpression, "Expression Tester"},
	{ProcessDiagnostics, "Diagnostics"},
	{ProcessFormatter, "Flow Formatter"},
	{ProcessDataverse, "Dataverse Lookup"},
	{ProcessPacks, "Packs"},
	{ProcessIcons, "Icons"},
	{ProcessEstimating, "Estimating"},
	{ProcessRequirements, "Requirements"},
	{ProcessHLD, "HLD"},
	{ProcessARM, "ARM Catalog"},
	{ProcessERD, "ERD"},
	{ProcessRoadmap, "Roadmap"},
	{ProcessLicensing, "Licensing"},
}

// AllProcesses returns every process in display order
func AllProcesses() []Process {
	out := make([]Process, len(allProcesses))
	copy(out, allProcesses)
	return out
}

// Valid reports whether p is a known process
func (p ProcessID) Valid() bool {
	for _, proc := range allProcesses {
		if proc.ID == p {
			return true
		}
	}
	return false
}

// ParseProcess accepts a process id in any case
func ParseProcess(s string) (ProcessID, error) {
	p := ProcessID(strings.ToLower(strings.TrimSpace(s)))
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownProcess, s)
	}
	return p, nil
}
