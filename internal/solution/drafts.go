package solution

import (
	"fmt"
	"strings"
)

const hldMermaid = `graph TD
  User[User] --> App[App Service]
  App --> DB[(Database)]
  App --> IdP[Identity Provider]
  subgraph Azure
    App
    DB
  end`

const erdMermaid = `erDiagram
  Customer ||--o{ Order : places
  Customer {
    uuid CustomerId PK
    string Name
  }
  Order {
    uuid OrderId PK
    uuid CustomerId FK
    number Total
  }`

// DraftHLD returns the starter high-level design for a brief
func DraftHLD(req HLDRequest) (HLDDraft, error) {
	if strings.TrimSpace(req.Brief) == "" {
		return HLDDraft{}, ErrMissingBrief
	}
	return HLDDraft{
		MermaidCode: hldMermaid,
		Narrative: fmt.Sprintf("High-level design generated for: %s.\n"+
			"Web client communicates with an App Service API protected by identity; data stored in a managed database.\n"+
			"Adjust components as needed.", req.Brief),
	}, nil
}

// DraftERD returns the starter Customer/Order model
func DraftERD(req ERDRequest) (ERDDraft, error) {
	if strings.TrimSpace(req.Description) == "" {
		return ERDDraft{}, ErrMissingDescription
	}
	return ERDDraft{
		Entities: []Entity{
			{ID: "e1", Name: "Customer"},
			{ID: "e2", Name: "Order"},
		},
		Fields: []Field{
			{ID: "f1", EntityID: "e1", Name: "CustomerId", Type: "uuid", Required: true},
			{ID: "f2", EntityID: "e1", Name: "Name", Type: "string", Required: true},
			{ID: "f3", EntityID: "e2", Name: "OrderId", Type: "uuid", Required: true},
			{ID: "f4", EntityID: "e2", Name: "CustomerId", Type: "uuid", Required: true},
			{ID: "f5", EntityID: "e2", Name: "Total", Type: "number", Required: true},
		},
		MermaidCode: erdMermaid,
	}, nil
}
