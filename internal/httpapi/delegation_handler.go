package httpapi

import (
	"net/http"

	"makermate/internal/delegation"
	"makermate/internal/utils"
)

// DelegationRequest is the body of POST /api/delegation/analyse
type DelegationRequest struct {
	Formula        string `json:"formula"`
	DataSourceHint string `json:"dataSourceHint,omitempty"`
}

// DelegationResponse lists the findings in rule order
type DelegationResponse struct {
	Findings []delegation.Finding `json:"findings"`
}

func (d *Dependencies) handleDelegationAnalyse(w http.ResponseWriter, r *http.Request) {
	var req DelegationRequest
	if err := decodeBody(r, &req); err != nil {
		utils.RespondWithErrorDetail(w, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, DelegationResponse{
		Findings: d.Analyser.Analyse(req.Formula, req.DataSourceHint),
	})
}
