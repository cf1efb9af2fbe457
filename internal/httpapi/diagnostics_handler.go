package httpapi

import (
	"net/http"

	"makermate/internal/diagnostics"
	"makermate/internal/utils"
)

// DiagnosticsRequest is the body of POST /api/diagnostics/analyse
type DiagnosticsRequest struct {
	Message string `json:"message"`
}

// DiagnosticsResponse lists the suggested next steps in rule order
type DiagnosticsResponse struct {
	Steps []diagnostics.Step `json:"steps"`
}

func (d *Dependencies) handleDiagnosticsAnalyse(w http.ResponseWriter, r *http.Request) {
	var req DiagnosticsRequest
	if err := decodeBody(r, &req); err != nil {
		utils.RespondWithErrorDetail(w, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, DiagnosticsResponse{
		Steps: d.Diagnoser.Diagnose(req.Message),
	})
}
