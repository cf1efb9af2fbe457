package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"makermate/internal/solution"
	"makermate/internal/utils"
)

// decodeBody decodes a JSON request body; an empty body leaves v untouched
func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// handleHLDDraft handles POST /api/sa/hld-draft
func (d *Dependencies) handleHLDDraft(w http.ResponseWriter, r *http.Request) {
	var req solution.HLDRequest
	if err := decodeBody(r, &req); err != nil {
		utils.RespondWithErrorDetail(w, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	draft, err := solution.DraftHLD(req)
	if errors.Is(err, solution.ErrMissingBrief) {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing brief")
		return
	}
	if err != nil {
		utils.RespondWithErrorDetail(w, http.StatusInternalServerError, "Server error", err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, draft)
}

// handleERDDraft handles POST /api/sa/erd-draft
func (d *Dependencies) handleERDDraft(w http.ResponseWriter, r *http.Request) {
	var req solution.ERDRequest
	if err := decodeBody(r, &req); err != nil {
		utils.RespondWithErrorDetail(w, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	draft, err := solution.DraftERD(req)
	if errors.Is(err, solution.ErrMissingDescription) {
		utils.RespondWithError(w, http.StatusBadRequest, "Missing description")
		return
	}
	if err != nil {
		utils.RespondWithErrorDetail(w, http.StatusInternalServerError, "Server error", err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, draft)
}

// handleGenerateOptions handles POST /api/sa/generate-options
func (d *Dependencies) handleGenerateOptions(w http.ResponseWriter, r *http.Request) {
	var req solution.GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		utils.RespondWithErrorDetail(w, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}

	items, err := d.Options.GenerateOptions(r.Context(), req)
	switch {
	case errors.Is(err, solution.ErrNoRequirements):
		utils.RespondWithError(w, http.StatusBadRequest, "Missing requirements[]")
	case errors.Is(err, solution.ErrNoAPIKey):
		utils.RespondWithError(w, http.StatusUnauthorized, "Missing API key")
	case err != nil:
		utils.RespondWithErrorDetail(w, http.StatusInternalServerError, "Server error", err.Error())
	default:
		utils.RespondWithJSON(w, http.StatusOK, items)
	}
}

// handleGenerateTripleOptions handles POST /api/sa/generate-triple-options.
// Every requirement yields an item; upstream trouble degrades to the mock.
func (d *Dependencies) handleGenerateTripleOptions(w http.ResponseWriter, r *http.Request) {
	var req solution.GenerateRequest
	if err := decodeBody(r, &req); err != nil {
		utils.RespondWithErrorDetail(w, http.StatusBadRequest, "Invalid request payload", err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, d.Options.GenerateTripleOptions(r.Context(), req))
}
