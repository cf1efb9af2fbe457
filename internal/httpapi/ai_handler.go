package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"makermate/internal/discovery"
	"makermate/internal/utils"
)

// handleDiscover handles GET /api/ai/discover. The aggregated catalog is
// cached; discovery never fails, it degrades to the fallback payload.
func (d *Dependencies) handleDiscover(w http.ResponseWriter, r *http.Request) {
	if cached, ok := d.discovered.Get(discoverCacheKey); ok {
		utils.RespondWithJSON(w, http.StatusOK, cached)
		return
	}

	resp := d.Catalog.Discover(r.Context())
	if r.Context().Err() == nil {
		d.discovered.Set(discoverCacheKey, resp)
	}
	utils.RespondWithJSON(w, http.StatusOK, resp)
}

// handleListModels handles POST /api/ai/list-models
func (d *Dependencies) handleListModels(w http.ResponseWriter, r *http.Request) {
	var req discovery.ListModelsRequest
	if err := decodeBody(r, &req); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}
	if strings.TrimSpace(req.Provider) == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "provider is required")
		return
	}

	models, err := d.Catalog.ListModels(r.Context(), req.Provider, req.APIKey)
	switch {
	case errors.Is(err, discovery.ErrUnknownProvider):
		models = []discovery.ListedModel{}
	case err != nil:
		utils.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, discovery.ListModelsResponse{Models: models})
}
