package httpapi

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"makermate/internal/estimating"
	"makermate/internal/logging"
	"makermate/internal/reference"
	"makermate/internal/utils"
)

// RoadmapResponse is the body of GET /api/roadmap
type RoadmapResponse struct {
	Items              []reference.AnnotatedItem `json:"items"`
	Warning            string                    `json:"warning,omitempty"`
	NotifyWindowMonths int                       `json:"notifyWindowMonths"`
}

// EstimatingResponse is the body of GET /api/estimating
type EstimatingResponse struct {
	PlanningItems []estimating.PlanItem        `json:"planningItems"`
	Licensing     *estimating.LicensingDataset `json:"licensing"`
	TotalHours    float64                      `json:"totalHours"`
	Totals        []estimating.Total           `json:"totals"`
}

func summarize(st estimating.State) *EstimatingResponse {
	return &EstimatingResponse{
		PlanningItems: st.PlanningItems,
		Licensing:     st.Licensing,
		TotalHours:    estimating.TotalHours(st.PlanningItems, estimating.DefaultHours()),
		Totals:        estimating.Totals(st.PlanningItems),
	}
}

// followEstimating keeps the served summary current with every change
func (d *Dependencies) followEstimating() {
	if d.unsubscribe != nil {
		return
	}
	d.planSummary.Store(summarize(d.Estimating.State()))
	d.unsubscribe = d.Estimating.Subscribe(func(st estimating.State) {
		d.planSummary.Store(summarize(st))
	})
}

// Start runs the roadmap refresher and follows estimating changes made by
// other hosts sharing the store. Both stop on Shutdown or when ctx is done.
func (d *Dependencies) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return d.Roadmap.Run(gctx) })
	g.Go(func() error { return d.Estimating.Sync(gctx) })

	d.stopWorkers = func() error {
		cancel()
		return g.Wait()
	}
	logging.Infof("Background workers started (roadmap refresh every %s)", reference.DefaultRefreshInterval)
}

func (d *Dependencies) handleRoadmap(w http.ResponseWriter, r *http.Request) {
	items, warning := d.Roadmap.Items()
	if items == nil {
		items, warning = d.Roadmap.Load(r.Context())
	}

	q := r.URL.Query()
	window := reference.NotifyWindow(r.Context(), d.Store)
	utils.RespondWithJSON(w, http.StatusOK, RoadmapResponse{
		Items:              reference.Annotate(reference.FilterRoadmap(items, q.Get("query"), q.Get("area")), time.Now(), window),
		Warning:            warning,
		NotifyWindowMonths: window,
	})
}

func (d *Dependencies) handleEstimating(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, http.StatusOK, d.planSummary.Load())
}
