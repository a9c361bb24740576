// Package api exposes the services as a JSON REST API on a chi router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/billo/billo/internal/auth"
	"github.com/billo/billo/internal/metrics"
	"github.com/billo/billo/internal/middleware"
	"github.com/billo/billo/internal/service"
)

// Deps are the collaborators behind the routes.
type Deps struct {
	Assignments *service.AssignmentService
	Settlements *service.SettlementService
	Receipts    *service.ReceiptService
	Groups      *service.GroupService
	Users       *service.UserService

	JWT     *auth.JWTManager
	Metrics *metrics.Metrics

	// Gatherer backs GET /metrics. Nil disables the route.
	Gatherer prometheus.Gatherer

	CORSOrigins []string
}

// Handler holds the services used by the HTTP handlers.
type Handler struct {
	assignments *service.AssignmentService
	settlements *service.SettlementService
	receipts    *service.ReceiptService
	groups      *service.GroupService
	users       *service.UserService
}

// NewRouter builds the full route tree.
func NewRouter(d Deps) http.Handler {
	h := &Handler{
		assignments: d.Assignments,
		settlements: d.Settlements,
		receipts:    d.Receipts,
		groups:      d.Groups,
		users:       d.Users,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.RequestLogger(d.Metrics))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(d.CORSOrigins))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.JWT))

		r.Route("/users/me", func(r chi.Router) {
			r.Put("/", h.SyncMe)
			r.Patch("/preferences", h.UpdatePreferences)
		})

		r.Route("/groups", func(r chi.Router) {
			r.Post("/", h.CreateGroup)
			r.Get("/{id}", h.GetGroup)
			r.Post("/{id}/members", h.AddGroupMember)
		})

		r.Route("/receipts", func(r chi.Router) {
			r.Post("/", h.CreateReceipt)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetReceipt)

				r.Post("/assignments", h.SaveAssignments)
				r.Get("/assignments", h.GetAssignments)
				r.Delete("/assignments", h.ClearAssignments)
				r.Post("/split/preview", h.PreviewSplit)

				r.Get("/settlements", h.ResplitStatus)
				r.Post("/settlements", h.GenerateSettlements)
			})
		})

		r.Route("/settlements", func(r chi.Router) {
			r.Post("/", h.CreateSettlement)
			r.Get("/", h.ListSettlements)
			r.Get("/{id}", h.GetSettlement)
			r.Patch("/{id}", h.UpdateSettlement)
			r.Delete("/{id}", h.DeleteSettlement)
		})
	})

	return r
}
