package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/ukydev/fleet-rental/internal/errs"
	"github.com/ukydev/fleet-rental/internal/models"
	"github.com/ukydev/fleet-rental/internal/reports"
)

// reportQuery reads the shared report parameters: from, to, branch_id and currency.
func reportQuery(r *http.Request, typ reports.Type) (reports.Query, error) {
	q := r.URL.Query()
	out := reports.Query{
		Type:      typ,
		BranchIDs: list(q, "branch_id"),
		Currency:  models.Currency(strings.ToUpper(q.Get("currency"))),
	}
	from, err := timeParam(q, "from", false)
	if err != nil {
		return out, err
	}
	to, err := timeParam(q, "to", true)
	if err != nil {
		return out, err
	}
	if from != nil {
		out.From = *from
	}
	if to != nil {
		out.To = *to
	}
	return out, nil
}

// Report handles GET /api/reports?type= and GET /api/reports/{type}.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	typ := chi.URLParam(r, "type")
	if typ == "" {
		typ = r.URL.Query().Get("type")
	}
	if typ == "" {
		h.fail(w, r, errs.Validation("report type is required"))
		return
	}
	q, err := reportQuery(r, reports.Type(typ))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.reporter.Run(r.Context(), actorOf(r), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, out)
}

// Dashboard handles GET /api/dashboards.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	q, err := reportQuery(r, "")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out, err := h.reporter.Dashboard(r.Context(), actorOf(r), q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, out)
}
