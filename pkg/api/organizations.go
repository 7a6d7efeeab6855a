package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tenancy/pkg/httputil"
	"github.com/platinummonkey/tenancy/pkg/middleware"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/orgs"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// OrganizationHandlers handles organization and branch requests
type OrganizationHandlers struct {
	organizations *orgs.OrganizationService
	branches      *orgs.BranchService
	guard         guard
}

func NewOrganizationHandlers(organizations *orgs.OrganizationService, branches *orgs.BranchService, g guard) *OrganizationHandlers {
	return &OrganizationHandlers{
		organizations: organizations,
		branches:      branches,
		guard:         g,
	}
}

// RegisterRoutes registers organization and branch routes
func (h *OrganizationHandlers) RegisterRoutes(router *mux.Router) {
	g := h.guard
	router.Handle("/organizations", g.user(h.CreateOrganization)).Methods(http.MethodPost)
	router.Handle("/organizations", g.user(h.ListOrganizations)).Methods(http.MethodGet)
	router.Handle("/organizations/{id}", g.user(h.GetOrganization)).Methods(http.MethodGet)
	router.Handle("/organizations/{id}", g.user(h.PatchOrganization)).Methods(http.MethodPatch)
	router.Handle("/organizations/{id}", g.user(h.DeleteOrganization)).Methods(http.MethodDelete)

	router.Handle("/branches", g.scoped(false, h.CreateBranch)).Methods(http.MethodPost)
	router.Handle("/branches", g.user(h.ListBranches)).Methods(http.MethodGet)
	router.Handle("/branches/{id}", g.user(h.GetBranch)).Methods(http.MethodGet)
	router.Handle("/branches/{id}", g.user(h.PatchBranch)).Methods(http.MethodPatch)
	router.Handle("/branches/{id}", g.user(h.DeleteBranch)).Methods(http.MethodDelete)
}

// CreateOrganization makes the caller the owner of a new organization and
// its main branch
func (h *OrganizationHandlers) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var req orgs.CreateOrganizationRequest
	if !decode(w, r, &req) {
		return
	}
	org, err := h.organizations.Create(r.Context(), userID, req)
	respond(w, r, http.StatusCreated, org, err)
}

func (h *OrganizationHandlers) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	page, filter, err := listParams(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	result, err := h.organizations.List(r.Context(), userID, storage.OrganizationQuery{PageParams: page, Filter: filter})
	respond(w, r, http.StatusOK, result, err)
}

func (h *OrganizationHandlers) GetOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	org, err := h.organizations.Get(r.Context(), userID, httputil.PathVar(r, "id"))
	respond(w, r, http.StatusOK, org, err)
}

func (h *OrganizationHandlers) PatchOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var patch models.OrganizationPatch
	if !decode(w, r, &patch) {
		return
	}
	org, err := h.organizations.Patch(r.Context(), userID, httputil.PathVar(r, "id"), patch)
	respond(w, r, http.StatusOK, org, err)
}

// DeleteOrganization answers once the organization row is gone; failed
// cascade steps are logged by the service
func (h *OrganizationHandlers) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	_, err := h.organizations.Delete(r.Context(), userID, httputil.PathVar(r, "id"))
	respondDeleted(w, r, err)
}

// CreateBranch adds a branch to the organization named by X-Organization-ID
func (h *OrganizationHandlers) CreateBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var req orgs.CreateBranchRequest
	if !decode(w, r, &req) {
		return
	}
	branch, err := h.branches.Create(r.Context(), userID, scopeOf(r).OrganizationID, req)
	respond(w, r, http.StatusCreated, branch, err)
}

// ListBranches narrows to one organization when organization_id or the
// organization header is given
func (h *OrganizationHandlers) ListBranches(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	page, filter, err := listParams(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	q := storage.BranchQuery{PageParams: page, Filter: filter, OrganizationID: query(r, "organization_id")}
	if q.OrganizationID == "" {
		q.OrganizationID = r.Header.Get(middleware.OrganizationHeader)
	}
	result, err := h.branches.List(r.Context(), userID, q)
	respond(w, r, http.StatusOK, result, err)
}

func (h *OrganizationHandlers) GetBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	branch, err := h.branches.Get(r.Context(), userID, httputil.PathVar(r, "id"))
	respond(w, r, http.StatusOK, branch, err)
}

func (h *OrganizationHandlers) PatchBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var patch models.BranchPatch
	if !decode(w, r, &patch) {
		return
	}
	branch, err := h.branches.Patch(r.Context(), userID, httputil.PathVar(r, "id"), patch)
	respond(w, r, http.StatusOK, branch, err)
}

func (h *OrganizationHandlers) DeleteBranch(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	_, err := h.branches.Delete(r.Context(), userID, httputil.PathVar(r, "id"))
	respondDeleted(w, r, err)
}
