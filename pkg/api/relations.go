package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tenancy/pkg/httputil"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/relations"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// RelationHandlers handles membership requests. Mutations act inside the
// scope named by X-Organization-ID and X-Branch-ID.
type RelationHandlers struct {
	relations *relations.Service
	guard     guard
}

func NewRelationHandlers(service *relations.Service, g guard) *RelationHandlers {
	return &RelationHandlers{relations: service, guard: g}
}

// RegisterRoutes registers relation routes. Fixed paths come before
// /relations/{id}.
func (h *RelationHandlers) RegisterRoutes(router *mux.Router) {
	g := h.guard
	router.Handle("/relations", g.user(h.List)).Methods(http.MethodGet)
	router.Handle("/relations/mine", g.user(h.ListMine)).Methods(http.MethodGet)
	router.Handle("/relations/request-join", g.scoped(true, h.RequestJoin)).Methods(http.MethodPost)
	router.Handle("/relations/invite", g.scoped(true, h.Invite)).Methods(http.MethodPost)
	router.Handle("/relations/invite/{id}", g.scoped(true, h.PatchInvitation)).Methods(http.MethodPatch)
	router.Handle("/relations/{id}", g.user(h.Get)).Methods(http.MethodGet)
	router.Handle("/relations/{id}", g.scoped(true, h.Patch)).Methods(http.MethodPatch)
	router.Handle("/relations/{id}", g.scoped(true, h.Delete)).Methods(http.MethodDelete)
}

// List filters by organization_id, branch_id, user_id, role and
// relation_type. Unknown enum values are rejected.
func (h *RelationHandlers) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	q, err := relationQuery(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	result, err := h.relations.List(r.Context(), userID, q)
	respond(w, r, http.StatusOK, result, err)
}

func relationQuery(r *http.Request) (storage.RelationQuery, error) {
	page, filter, err := listParams(r)
	if err != nil {
		return storage.RelationQuery{}, err
	}
	q := storage.RelationQuery{
		PageParams:     page,
		Filter:         filter,
		OrganizationID: query(r, "organization_id"),
		BranchID:       query(r, "branch_id"),
		UserID:         query(r, "user_id"),
	}
	if raw := query(r, "role"); raw != "" {
		role, err := models.ParseRole(raw)
		if err != nil {
			return q, err
		}
		q.Role = &role
	}
	if raw := query(r, "relation_type"); raw != "" {
		rt, err := models.ParseRelationType(raw)
		if err != nil {
			return q, err
		}
		q.RelationType = &rt
	}
	return q, nil
}

func (h *RelationHandlers) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	rels, err := h.relations.ListMyRelations(r.Context(), userID)
	respond(w, r, http.StatusOK, rels, err)
}

func (h *RelationHandlers) RequestJoin(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	rel, err := h.relations.RequestJoinToBranch(r.Context(), userID, scopeOf(r))
	respond(w, r, http.StatusCreated, rel, err)
}

func (h *RelationHandlers) Invite(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var req relations.InviteRequest
	if !decode(w, r, &req) {
		return
	}
	rel, err := h.relations.InviteToBranch(r.Context(), userID, scopeOf(r), req)
	respond(w, r, http.StatusCreated, rel, err)
}

func (h *RelationHandlers) PatchInvitation(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var patch relations.InvitationPatch
	if !decode(w, r, &patch) {
		return
	}
	rel, err := h.relations.PatchInvitationToBranch(r.Context(), userID, scopeOf(r), httputil.PathVar(r, "id"), patch)
	respond(w, r, http.StatusOK, rel, err)
}

func (h *RelationHandlers) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	rel, err := h.relations.Get(r.Context(), userID, httputil.PathVar(r, "id"))
	respond(w, r, http.StatusOK, rel, err)
}

func (h *RelationHandlers) Patch(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var req relations.PatchRequest
	if !decode(w, r, &req) {
		return
	}
	rel, err := h.relations.Patch(r.Context(), userID, scopeOf(r), httputil.PathVar(r, "id"), req)
	respond(w, r, http.StatusOK, rel, err)
}

func (h *RelationHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	respondDeleted(w, r, h.relations.Delete(r.Context(), userID, scopeOf(r), httputil.PathVar(r, "id")))
}
