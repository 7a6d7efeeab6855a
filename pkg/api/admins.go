package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tenancy/pkg/admins"
	"github.com/platinummonkey/tenancy/pkg/httputil"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

// AdminHandlers handles administrator requests. Every route except signin
// and reset requires an admin token.
type AdminHandlers struct {
	admins *admins.Service
	guard  guard
}

func NewAdminHandlers(service *admins.Service, g guard) *AdminHandlers {
	return &AdminHandlers{admins: service, guard: g}
}

// RegisterRoutes registers admin routes
func (h *AdminHandlers) RegisterRoutes(router *mux.Router) {
	g := h.guard
	router.Handle("/admins/signin", g.limited("admin_signin", http.HandlerFunc(h.Signin))).Methods(http.MethodPost)
	router.Handle("/admins/reset-password", g.limited("admin_reset", http.HandlerFunc(h.ResetPassword))).Methods(http.MethodPost)
	router.Handle("/admins/me", g.admin(h.Me)).Methods(http.MethodGet)

	router.Handle("/admins", g.admin(h.Create)).Methods(http.MethodPost)
	router.Handle("/admins", g.admin(h.List)).Methods(http.MethodGet)
	router.Handle("/admins/{id}/password", g.admin(h.ChangePassword)).Methods(http.MethodPut)
	router.Handle("/admins/{id}", g.admin(h.Get)).Methods(http.MethodGet)
	router.Handle("/admins/{id}", g.admin(h.Patch)).Methods(http.MethodPatch)
	router.Handle("/admins/{id}", g.admin(h.Delete)).Methods(http.MethodDelete)
}

func (h *AdminHandlers) Signin(w http.ResponseWriter, r *http.Request) {
	var req admins.SigninRequest
	if !decode(w, r, &req) {
		return
	}
	token, err := h.admins.Signin(r.Context(), req)
	respond(w, r, http.StatusOK, token, err)
}

func (h *AdminHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req admins.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.admins.ResetPassword(r.Context(), req)
	respond(w, r, http.StatusOK, map[string]string{"message": "Password reset"}, err)
}

func (h *AdminHandlers) Me(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	admin, err := h.admins.Me(r.Context(), actorID)
	respond(w, r, http.StatusOK, admin, err)
}

func (h *AdminHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	var req admins.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.admins.ChangePassword(r.Context(), actorID, httputil.PathVar(r, "id"), req)
	respond(w, r, http.StatusOK, map[string]string{"message": "Password changed"}, err)
}

func (h *AdminHandlers) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	var req admins.CreateRequest
	if !decode(w, r, &req) {
		return
	}
	admin, err := h.admins.Create(r.Context(), actorID, req)
	respond(w, r, http.StatusCreated, admin, err)
}

// List accepts an optional role filter
func (h *AdminHandlers) List(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	page, filter, err := listParams(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	q := storage.AdminQuery{PageParams: page, Filter: filter}
	if raw := query(r, "role"); raw != "" {
		role, err := models.ParseAdminRole(raw)
		if err != nil {
			httputil.WriteError(w, r, err)
			return
		}
		q.Role = &role
	}
	result, err := h.admins.List(r.Context(), actorID, q)
	respond(w, r, http.StatusOK, result, err)
}

func (h *AdminHandlers) Get(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	admin, err := h.admins.Get(r.Context(), actorID, httputil.PathVar(r, "id"))
	respond(w, r, http.StatusOK, admin, err)
}

func (h *AdminHandlers) Patch(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	var patch models.AdminPatch
	if !decode(w, r, &patch) {
		return
	}
	admin, err := h.admins.Patch(r.Context(), actorID, httputil.PathVar(r, "id"), patch)
	respond(w, r, http.StatusOK, admin, err)
}

func (h *AdminHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	respondDeleted(w, r, h.admins.Delete(r.Context(), actorID, httputil.PathVar(r, "id")))
}
