package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tenancy/pkg/apperr"
	"github.com/platinummonkey/tenancy/pkg/httputil"
	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/storage"
	"github.com/platinummonkey/tenancy/pkg/users"
)

// avatarField is the multipart field carrying the image
const avatarField = "image"

// UserHandlers handles user account requests
type UserHandlers struct {
	users *users.Service
	guard guard
}

func NewUserHandlers(service *users.Service, g guard) *UserHandlers {
	return &UserHandlers{users: service, guard: g}
}

// RegisterRoutes registers user routes. /users/me is registered before
// /users/{id} so "me" never reaches the id route.
func (h *UserHandlers) RegisterRoutes(router *mux.Router) {
	g := h.guard
	router.Handle("/users/signup", g.limited("signup", http.HandlerFunc(h.Signup))).Methods(http.MethodPost)
	router.Handle("/users/signin", g.limited("signin", http.HandlerFunc(h.Signin))).Methods(http.MethodPost)
	router.Handle("/users/reset-password", g.limited("reset", http.HandlerFunc(h.ResetPassword))).Methods(http.MethodPost)

	router.Handle("/users/me/password", g.user(h.ChangePassword)).Methods(http.MethodPut)
	router.Handle("/users/me/image", g.user(h.UploadAvatar)).Methods(http.MethodPut).Name(avatarRoute)
	router.Handle("/users/me", g.user(h.Me)).Methods(http.MethodGet)
	router.Handle("/users/me", g.user(h.PatchMe)).Methods(http.MethodPatch)
	router.Handle("/users/me", g.user(h.DeleteMe)).Methods(http.MethodDelete)

	router.Handle("/users", g.user(h.Create)).Methods(http.MethodPost)
	router.Handle("/users", g.user(h.List)).Methods(http.MethodGet)
	router.Handle("/users/{id}", g.user(h.Get)).Methods(http.MethodGet)
}

func (h *UserHandlers) Signup(w http.ResponseWriter, r *http.Request) {
	var req users.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	token, err := h.users.Signup(r.Context(), req)
	respond(w, r, http.StatusCreated, token, err)
}

func (h *UserHandlers) Signin(w http.ResponseWriter, r *http.Request) {
	var req users.SigninRequest
	if !decode(w, r, &req) {
		return
	}
	token, err := h.users.Signin(r.Context(), req)
	respond(w, r, http.StatusOK, token, err)
}

// ResetPassword texts a fresh password to the account's phone number
func (h *UserHandlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req users.ResetPasswordRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.users.ResetPassword(r.Context(), req)
	respond(w, r, http.StatusOK, map[string]string{"message": "Password reset"}, err)
}

func (h *UserHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var req users.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	err := h.users.ChangePassword(r.Context(), userID, req)
	respond(w, r, http.StatusOK, map[string]string{"message": "Password changed"}, err)
}

func (h *UserHandlers) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	user, err := h.users.Me(r.Context(), userID)
	respond(w, r, http.StatusOK, user, err)
}

func (h *UserHandlers) PatchMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var patch models.UserPatch
	if !decode(w, r, &patch) {
		return
	}
	user, err := h.users.PatchMe(r.Context(), userID, patch)
	respond(w, r, http.StatusOK, user, err)
}

func (h *UserHandlers) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	_, err := h.users.DeleteMe(r.Context(), userID)
	respondDeleted(w, r, err)
}

// UploadAvatar expects a multipart form with the image in the "image" field
func (h *UserHandlers) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}

	file, header, err := r.FormFile(avatarField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.WriteError(w, r, apperr.Validation("Image is too large"))
			return
		}
		httputil.WriteError(w, r, apperr.Validation("Image file is required"))
		return
	}
	defer file.Close()

	user, err := h.users.UploadAvatar(r.Context(), userID, file, header.Header.Get("Content-Type"))
	respond(w, r, http.StatusOK, user, err)
}

func (h *UserHandlers) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	var req users.SignupRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.users.Create(r.Context(), actorID, req)
	respond(w, r, http.StatusCreated, user, err)
}

func (h *UserHandlers) List(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	page, filter, err := listParams(r)
	if err != nil {
		httputil.WriteError(w, r, err)
		return
	}
	result, err := h.users.List(r.Context(), actorID, storage.UserQuery{PageParams: page, Filter: filter})
	respond(w, r, http.StatusOK, result, err)
}

func (h *UserHandlers) Get(w http.ResponseWriter, r *http.Request) {
	actorID, ok := subject(w, r)
	if !ok {
		return
	}
	user, err := h.users.Get(r.Context(), actorID, httputil.PathVar(r, "id"))
	respond(w, r, http.StatusOK, user, err)
}
