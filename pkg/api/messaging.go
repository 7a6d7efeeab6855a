package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/tenancy/pkg/httputil"
	"github.com/platinummonkey/tenancy/pkg/messaging"
	"github.com/platinummonkey/tenancy/pkg/models"
)

// MessagingHandlers handles telegram groups and push registrations
type MessagingHandlers struct {
	telegram      *messaging.TelegramGroupService
	fcm           *messaging.FCMSubscriptionService
	subscriptions *messaging.SubscriptionService
	guard         guard
}

func NewMessagingHandlers(telegram *messaging.TelegramGroupService, fcm *messaging.FCMSubscriptionService,
	subscriptions *messaging.SubscriptionService, g guard) *MessagingHandlers {
	return &MessagingHandlers{
		telegram:      telegram,
		fcm:           fcm,
		subscriptions: subscriptions,
		guard:         g,
	}
}

// RegisterRoutes registers telegram group and push subscription routes
func (h *MessagingHandlers) RegisterRoutes(router *mux.Router) {
	g := h.guard
	router.Handle("/telegram-groups", g.scoped(true, h.CreateTelegramGroup)).Methods(http.MethodPost)
	router.Handle("/telegram-groups", g.scoped(false, h.ListTelegramGroups)).Methods(http.MethodGet)
	router.Handle("/telegram-groups/{id}", g.scoped(true, h.GetTelegramGroup)).Methods(http.MethodGet)
	router.Handle("/telegram-groups/{id}", g.scoped(true, h.PatchTelegramGroup)).Methods(http.MethodPatch)
	router.Handle("/telegram-groups/{id}", g.scoped(true, h.DeleteTelegramGroup)).Methods(http.MethodDelete)

	router.Handle("/fcm-subscriptions", g.scoped(true, h.CreateFCMSubscription)).Methods(http.MethodPost)
	router.Handle("/fcm-subscriptions", g.user(h.ListFCMSubscriptions)).Methods(http.MethodGet)
	router.Handle("/fcm-subscriptions/{id}", g.user(h.DeleteFCMSubscription)).Methods(http.MethodDelete)

	router.Handle("/subscriptions", g.scoped(true, h.CreateSubscription)).Methods(http.MethodPost)
	router.Handle("/subscriptions", g.user(h.ListSubscriptions)).Methods(http.MethodGet)
	router.Handle("/subscriptions/{id}", g.user(h.DeleteSubscription)).Methods(http.MethodDelete)
}

func (h *MessagingHandlers) CreateTelegramGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var req messaging.CreateTelegramGroupRequest
	if !decode(w, r, &req) {
		return
	}
	group, err := h.telegram.Create(r.Context(), userID, scopeOf(r), req)
	respond(w, r, http.StatusCreated, group, err)
}

// ListTelegramGroups lists every group of the header organization
func (h *MessagingHandlers) ListTelegramGroups(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	groups, err := h.telegram.List(r.Context(), userID, scopeOf(r).OrganizationID)
	respond(w, r, http.StatusOK, groups, err)
}

func (h *MessagingHandlers) GetTelegramGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	group, err := h.telegram.Get(r.Context(), userID, scopeOf(r), httputil.PathVar(r, "id"))
	respond(w, r, http.StatusOK, group, err)
}

func (h *MessagingHandlers) PatchTelegramGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var patch models.TelegramGroupPatch
	if !decode(w, r, &patch) {
		return
	}
	group, err := h.telegram.Patch(r.Context(), userID, scopeOf(r), httputil.PathVar(r, "id"), patch)
	respond(w, r, http.StatusOK, group, err)
}

func (h *MessagingHandlers) DeleteTelegramGroup(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	respondDeleted(w, r, h.telegram.Delete(r.Context(), userID, scopeOf(r), httputil.PathVar(r, "id")))
}

func (h *MessagingHandlers) CreateFCMSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var req messaging.CreateFCMSubscriptionRequest
	if !decode(w, r, &req) {
		return
	}
	sub, err := h.fcm.Create(r.Context(), userID, scopeOf(r), req)
	respond(w, r, http.StatusCreated, sub, err)
}

func (h *MessagingHandlers) ListFCMSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	subs, err := h.fcm.ListMine(r.Context(), userID)
	respond(w, r, http.StatusOK, subs, err)
}

func (h *MessagingHandlers) DeleteFCMSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	respondDeleted(w, r, h.fcm.DeleteOwn(r.Context(), userID, httputil.PathVar(r, "id")))
}

func (h *MessagingHandlers) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	var req messaging.CreateSubscriptionRequest
	if !decode(w, r, &req) {
		return
	}
	sub, err := h.subscriptions.Create(r.Context(), userID, scopeOf(r), req)
	respond(w, r, http.StatusCreated, sub, err)
}

func (h *MessagingHandlers) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	subs, err := h.subscriptions.ListMine(r.Context(), userID)
	respond(w, r, http.StatusOK, subs, err)
}

func (h *MessagingHandlers) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	userID, ok := subject(w, r)
	if !ok {
		return
	}
	respondDeleted(w, r, h.subscriptions.DeleteOwn(r.Context(), userID, httputil.PathVar(r, "id")))
}
