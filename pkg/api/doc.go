// Package api exposes the tenancy services over HTTP.
//
// Routes live under /api/v1 and are grouped into handler types that
// register themselves on a gorilla/mux router:
//
//	srv := api.NewServer(services, api.Options{Tokens: tokens, Metrics: metrics, Health: health})
//	http.ListenAndServe(":8080", srv)
//
// User routes accept tokens with the "user" audience and admin routes the
// "admin" audience. Routes acting inside a tenant read X-Organization-ID and
// X-Branch-ID and answer 406 when they are missing.
package api
