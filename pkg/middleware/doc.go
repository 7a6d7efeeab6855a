// Package middleware holds the request-scoped gates in front of the
// handlers: bearer authentication, tenant scope headers and rate limiting.
//
//	users := middleware.NewAuthenticator(tokens, auth.AudienceUser)
//	r.Handle("/branches", users.Handler(middleware.RequireScope(false)(h)))
//
// Credential endpoints are limited per client address, in Redis when it is
// configured and in a bounded in-memory LRU otherwise:
//
//	limiter := middleware.NewDistributedRateLimiter(rdb, cfg, "ratelimit:signin")
//	r.Handle("/users/signin", middleware.RateLimit("signin", limiter, metrics)(h))
package middleware
