// Package auth provides the identity primitives: HS256 access tokens and
// argon2id password hashes.
//
// # Tokens
//
// Tokens carry the registered claims sub, exp, iat and aud. The audience is
// either "user" or "admin" and Verify rejects a token presented to the other
// identity space:
//
//	tm := auth.NewTokenManager(cfg.Auth.SecretKey, cfg.Auth.TokenTTL)
//	token, err := tm.Generate(user.ID, auth.AudienceUser)
//	...
//	ac, err := tm.Verify(r.Header.Get("Authorization"), auth.AudienceUser)
//
// # Passwords
//
// Hashes use the PHC string format so cost parameters can change without
// invalidating stored hashes:
//
//	$argon2id$v=19$m=65536,t=3,p=2$<salt>$<key>
package auth
