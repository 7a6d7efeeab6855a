// Package users manages end-user accounts: signup and signin, password
// changes and SMS resets, the caller's own profile and avatar, and account
// deletion with its cascade.
package users
