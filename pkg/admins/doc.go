// Package admins manages operator accounts. Admin tokens carry the "admin"
// audience and are never accepted on user routes.
//
// The SuperAdmin is bootstrapped from the command line with
// SignupSuperAdmin and is the only account allowed to list or create
// administrators. An Admin may view and change only itself.
package admins
