// Package cli implements the tenancy-admin command.
//
// # Commands
//
// signup-superadmin: bootstrap the single SuperAdmin
//
//	TENANCY_ADMIN_PASSWORD=... tenancy-admin signup-superadmin --phone +15550000000
//
// create-admin: add an administrator
//
//	tenancy-admin create-admin --phone +15550000001 --password ... --role Admin
//
// merge-admin: change the phone number or role of an existing administrator
//
//	tenancy-admin merge-admin --phone +15550000001 --role SuperAdmin
//
// migrate: apply the database schema
//
//	tenancy-admin migrate
//
// The database and the other settings come from the same configuration file
// and environment as the server.
package cli
