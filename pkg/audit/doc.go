// Package audit records who did what to which tenant resource.
//
// Services write one event per mutation and per permission denial:
//
//	auditLog.Log(ctx, audit.NewEvent(ctx, audit.EventTypeDataDelete,
//		audit.EventStatusSuccess, audit.ResourceTypeBranch, id).
//		WithScope(orgID, id))
//
// LogrusLogger writes JSON lines to stdout or an append-only file;
// MultiLogger fans out to several destinations.
package audit
