// Package httputil holds the request and response plumbing shared by every
// handler.
//
// Errors are rendered as {message, status_code} with the status taken from
// the apperr kind:
//
//	if err != nil {
//		httputil.WriteError(w, r, err)
//		return
//	}
//	httputil.WriteSuccess(w, org)
//
// List handlers read paging and time-range filters in one place:
//
//	page, err := httputil.ParsePageParams(r)
//	filter, err := httputil.ParseFilter(r)
//
// The middleware here is transport-level only. Authentication and scope
// headers live in pkg/middleware.
package httputil
