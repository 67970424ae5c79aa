// Package delivery transports a resolved asset to the requester and
// finalizes the request. The asset file goes out first, then a JSON
// summary artifact on a best-effort basis; only after a successful
// transport does the request move to completed. Every failure before that
// point leaves the request untouched so the resolution can be retried.
package delivery
