// Package resolution drives a request from its free-text ask to a
// delivered asset. It owns every request mutation: automatic exact-match
// fulfillment, interactive browsing, the confirmation hold for non-main
// content, voting, cancellation, and provider binding. Concurrent
// invocations are serialized by optimistic status re-checks inside the
// store, never by locks held across operations.
package resolution
