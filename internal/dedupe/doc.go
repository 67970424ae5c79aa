// Package dedupe implements the inbound idempotency guard: a bounded,
// timestamped cache keyed by (command, origin scope, requester, message id)
// that drops re-deliveries of the same event inside a short window.
package dedupe
