// Package events publishes fire-and-forget request lifecycle notifications
// to an optional webhook for external dashboards. Emission failures are
// logged by callers and never surface to users.
package events
