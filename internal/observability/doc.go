// Package observability provides the event log, derived run metrics, and the
// optional Slack notifier for integration failures. Everything here is
// best-effort: a run never fails because an event could not be recorded or an
// alert could not be delivered.
package observability
