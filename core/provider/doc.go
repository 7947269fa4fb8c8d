// Package provider keeps a repository partition in sync with a source and pushes
// incremental change-lists to observers.
//
// # Rounds
//
// A reconciliation round is a task graph run on the shared scheduler:
//
//	fetch source ─┐
//	              ├─> diff ─> persist ─> notify
//	fetch cache  ─┘
//
// A provider has at most one round waiting to start. Requests made while a round is
// running queue one follow-up round whose fetches depend on the running round's
// persist step; requests made before that follow-up started fetching join it. The
// join handle returned by Refresh completes once observers were notified.
//
// # Observers
//
// Observers register under a caller supplied Token. The context passed to AddObserver
// is the lifetime of the registration: once it is done the registration is dropped on
// the next mutation of the registry. Every registration first receives a snapshot of
// the cache as a list of inserts, then the change-lists of later rounds. Rounds that
// fail are reported only to observers with AlwaysNotifyOnRefresh; the provider keeps
// the last failure available through LastError.
//
// Callbacks run on the observer's Executor, by default a serial queue per registration.
//
// # Variants
//
// SingleProvider tracks one fixed identifier. StreamProvider loads a bounded window of
// history on first subscription and forwards storage change events as they commit.
package provider
