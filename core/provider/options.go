package provider

import (
	"fmt"
	"strings"
)

// Trigger is a set of events that start a reconciliation round.
type Trigger uint8

const (
	TriggerInit Trigger = 1 << iota
	TriggerFetchByID
	TriggerFetchPage
	TriggerAddObserver
	TriggerRemoveObserver
)

const (
	TriggerNone Trigger = 0
	TriggerAll          = TriggerInit | TriggerFetchByID | TriggerFetchPage | TriggerAddObserver | TriggerRemoveObserver
)

var triggerNames = []struct {
	t    Trigger
	name string
}{
	{TriggerInit, "init"},
	{TriggerFetchByID, "fetch_by_id"},
	{TriggerFetchPage, "fetch_page"},
	{TriggerAddObserver, "add_observer"},
	{TriggerRemoveObserver, "remove_observer"},
}

// Has reports whether every bit of o is set.
func (t Trigger) Has(o Trigger) bool {
	return t&o == o && o != 0
}

func (t Trigger) String() string {
	var parts []string
	for _, n := range triggerNames {
		if t.Has(n.t) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ParseTriggers builds a trigger set from names such as "init" or "add_observer".
// "all" and "none" are accepted too.
func ParseTriggers(names []string) (Trigger, error) {
	var t Trigger
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		switch name {
		case "":
			continue
		case "all":
			t |= TriggerAll
			continue
		case "none":
			continue
		}
		found := false
		for _, n := range triggerNames {
			if n.name == name {
				t |= n.t
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown trigger %q", raw)
		}
	}
	return t, nil
}

// ObserverOptions tune the delivery to one observer.
type ObserverOptions struct {
	// AlwaysNotifyOnRefresh delivers empty change-lists and round failures instead of
	// suppressing them.
	AlwaysNotifyOnRefresh bool
	// WaitsInProgressSyncOnAdd takes the initial snapshot after the round in flight at
	// registration time persisted, and skips that round's notification. Otherwise the
	// snapshot is taken right away and the round's notification follows it.
	WaitsInProgressSyncOnAdd bool
}
