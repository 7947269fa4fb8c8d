package provider

import (
	"strings"
	"time"
)

// Settings is the configuration section of the providers run by the application.
type Settings struct {
	// PoolSize bounds the number of round tasks running at once.
	PoolSize int `mapstructure:"pool_size" default:"4"`
	// AlwaysNotify registers the application observers with AlwaysNotifyOnRefresh.
	AlwaysNotify bool `mapstructure:"always_notify" default:"false"`
	// WaitsOnAdd registers the application observers with WaitsInProgressSyncOnAdd.
	WaitsOnAdd bool `mapstructure:"waits_on_add" default:"true"`
	// Triggers is a comma separated list of trigger names (see ParseTriggers).
	Triggers string `mapstructure:"triggers" default:"init,add_observer"`
	// RefreshInterval is the period of the background refresh, 0 disables it.
	RefreshInterval time.Duration `mapstructure:"refresh_interval" default:"5m"`
}

// TriggerSet parses Triggers.
func (s Settings) TriggerSet() (Trigger, error) {
	return ParseTriggers(strings.Split(s.Triggers, ","))
}

// ObserverOptions returns the observer options selected by the settings.
func (s Settings) ObserverOptions() ObserverOptions {
	return ObserverOptions{
		AlwaysNotifyOnRefresh:    s.AlwaysNotify,
		WaitsInProgressSyncOnAdd: s.WaitsOnAdd,
	}
}
