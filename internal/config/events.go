package config

import "time"

// Reloaded is published on the event bus after the watched file was loaded successfully.
type Reloaded struct {
	Path   string
	Config *Config
	At     time.Time
}

// ReloadFailed is published when the watched file changed but could not be loaded.
// The previous configuration stays in effect.
type ReloadFailed struct {
	Path string
	Err  error
	At   time.Time
}
