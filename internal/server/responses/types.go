// Package responses defines the JSON bodies returned by the admin HTTP API.
package responses

import (
	"time"

	"git.home.luguber.info/inful/apierror/internal/apierror"
	"git.home.luguber.info/inful/apierror/internal/handler"
	"git.home.luguber.info/inful/apierror/internal/tracker"
)

// HealthResponse represents the health check API response.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    float64   `json:"uptime"`
}

// ConfigResponse is the engine configuration with durations rendered as strings.
type ConfigResponse struct {
	EnableLogging   bool              `json:"enable_logging"`
	EnableTracking  bool              `json:"enable_tracking"`
	NotifyUI        bool              `json:"notify_ui"`
	MaxTrackingSize int               `json:"max_tracking_size"`
	Window          string            `json:"window"`
	BurstThreshold  int               `json:"burst_threshold"`
	BurstAlert      tracker.AlertMode `json:"burst_alert"`
	UIMinSeverity   apierror.Severity `json:"ui_min_severity"`
}

// NewConfigResponse converts an engine configuration.
func NewConfigResponse(c handler.Config) ConfigResponse {
	return ConfigResponse{
		EnableLogging:   c.EnableLogging,
		EnableTracking:  c.EnableTracking,
		NotifyUI:        c.NotifyUI,
		MaxTrackingSize: c.MaxTrackingSize,
		Window:          c.Window.String(),
		BurstThreshold:  c.BurstThreshold,
		BurstAlert:      c.BurstAlert,
		UIMinSeverity:   c.UIMinSeverity,
	}
}

// StatsResponse wraps the tracker snapshot with the time it was taken.
type StatsResponse struct {
	tracker.Stats
	Timestamp time.Time `json:"timestamp"`
}
