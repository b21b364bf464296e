package monitor

import (
	"time"

	"go-venue/internal/common/models"
)

// HealthStatus is the latest probe outcome for one external system. It is
// in-memory only and overwritten on every cycle; history is whatever the
// stats analyzer snapshots on read.
type HealthStatus struct {
	System       models.ExternalSystem `json:"system"`
	IsHealthy    bool                  `json:"is_healthy"`
	LastCheck    time.Time             `json:"last_check"`
	ResponseTime time.Duration         `json:"response_time"`
	Error        string                `json:"error,omitempty"`
}

// Alert is raised by the monitor or the orchestrator on anomaly detection.
// Only the resolved flag is ever mutated; alerts past retention are purged.
type Alert struct {
	ID         string                    `json:"id"`
	Type       models.AlertType          `json:"type"`
	System     models.ExternalSystem     `json:"system"`
	EntityType models.InternalEntityType `json:"entity_type,omitempty"`
	Message    string                    `json:"message"`
	Timestamp  time.Time                 `json:"timestamp"`
	Resolved   bool                      `json:"resolved"`
	Metadata   map[string]interface{}    `json:"metadata,omitempty"`
}
