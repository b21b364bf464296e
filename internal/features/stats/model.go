package stats

import (
	"time"

	"go-venue/internal/common/models"
	"go-venue/internal/features/mapping"
	"go-venue/internal/features/monitor"
)

// RecentActivity buckets mapping updates into inclusive trailing windows.
type RecentActivity struct {
	Last24Hours int64 `json:"last_24_hours"`
	Last7Days   int64 `json:"last_7_days"`
	Last30Days  int64 `json:"last_30_days"`
}

// MonitoringStats is the combined snapshot of the mapping store and the
// health monitor at read time.
type MonitoringStats struct {
	TotalMappings    int64                                          `json:"total_mappings"`
	ActiveMappings   int64                                          `json:"active_mappings"`
	InactiveMappings int64                                          `json:"inactive_mappings"`
	ConflictMappings int64                                          `json:"conflict_mappings"`
	ErrorMappings    int64                                          `json:"error_mappings"`
	SystemBreakdown  map[models.ExternalSystem]*mapping.SystemStats `json:"system_breakdown"`
	EntityBreakdown  map[models.InternalEntityType]int64            `json:"entity_breakdown"`
	HealthStatuses   map[models.ExternalSystem]monitor.HealthStatus `json:"health_statuses"`
	RecentActivity   RecentActivity                                 `json:"recent_activity"`
}

type IssueSeverity string

const (
	SeverityCritical       IssueSeverity = "critical"
	SeverityWarning        IssueSeverity = "warning"
	SeverityRecommendation IssueSeverity = "recommendation"
)

// Issue is one finding from the rule evaluation. Rules run in a fixed order
// so repeated calls over the same data yield the same list.
type Issue struct {
	Severity IssueSeverity         `json:"severity"`
	System   models.ExternalSystem `json:"system,omitempty"`
	Message  string                `json:"message"`
}

// SystemPerformance is the per-system slice of the performance report.
type SystemPerformance struct {
	IsHealthy      bool    `json:"is_healthy"`
	ResponseTimeMs int64   `json:"response_time_ms"`
	Total          int64   `json:"total"`
	ErrorRate      float64 `json:"error_rate"`
}

// PerformanceReport is a single-point view; there is no historical series
// behind it, so the trend is just the current activity and error rate.
type PerformanceReport struct {
	AvgResponseTimeMs float64                                      `json:"avg_response_time_ms"`
	Systems           map[models.ExternalSystem]*SystemPerformance `json:"systems"`
	Trend             PerformanceTrend                             `json:"trend"`
	GeneratedAt       time.Time                                    `json:"generated_at"`
}

type PerformanceTrend struct {
	RecentActivity RecentActivity `json:"recent_activity"`
	ErrorRate      float64        `json:"error_rate"`
}
