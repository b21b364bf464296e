package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go-venue/internal/common/models"
	"go-venue/internal/config"
	"go-venue/internal/features/mapping"
	"go-venue/internal/features/monitor"

	"go.uber.org/zap"
)

// StatsService derives reports from the mapping store and the health monitor.
// It never writes to either.
type StatsService interface {
	GetMonitoringStats(ctx context.Context) (*MonitoringStats, error)
	AnalyzeIssues(ctx context.Context) ([]Issue, error)
	GetPerformanceReport(ctx context.Context) (*PerformanceReport, error)
	ExportReport(ctx context.Context) ([]byte, error)
}

type StatsServiceImpl struct {
	MappingRepo mapping.MappingRepository
	Monitor     monitor.MonitorService
	Config      *config.Config
	Logger      *zap.Logger
}

func NewStatsService(mappingRepo mapping.MappingRepository, mon monitor.MonitorService, cfg *config.Config, logger *zap.Logger) StatsService {
	return &StatsServiceImpl{
		MappingRepo: mappingRepo,
		Monitor:     mon,
		Config:      cfg,
		Logger:      logger,
	}
}

func (s *StatsServiceImpl) GetMonitoringStats(ctx context.Context) (*MonitoringStats, error) {
	mappingStats, err := s.MappingRepo.GetMappingStats(ctx, "", "")
	if err != nil {
		return nil, err
	}

	entityBreakdown, err := s.MappingRepo.EntityBreakdown(ctx)
	if err != nil {
		return nil, err
	}

	activity, err := s.recentActivity(ctx)
	if err != nil {
		return nil, err
	}

	return &MonitoringStats{
		TotalMappings:    mappingStats.Total,
		ActiveMappings:   mappingStats.Active,
		InactiveMappings: mappingStats.Total - mappingStats.Active,
		ConflictMappings: mappingStats.WithConflicts,
		ErrorMappings:    mappingStats.WithErrors,
		SystemBreakdown:  mappingStats.BySystem,
		EntityBreakdown:  entityBreakdown,
		HealthStatuses:   s.Monitor.GetHealthStatuses(),
		RecentActivity:   *activity,
	}, nil
}

func (s *StatsServiceImpl) recentActivity(ctx context.Context) (*RecentActivity, error) {
	now := time.Now()

	last24h, err := s.MappingRepo.CountUpdatedSince(ctx, now.Add(-24*time.Hour))
	if err != nil {
		return nil, err
	}
	last7d, err := s.MappingRepo.CountUpdatedSince(ctx, now.AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	last30d, err := s.MappingRepo.CountUpdatedSince(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}

	return &RecentActivity{
		Last24Hours: last24h,
		Last7Days:   last7d,
		Last30Days:  last30d,
	}, nil
}

// AnalyzeIssues evaluates a fixed rule list over the current snapshot. Systems
// are visited in sorted order so the output is stable for identical inputs.
func (s *StatsServiceImpl) AnalyzeIssues(ctx context.Context) ([]Issue, error) {
	stats, err := s.GetMonitoringStats(ctx)
	if err != nil {
		return nil, err
	}

	issues := []Issue{}

	for _, system := range sortedSystems(stats.HealthStatuses) {
		status := stats.HealthStatuses[system]
		if !status.IsHealthy {
			issues = append(issues, Issue{
				Severity: SeverityCritical,
				System:   system,
				Message:  fmt.Sprintf("system %s is unhealthy: %s", system, status.Error),
			})
		}
	}

	if stats.TotalMappings > 0 {
		errorRate := float64(stats.ErrorMappings) / float64(stats.TotalMappings)
		if errorRate >= s.Config.ErrorRateCritical {
			issues = append(issues, Issue{
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("error rate %.1f%% exceeds %.1f%% threshold", errorRate*100, s.Config.ErrorRateCritical*100),
			})
		}

		conflictRate := float64(stats.ConflictMappings) / float64(stats.TotalMappings)
		if conflictRate >= s.Config.ConflictRateWarning {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Message:  fmt.Sprintf("conflict rate %.1f%% exceeds %.1f%% threshold", conflictRate*100, s.Config.ConflictRateWarning*100),
			})
		}
	}

	if stats.TotalMappings > 0 && stats.RecentActivity.Last24Hours == 0 {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Message:  "no mapping activity in the last 24 hours",
		})
	}

	if stats.InactiveMappings > stats.ActiveMappings {
		issues = append(issues, Issue{
			Severity: SeverityRecommendation,
			Message:  fmt.Sprintf("%d inactive mappings outnumber %d active ones, consider running cleanup", stats.InactiveMappings, stats.ActiveMappings),
		})
	}

	return issues, nil
}

func (s *StatsServiceImpl) GetPerformanceReport(ctx context.Context) (*PerformanceReport, error) {
	stats, err := s.GetMonitoringStats(ctx)
	if err != nil {
		return nil, err
	}

	report := &PerformanceReport{
		Systems:     make(map[models.ExternalSystem]*SystemPerformance),
		GeneratedAt: time.Now(),
	}

	var totalMs int64
	var healthyCount int64
	for system, status := range stats.HealthStatuses {
		perf := &SystemPerformance{
			IsHealthy:      status.IsHealthy,
			ResponseTimeMs: status.ResponseTime.Milliseconds(),
		}
		if sys, ok := stats.SystemBreakdown[system]; ok {
			perf.Total = sys.Total
			if sys.Total > 0 {
				perf.ErrorRate = float64(sys.WithErrors) / float64(sys.Total)
			}
		}
		report.Systems[system] = perf

		if status.IsHealthy {
			totalMs += perf.ResponseTimeMs
			healthyCount++
		}
	}
	if healthyCount > 0 {
		report.AvgResponseTimeMs = float64(totalMs) / float64(healthyCount)
	}

	report.Trend.RecentActivity = stats.RecentActivity
	if stats.TotalMappings > 0 {
		report.Trend.ErrorRate = float64(stats.ErrorMappings) / float64(stats.TotalMappings)
	}

	return report, nil
}

func sortedSystems(statuses map[models.ExternalSystem]monitor.HealthStatus) []models.ExternalSystem {
	systems := make([]models.ExternalSystem, 0, len(statuses))
	for system := range statuses {
		systems = append(systems, system)
	}
	sort.Slice(systems, func(i, j int) bool { return systems[i] < systems[j] })
	return systems
}
