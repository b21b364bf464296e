package monitor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go-venue/internal/adapters"
	"go-venue/internal/common/models"
	"go-venue/internal/config"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// MonitorService owns external-system health state and the alert store. It is
// an explicitly constructed, explicitly lifecycled instance: the composition
// root calls Start/Stop, nothing imports a shared singleton.
type MonitorService interface {
	Start() error
	Stop() error
	CheckNow(ctx context.Context)

	GetHealthStatuses() map[models.ExternalSystem]HealthStatus

	CreateAlert(alertType models.AlertType, system models.ExternalSystem, message string, entityType models.InternalEntityType, metadata map[string]interface{}) *Alert
	GetAlerts(resolved *bool) []Alert
	ResolveAlert(id string) bool

	Subscribe() (<-chan Alert, func())
}

type MonitorServiceImpl struct {
	registry *adapters.Registry
	cfg      *config.Config
	logger   *zap.Logger

	scheduler *cron.Cron

	mu       sync.RWMutex
	statuses map[models.ExternalSystem]HealthStatus
	alerts   []Alert
	running  bool

	subMu       sync.Mutex
	subscribers map[int]chan Alert
	nextSubID   int
}

func NewMonitorService(registry *adapters.Registry, cfg *config.Config, logger *zap.Logger) MonitorService {
	return &MonitorServiceImpl{
		registry:    registry,
		cfg:         cfg,
		logger:      logger,
		statuses:    make(map[models.ExternalSystem]HealthStatus),
		subscribers: make(map[int]chan Alert),
	}
}

// Start runs one immediate probe cycle and schedules the recurring one.
func (s *MonitorServiceImpl) Start() error {
	if s.cfg.HealthCheckInterval <= 0 {
		return fmt.Errorf("health check interval must be positive, got %s", s.cfg.HealthCheckInterval)
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.scheduler = cron.New()
	s.mu.Unlock()

	spec := fmt.Sprintf("@every %s", s.cfg.HealthCheckInterval)
	if _, err := s.scheduler.AddFunc(spec, func() {
		s.CheckNow(context.Background())
	}); err != nil {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
		return fmt.Errorf("failed to schedule health checks: %w", err)
	}

	go s.CheckNow(context.Background())
	s.scheduler.Start()

	s.logger.Info("health monitor started", zap.Duration("interval", s.cfg.HealthCheckInterval))
	return nil
}

// Stop cancels the recurring cycle and waits for an in-flight one to finish.
func (s *MonitorServiceImpl) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	scheduler := s.scheduler
	s.mu.Unlock()

	if scheduler != nil {
		ctx := scheduler.Stop()
		<-ctx.Done()
	}
	s.logger.Info("health monitor stopped")
	return nil
}

// CheckNow probes every configured system. Probes run concurrently, each with
// its own deadline, so one hanging system cannot delay the others.
func (s *MonitorServiceImpl) CheckNow(ctx context.Context) {
	s.mu.RLock()
	running := s.running
	s.mu.RUnlock()
	if !running {
		return
	}

	systems := s.registry.Systems()

	var wg sync.WaitGroup
	for _, system := range systems {
		adapter, ok := s.registry.Get(system)
		if !ok {
			continue
		}

		wg.Add(1)
		go func(system models.ExternalSystem, adapter adapters.EntityAdapter) {
			defer wg.Done()
			s.probe(ctx, system, adapter)
		}(system, adapter)
	}
	wg.Wait()
}

func (s *MonitorServiceImpl) probe(parent context.Context, system models.ExternalSystem, adapter adapters.EntityAdapter) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.ProbeTimeout)
	defer cancel()

	start := time.Now()
	result, err := adapter.Ping(ctx)
	elapsed := time.Since(start)

	status := HealthStatus{
		System:       system,
		LastCheck:    time.Now(),
		ResponseTime: elapsed,
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		status.IsHealthy = false
		status.Error = fmt.Sprintf("probe timed out after %s", s.cfg.ProbeTimeout)
	case err != nil:
		status.IsHealthy = false
		status.Error = err.Error()
	default:
		status.IsHealthy = result.Healthy
		if result.Latency > 0 {
			status.ResponseTime = result.Latency
		}
		if !result.Healthy {
			status.Error = "system reported unhealthy"
		}
	}

	s.mu.Lock()
	prev, seen := s.statuses[system]
	s.statuses[system] = status
	s.mu.Unlock()

	// Alert on the transition into Unhealthy only. Recovery never auto-resolves
	// earlier alerts; an operator confirms that, which keeps a momentary
	// recovery from flapping the alert stream.
	if !status.IsHealthy && (!seen || prev.IsHealthy) {
		s.CreateAlert(models.AlertError, system,
			fmt.Sprintf("health check failed: %s", status.Error), "", map[string]interface{}{
				"response_time_ms": status.ResponseTime.Milliseconds(),
			})
		s.logger.Warn("external system unhealthy",
			zap.String("system", string(system)),
			zap.String("error", status.Error))
	}

	// Slowness is reported regardless of health; a failing probe that also
	// took too long gets both the error alert and the warning.
	if status.ResponseTime > s.cfg.ResponseTimeThreshold {
		s.CreateAlert(models.AlertWarning, system,
			fmt.Sprintf("slow response: %s (threshold %s)", status.ResponseTime, s.cfg.ResponseTimeThreshold),
			"", map[string]interface{}{
				"response_time_ms": status.ResponseTime.Milliseconds(),
			})
	}
}

func (s *MonitorServiceImpl) GetHealthStatuses() map[models.ExternalSystem]HealthStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[models.ExternalSystem]HealthStatus, len(s.statuses))
	for system, status := range s.statuses {
		out[system] = status
	}
	return out
}

// CreateAlert records an alert and purges anything past retention. Retention
// cleanup rides along on every create, no separate timer.
func (s *MonitorServiceImpl) CreateAlert(alertType models.AlertType, system models.ExternalSystem, message string, entityType models.InternalEntityType, metadata map[string]interface{}) *Alert {
	alert := Alert{
		ID:         uuid.NewString(),
		Type:       alertType,
		System:     system,
		EntityType: entityType,
		Message:    message,
		Timestamp:  time.Now(),
		Metadata:   metadata,
	}

	cutoff := time.Now().AddDate(0, 0, -s.cfg.AlertRetentionDays)

	s.mu.Lock()
	kept := s.alerts[:0]
	for _, a := range s.alerts {
		if a.Timestamp.After(cutoff) {
			kept = append(kept, a)
		}
	}
	s.alerts = append(kept, alert)
	s.mu.Unlock()

	s.broadcast(alert)
	return &alert
}

func (s *MonitorServiceImpl) GetAlerts(resolved *bool) []Alert {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Alert, 0, len(s.alerts))
	for _, a := range s.alerts {
		if resolved != nil && a.Resolved != *resolved {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// ResolveAlert flips the resolved flag. Unknown ids return false, never error.
func (s *MonitorServiceImpl) ResolveAlert(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.alerts {
		if s.alerts[i].ID == id {
			s.alerts[i].Resolved = true
			return true
		}
	}
	return false
}

// Subscribe returns a channel receiving alerts as they are raised, and a
// cancel func the caller must invoke when done. Slow subscribers have alerts
// dropped rather than blocking the monitor.
func (s *MonitorServiceImpl) Subscribe() (<-chan Alert, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Alert, 16)
	s.subscribers[id] = ch

	cancel := func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if existing, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(existing)
		}
	}
	return ch, cancel
}

func (s *MonitorServiceImpl) broadcast(alert Alert) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, ch := range s.subscribers {
		select {
		case ch <- alert:
		default:
		}
	}
}
