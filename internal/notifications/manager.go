package notifications

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/config"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/detection"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/engine"
	"github.com/0tSystemsPublicRepos/honeycomb/internal/logging"
)

// Manager fans decisions out to every enabled provider. It implements
// engine.Sink.
type Manager struct {
	providers   []NotificationProvider
	minSeverity detection.Severity
	mu          sync.RWMutex
}

// NewManager builds the providers enabled in cfg. A provider that fails to
// initialize is logged and skipped.
func NewManager(cfg *config.NotificationsConfig) *Manager {
	minSeverity, err := detection.ParseSeverity(cfg.MinSeverity)
	if err != nil {
		logging.Warn("[NOTIFICATIONS] Invalid min_severity %q, using HIGH", cfg.MinSeverity)
		minSeverity = detection.SeverityHigh
	}

	manager := &Manager{
		providers:   []NotificationProvider{},
		minSeverity: minSeverity,
	}

	if cfg.Webhook.Enabled {
		manager.AddProvider(NewWebhookProvider(&cfg.Webhook))
		logging.Info("[NOTIFICATIONS] Webhook provider initialized")
	}

	if cfg.Slack.Enabled {
		manager.AddProvider(NewSlackProvider(&cfg.Slack))
		logging.Info("[NOTIFICATIONS] Slack provider initialized")
	}

	if cfg.Redis.Enabled {
		rp, err := NewRedisProvider(&cfg.Redis)
		if err != nil {
			logging.Error("[NOTIFICATIONS] Redis provider disabled: %v", err)
		} else {
			manager.AddProvider(rp)
			logging.Info("[NOTIFICATIONS] Redis provider initialized (%s)", cfg.Redis.Addr)
		}
	}

	if len(manager.providers) == 0 {
		logging.Info("[NOTIFICATIONS] No notification providers enabled")
	}

	return manager
}

// AddProvider registers an additional provider.
func (m *Manager) AddProvider(p NotificationProvider) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.providers = append(m.providers, p)
}

func (m *Manager) Name() string {
	return "notifications"
}

// Record alerts on d when its final severity reaches the configured minimum.
func (m *Manager) Record(ctx context.Context, d engine.Decision) error {
	if d.Final < m.minSeverity {
		return nil
	}
	return m.Send(ctx, FromDecision(d))
}

// Send delivers notification to all enabled providers in parallel and joins
// their errors.
func (m *Manager) Send(ctx context.Context, notification *Notification) error {
	m.mu.RLock()
	providers := make([]NotificationProvider, 0, len(m.providers))
	for _, p := range m.providers {
		if p.IsEnabled() {
			providers = append(providers, p)
		}
	}
	m.mu.RUnlock()

	if len(providers) == 0 {
		return nil
	}

	logging.Debug("[NOTIFICATIONS] Sending %s alert for %s %s", notification.ThreatLevel, notification.SourceIP, notification.Path)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error

	for _, provider := range providers {
		wg.Add(1)
		go func(p NotificationProvider) {
			defer wg.Done()
			if err := p.Send(ctx, notification); err != nil {
				logging.Error("[NOTIFICATIONS] Error from %s provider: %v", p.Name(), err)
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
		}(provider)
	}

	wg.Wait()

	if len(errs) > 0 {
		logging.Warn("[NOTIFICATIONS] %d provider(s) failed", len(errs))
	}
	return errors.Join(errs...)
}

// GetProviderStatus returns the enabled state of every provider.
func (m *Manager) GetProviderStatus() map[string]bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]bool)
	for _, provider := range m.providers {
		status[provider.Name()] = provider.IsEnabled()
	}
	return status
}

// MinSeverity is the lowest final severity that triggers an alert.
func (m *Manager) MinSeverity() detection.Severity {
	return m.minSeverity
}

// Close releases providers that hold connections.
func (m *Manager) Close() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, provider := range m.providers {
		if c, ok := provider.(io.Closer); ok {
			if err := c.Close(); err != nil {
				logging.Warn("[NOTIFICATIONS] Closing %s provider: %v", provider.Name(), err)
			}
		}
	}
}
