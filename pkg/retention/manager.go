package retention

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/injectguard/injectguard/pkg/config"
	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"github.com/injectguard/injectguard/pkg/domain/auditlog"
	"github.com/injectguard/injectguard/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

// Report lists how many rows one rotation removed from each store.
type Report struct {
	AttemptsDeleted     int64 `json:"attempts_deleted"`
	AuditLogsDeleted    int64 `json:"audit_logs_deleted"`
	SecurityLogsDeleted int64 `json:"security_logs_deleted"`
}

// Manager prunes expired rows. Audit entries recording an alert dispatch
// live under their own, shorter window than plain admin actions.
type Manager struct {
	attempts       attempt.Repository
	auditLogs      auditlog.Repository
	logger         *logrus.Logger
	attemptWindow  time.Duration
	auditWindow    time.Duration
	securityWindow time.Duration
	now            func() time.Time
}

func NewManager(
	attempts attempt.Repository,
	auditLogs auditlog.Repository,
	logger *logrus.Logger,
	cfg config.RetentionConfig,
) *Manager {
	return &Manager{
		attempts:       attempts,
		auditLogs:      auditLogs,
		logger:         logger,
		attemptWindow:  daysToDuration(cfg.AttemptDays, 90),
		auditWindow:    daysToDuration(cfg.AuditDays, 90),
		securityWindow: daysToDuration(cfg.SecurityAlertDays, 30),
		now:            time.Now,
	}
}

// Rotate deletes everything older than the configured windows. All cutoffs
// derive from a single clock reading, so a slow delete cannot widen the
// window mid-run, and running twice back to back deletes nothing new.
func (m *Manager) Rotate(ctx context.Context) (Report, error) {
	now := m.now().UTC()
	var report Report

	attemptsDeleted, err := m.attempts.DeleteOlderThan(ctx, now.Add(-m.attemptWindow))
	if err != nil {
		return report, fmt.Errorf("failed to prune injection attempts: %w", err)
	}
	report.AttemptsDeleted = attemptsDeleted
	prometheus.RetentionDeletedTotal.WithLabelValues("injection_attempts").Add(float64(attemptsDeleted))

	auditDeleted, err := m.auditLogs.DeleteOlderThan(ctx, now.Add(-m.auditWindow), auditlog.CategoryAdminAction)
	if err != nil {
		return report, fmt.Errorf("failed to prune admin audit logs: %w", err)
	}
	report.AuditLogsDeleted = auditDeleted
	prometheus.RetentionDeletedTotal.WithLabelValues("audit_logs").Add(float64(auditDeleted))

	securityDeleted, err := m.auditLogs.DeleteOlderThan(ctx, now.Add(-m.securityWindow), auditlog.CategorySecurityAlert)
	if err != nil {
		return report, fmt.Errorf("failed to prune security audit logs: %w", err)
	}
	report.SecurityLogsDeleted = securityDeleted
	prometheus.RetentionDeletedTotal.WithLabelValues("security_logs").Add(float64(securityDeleted))

	m.logger.WithFields(logrus.Fields{
		"attempts_deleted":      report.AttemptsDeleted,
		"audit_logs_deleted":    report.AuditLogsDeleted,
		"security_logs_deleted": report.SecurityLogsDeleted,
	}).Info("retention rotation completed")

	m.recordRun(ctx, report)
	return report, nil
}

func (m *Manager) recordRun(ctx context.Context, report Report) {
	details, err := json.Marshal(report)
	if err != nil {
		details = []byte("{}")
	}
	entry := &auditlog.AuditLog{
		AdminID:  "system",
		Action:   auditlog.ActionRetentionRun,
		Category: auditlog.CategoryAdminAction,
		Resource: "retention",
		Details:  string(details),
	}
	if err := m.auditLogs.Save(ctx, entry); err != nil {
		m.logger.WithError(err).Error("failed to record retention run in audit log")
	}
}

func daysToDuration(days, fallback int) time.Duration {
	if days <= 0 {
		days = fallback
	}
	return time.Duration(days) * 24 * time.Hour
}
