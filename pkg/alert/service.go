package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/avct/uasurfer"
	"github.com/injectguard/injectguard/pkg/cache"
	"github.com/injectguard/injectguard/pkg/detection"
	"github.com/injectguard/injectguard/pkg/domain"
	"github.com/injectguard/injectguard/pkg/domain/attempt"
	"github.com/injectguard/injectguard/pkg/domain/auditlog"
	"github.com/injectguard/injectguard/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
)

// RequestContext carries the request metadata persisted with each attempt.
type RequestContext struct {
	Endpoint  string
	Method    string
	IPAddress string
	UserAgent string
	UserID    *string
}

// Result reports what the pipeline did for one request's detections.
type Result struct {
	AttemptID string
	AlertSent bool
}

// Service is the asynchronous half of the engine: it runs after the 403 has
// already been sent, so nothing here may influence the original response.
type Service interface {
	Process(ctx context.Context, detections []detection.Detection, reqCtx RequestContext) (Result, error)
}

type service struct {
	attempts          attempt.Repository
	auditLogs         auditlog.Repository
	cache             *cache.Cache
	notifier          Notifier
	logger            *logrus.Logger
	suppressionWindow time.Duration
	minSeverity       attempt.Severity
}

func NewService(
	attempts attempt.Repository,
	auditLogs auditlog.Repository,
	cacheInstance *cache.Cache,
	notifier Notifier,
	logger *logrus.Logger,
	suppressionWindow time.Duration,
	minSeverity attempt.Severity,
) Service {
	if suppressionWindow <= 0 {
		suppressionWindow = 15 * time.Minute
	}
	if !minSeverity.Valid() {
		minSeverity = attempt.SeverityHigh
	}
	return &service{
		attempts:          attempts,
		auditLogs:         auditLogs,
		cache:             cacheInstance,
		notifier:          notifier,
		logger:            logger,
		suppressionWindow: suppressionWindow,
		minSeverity:       minSeverity,
	}
}

// Process persists every detection individually and escalates at most once
// per request, driven by the highest severity present. Persistence failures
// are logged and reflected in the result, never propagated as a response
// change for the original caller.
func (s *service) Process(
	ctx context.Context,
	detections []detection.Detection,
	reqCtx RequestContext,
) (Result, error) {
	if len(detections) == 0 {
		return Result{}, fmt.Errorf("no detections to process")
	}

	device := deviceSummary(reqCtx.UserAgent)

	var (
		primary    *attempt.InjectionAttempt
		savedCount int
	)
	for _, d := range detections {
		row := &attempt.InjectionAttempt{
			Type:            d.Kind,
			Severity:        d.Severity,
			Pattern:         d.Pattern,
			Field:           d.Field,
			MatchedValue:    d.MatchedValue,
			Endpoint:        reqCtx.Endpoint,
			Method:          reqCtx.Method,
			IPAddress:       reqCtx.IPAddress,
			UserAgent:       reqCtx.UserAgent,
			UserAgentDevice: device,
			UserID:          reqCtx.UserID,
		}
		if err := s.saveWithRetry(ctx, row); err != nil {
			prometheus.AttemptPersistFailures.Inc()
			s.logger.WithError(err).WithFields(logrus.Fields{
				"ip":   reqCtx.IPAddress,
				"kind": d.Kind,
			}).Error("failed to persist injection attempt")
			continue
		}
		savedCount++
		prometheus.DetectionsTotal.WithLabelValues(string(d.Kind), string(d.Severity)).Inc()
		if primary == nil || row.Severity.Rank() > primary.Severity.Rank() {
			primary = row
		}
	}

	if primary == nil {
		return Result{}, domain.NewStorageError("process detections", fmt.Errorf("no attempt could be persisted"))
	}

	result := Result{AttemptID: primary.ID.String()}

	if primary.Severity.Rank() < s.minSeverity.Rank() {
		return result, nil
	}

	dedupKey := fmt.Sprintf(cache.AlertDedupKeyPattern, reqCtx.IPAddress, primary.Type)
	if s.suppressed(ctx, dedupKey, primary.ID.String()) {
		prometheus.AlertsSuppressedTotal.Inc()
		s.logger.WithFields(logrus.Fields{
			"ip":   reqCtx.IPAddress,
			"kind": primary.Type,
		}).Debug("alert suppressed by deduplication window")
		return result, nil
	}

	notification := Notification{
		AttemptID:  primary.ID.String(),
		Kind:       primary.Type,
		Severity:   primary.Severity,
		Endpoint:   primary.Endpoint,
		Field:      primary.Field,
		IPAddress:  primary.IPAddress,
		OccurredAt: primary.CreatedAt,
	}
	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.logger.WithError(err).Error("failed to dispatch security alert")
		// Nothing was dispatched, so the claim must not suppress the
		// next detection for the rest of the window.
		s.releaseClaim(ctx, dedupKey)
		return result, nil
	}

	result.AlertSent = true
	prometheus.AlertsDispatchedTotal.Inc()
	s.recordDispatch(ctx, primary)

	return result, nil
}

// saveWithRetry retries exactly once on a transient storage failure before
// giving up; the attempt is then dropped with a log line, not re-queued.
func (s *service) saveWithRetry(ctx context.Context, row *attempt.InjectionAttempt) error {
	err := s.attempts.Save(ctx, row)
	if err == nil {
		return nil
	}
	if !domain.IsStorageError(err) {
		return err
	}
	s.logger.WithError(err).Warn("attempt save failed, retrying once")
	return s.attempts.Save(ctx, row)
}

// suppressed claims the (ip, kind) dedup slot. A redis outage fails open:
// better a duplicate notification than a missed critical one.
func (s *service) suppressed(ctx context.Context, key string, attemptID string) bool {
	claimed, err := s.cache.SetNX(ctx, key, attemptID, s.suppressionWindow)
	if err != nil {
		s.logger.WithError(err).Warn("alert dedup check failed, dispatching anyway")
		return false
	}
	return !claimed
}

func (s *service) releaseClaim(ctx context.Context, key string) {
	if err := s.cache.Delete(ctx, key); err != nil {
		s.logger.WithError(err).Warn("failed to release alert dedup claim")
	}
}

func (s *service) recordDispatch(ctx context.Context, primary *attempt.InjectionAttempt) {
	attemptID := primary.ID.String()
	details, err := json.Marshal(map[string]interface{}{
		"kind":     primary.Type,
		"severity": primary.Severity,
		"endpoint": primary.Endpoint,
	})
	if err != nil {
		details = []byte("{}")
	}
	entry := &auditlog.AuditLog{
		AdminID:    "system",
		Action:     auditlog.ActionAlertSent,
		Category:   auditlog.CategorySecurityAlert,
		Resource:   "injection_attempt",
		ResourceID: &attemptID,
		Details:    string(details),
		IPAddress:  primary.IPAddress,
		UserAgent:  primary.UserAgent,
	}
	if err := s.auditLogs.Save(ctx, entry); err != nil {
		s.logger.WithError(err).Error("failed to record alert dispatch in audit log")
	}
}

// deviceSummary condenses a raw user agent into "Browser/OS (Device)" for
// the forensic listing. Unknown agents produce an empty summary.
func deviceSummary(userAgent string) string {
	if userAgent == "" {
		return ""
	}
	ua := uasurfer.Parse(userAgent)
	if ua.Browser.Name == uasurfer.BrowserUnknown && ua.OS.Name == uasurfer.OSUnknown {
		return ""
	}

	device := "Unknown"
	switch ua.DeviceType {
	case uasurfer.DeviceComputer:
		device = "Computer"
	case uasurfer.DeviceTablet:
		device = "Tablet"
	case uasurfer.DevicePhone:
		device = "Phone"
	case uasurfer.DeviceConsole:
		device = "Console"
	case uasurfer.DeviceWearable:
		device = "Wearable"
	case uasurfer.DeviceTV:
		device = "TV"
	}

	browser := strings.TrimPrefix(ua.Browser.Name.String(), "Browser")
	os := strings.TrimPrefix(ua.OS.Name.String(), "OS")
	return fmt.Sprintf("%s/%s (%s)", browser, os, device)
}
