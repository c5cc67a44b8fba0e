package guard

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/injectguard/injectguard/pkg/alert"
	"github.com/injectguard/injectguard/pkg/detection"
	"github.com/injectguard/injectguard/pkg/infra/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const blockedMessage = "Request blocked"

// UserIDContextKey is where host applications place the authenticated user
// id, if any, before the guard runs.
const UserIDContextKey = "user_id"

const defaultDispatchTimeout = 10 * time.Second

// Guard is the synchronous per-request gate. It decides block/allow from
// in-memory detections only; persistence and escalation happen after the
// response, on their own goroutine.
type Guard struct {
	detector        *detection.Detector
	alerts          alert.Service
	logger          *logrus.Logger
	dispatchTimeout time.Duration
	wg              sync.WaitGroup
}

func New(detector *detection.Detector, alerts alert.Service, logger *logrus.Logger) *Guard {
	return &Guard{
		detector:        detector,
		alerts:          alerts,
		logger:          logger,
		dispatchTimeout: defaultDispatchTimeout,
	}
}

// Middleware protects one endpoint: it scans the request and either lets
// the chain continue or short-circuits with a 403 whose body never reveals
// which rule matched. An empty endpoint label falls back to the request
// path.
func (g *Guard) Middleware(endpoint string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		detections := g.scan(c)
		if len(detections) == 0 {
			return c.Next()
		}

		label := endpoint
		if label == "" {
			label = c.Path()
		}
		prometheus.BlockedRequestsTotal.WithLabelValues(label).Inc()
		g.logger.WithFields(logrus.Fields{
			"endpoint": label,
			"ip":       c.IP(),
			"count":    len(detections),
			"severity": detection.HighestSeverity(detections),
		}).Warn("request blocked by injection guard")

		g.dispatch(detections, alert.RequestContext{
			Endpoint:  label,
			Method:    c.Method(),
			IPAddress: c.IP(),
			UserAgent: c.Get(fiber.HeaderUserAgent),
			UserID:    userID(c),
		})

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": blockedMessage})
	}
}

// scan runs the detector over the JSON body and the query string in
// parallel. A panic inside the detector fails open: the request passes,
// the failure is logged loudly.
func (g *Guard) scan(c *fiber.Ctx) []detection.Detection {
	var (
		all   []detection.Detection
		mutex sync.Mutex
	)
	collect := func(found []detection.Detection) {
		if len(found) == 0 {
			return
		}
		mutex.Lock()
		all = append(all, found...)
		mutex.Unlock()
	}
	eg := &errgroup.Group{}

	body := c.Body()
	if len(body) > 0 && isJSONContentType(c.Get(fiber.HeaderContentType)) {
		eg.Go(func() error {
			defer g.recoverScan()
			found, err := g.detector.DetectJSON("body", body)
			if err != nil {
				// not a scannable document; the handler will reject it anyway
				g.logger.WithError(err).Debug("guard skipped unparseable body")
				return nil
			}
			collect(found)
			return nil
		})
	}

	queryPayload := queryMap(c)
	if len(queryPayload) > 0 {
		eg.Go(func() error {
			defer g.recoverScan()
			collect(g.detector.Detect("query", queryPayload))
			return nil
		})
	}

	_ = eg.Wait()
	return all
}

// recoverScan converts a detector panic into a pass-through: the scan that
// panicked contributes no detections and the request continues.
func (g *Guard) recoverScan() {
	if r := recover(); r != nil {
		g.logger.WithField("panic", r).Error("injection detector panicked, failing open")
	}
}

// dispatch hands detections to the alert pipeline without waiting for it.
// The response to the caller is already decided; a failure here is logged
// and dropped.
func (g *Guard) dispatch(detections []detection.Detection, reqCtx alert.RequestContext) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.logger.WithField("panic", r).Error("alert dispatch panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), g.dispatchTimeout)
		defer cancel()

		if _, err := g.alerts.Process(ctx, detections, reqCtx); err != nil {
			g.logger.WithError(err).Error("alert processing failed")
		}
	}()
}

// Drain waits for in-flight alert dispatches, for graceful shutdown. A
// dropped alert at shutdown is acceptable; waiting is best-effort.
func (g *Guard) Drain() {
	g.wg.Wait()
}

func userID(c *fiber.Ctx) *string {
	id, ok := c.Locals(UserIDContextKey).(string)
	if !ok || id == "" {
		return nil
	}
	return &id
}

func queryMap(c *fiber.Ctx) map[string]interface{} {
	payload := make(map[string]interface{})
	c.Context().QueryArgs().VisitAll(func(key, value []byte) {
		payload[string(key)] = string(value)
	})
	return payload
}

func isJSONContentType(contentType string) bool {
	return strings.HasPrefix(strings.TrimSpace(strings.ToLower(contentType)), fiber.MIMEApplicationJSON)
}
