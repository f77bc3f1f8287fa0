package monitoring

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/dse-bonds/internal/config"
)

// alertCooldown is how long an alert type stays quiet after being sent.
const alertCooldown = time.Hour

// Checker periodically summarises the upload log and raises alerts.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitoringConfig

	lastSent map[AlertType]time.Time
	now      func() time.Time
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitoringConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		lastSent:  make(map[AlertType]time.Time),
		now:       time.Now,
	}
}

// Run checks once per interval until ctx is cancelled.
func (c *Checker) Run(ctx context.Context) {
	interval := c.interval()
	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackHours),
		zap.Bool("webhook", c.cfg.WebhookURL != ""),
	)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("alert checker stopped")
			return
		case <-ticker.C:
			c.check(ctx, log)
		}
	}
}

func (c *Checker) check(ctx context.Context, log *zap.Logger) {
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackHours)
	if err != nil {
		log.Error("monitoring: collect failed", zap.Error(err))
		return
	}

	due := c.due(c.alerter.Evaluate(snap))
	if len(due) == 0 {
		log.Debug("monitoring: nothing to alert",
			zap.Int("uploads", snap.UploadsTotal),
			zap.Float64("fail_rate", snap.FailRate),
		)
		return
	}

	for _, a := range due {
		log.Warn("monitoring: alert", zap.String("type", string(a.Type)), zap.String("message", a.Message))
	}
	if sent := c.alerter.SendAlerts(ctx, due); sent > 0 {
		now := c.now()
		for _, a := range due {
			c.lastSent[a.Type] = now
		}
	}
}

// due drops alerts whose type was sent within alertCooldown.
func (c *Checker) due(alerts []Alert) []Alert {
	now := c.now()
	var out []Alert
	for _, a := range alerts {
		if last, ok := c.lastSent[a.Type]; ok && now.Sub(last) < alertCooldown {
			continue
		}
		out = append(out, a)
	}
	return out
}

func (c *Checker) interval() time.Duration {
	if c.cfg.CheckIntervalSecs <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.cfg.CheckIntervalSecs) * time.Second
}
