package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/config"
)

// Checker periodically snapshots the pipeline, evaluates the alert rules,
// and pushes newly firing alerts to the webhook. A condition that keeps
// firing across runs alerts once; it re-alerts only after clearing first.
type Checker struct {
	collector *Collector
	alerter   *Alerter
	cfg       config.MonitorConfig

	firing map[string]bool
}

// NewChecker creates a background alert checker.
func NewChecker(collector *Collector, alerter *Alerter, cfg config.MonitorConfig) *Checker {
	return &Checker{
		collector: collector,
		alerter:   alerter,
		cfg:       cfg,
		firing:    make(map[string]bool),
	}
}

// Run blocks until ctx is cancelled. The first check runs immediately so a
// funnel stalled before a deploy is caught without waiting a full interval.
func (c *Checker) Run(ctx context.Context) {
	interval := time.Duration(c.cfg.CheckIntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "monitoring.checker"))
	log.Info("starting alert checker",
		zap.Duration("interval", interval),
		zap.Int("lookback_hours", c.cfg.LookbackWindowHours))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.check(ctx, log)
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
	snap, err := c.collector.Collect(ctx, c.cfg.LookbackWindowHours)
	if err != nil {
		log.Error("monitoring: failed to collect snapshot", zap.Error(err))
		return
	}
	log.Debug("monitoring: snapshot collected",
		zap.Int("regions", len(snap.Regions)),
		zap.Int("discarded", snap.Discarded),
		zap.Bool("batch_active", snap.BatchActive))

	alerts := c.alerter.Evaluate(snap)
	fresh := c.refresh(alerts)
	if len(fresh) == 0 {
		return
	}

	sent := c.alerter.SendAlerts(ctx, fresh)
	log.Info("monitoring: alert check complete",
		zap.Int("firing", len(alerts)),
		zap.Int("new", len(fresh)),
		zap.Int("sent", sent))
}

// refresh replaces the firing set with the current evaluation and returns
// only the alerts that were not already firing on the previous pass.
func (c *Checker) refresh(alerts []Alert) []Alert {
	next := make(map[string]bool, len(alerts))
	var fresh []Alert
	for _, a := range alerts {
		key := alertKey(a)
		next[key] = true
		if !c.firing[key] {
			fresh = append(fresh, a)
		}
	}
	c.firing = next
	return fresh
}

// alertKey identifies an alert condition across runs: the rule plus the
// region/locale it fired for, independent of counts and timestamps.
func alertKey(a Alert) string {
	region, _ := a.Details["region"].(string)
	locale, _ := a.Details["locale"].(string)
	return fmt.Sprintf("%s/%s/%s", a.Type, region, locale)
}
