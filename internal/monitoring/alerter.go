package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-pipeline/internal/config"
	"github.com/sells-group/listing-pipeline/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertDiscardedJobs   AlertType = "discarded_jobs"
	AlertFunnelStalled   AlertType = "funnel_stalled"
	AlertCoverageLagging AlertType = "coverage_lagging"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a Snapshot against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitorConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitor config.
func NewAlerter(cfg config.MonitorConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *Snapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	if a.cfg.DiscardedThreshold > 0 && snap.Discarded >= a.cfg.DiscardedThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertDiscardedJobs,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d job(s) permanently discarded, threshold %d",
				snap.Discarded, a.cfg.DiscardedThreshold,
			),
			Details: map[string]any{
				"discarded": snap.Discarded,
				"threshold": a.cfg.DiscardedThreshold,
			},
			Timestamp: now,
		})
	}

	for _, rs := range snap.Regions {
		// A region with researched work but no enrichments over the
		// window means the enrichment stage has stalled.
		if rs.Funnel[model.StatusResearched] > 0 && rs.Enriched24h == 0 && !snap.BatchActive {
			alerts = append(alerts, Alert{
				Type:     AlertFunnelStalled,
				Severity: "high",
				Message: fmt.Sprintf(
					"Region %s has %d researched business(es) but no enrichments in 24h and no batch in flight",
					rs.Slug, rs.Funnel[model.StatusResearched],
				),
				Details: map[string]any{
					"region":     rs.Slug,
					"researched": rs.Funnel[model.StatusResearched],
				},
				Timestamp: now,
			})
		}

		if a.cfg.CoverageThreshold > 0 {
			for locale, cov := range rs.TranslationCoverage {
				if cov < a.cfg.CoverageThreshold {
					alerts = append(alerts, Alert{
						Type:     AlertCoverageLagging,
						Severity: "medium",
						Message: fmt.Sprintf(
							"Region %s translation coverage for %s is %.0f%%, threshold %.0f%%",
							rs.Slug, locale, cov*100, a.cfg.CoverageThreshold*100,
						),
						Details: map[string]any{
							"region":   rs.Slug,
							"locale":   locale,
							"coverage": cov,
						},
						Timestamp: now,
					})
				}
			}
		}
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
