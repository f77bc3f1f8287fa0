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

	"github.com/sells-group/dse-bonds/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLoadFailureRate AlertType = "load_failure_rate"
	AlertNoNewTrades     AlertType = "no_new_trades"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	reached := snap.UploadsInserted + snap.UploadsSkipped + snap.UploadsFailed
	if reached >= 3 && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertLoadFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Store failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d loads in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.UploadsFailed, reached, snap.LookbackHours,
			),
			Details: map[string]any{
				"fail_rate": snap.FailRate,
				"threshold": a.cfg.FailureRateThreshold,
				"failed":    snap.UploadsFailed,
				"loads":     reached,
			},
			Timestamp: now,
		})
	}

	// Reports keep arriving but every one is rejected before the store.
	if snap.UploadsTotal > 0 && snap.UploadsInserted == 0 && snap.UploadsSkipped == 0 && snap.UploadsRejected == snap.UploadsTotal {
		alerts = append(alerts, Alert{
			Type:     AlertNoNewTrades,
			Severity: "medium",
			Message: fmt.Sprintf(
				"All %d uploads in last %dh were rejected before loading (%d without marker, %d without data)",
				snap.UploadsTotal, snap.LookbackHours, snap.UploadsNoMarker, snap.UploadsNoData,
			),
			Details: map[string]any{
				"no_marker": snap.UploadsNoMarker,
				"no_data":   snap.UploadsNoData,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// webhookPayload is the body POSTed to monitor.webhook_url.
type webhookPayload struct {
	Service string  `json:"service"`
	Alerts  []Alert `json:"alerts"`
}

// SendAlerts posts alerts to the configured webhook as one JSON document
// and returns how many were delivered: all of them or none.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	if err := a.post(ctx, webhookPayload{Service: "dse-bonds", Alerts: alerts}); err != nil {
		zap.L().Error("monitoring: failed to deliver alerts",
			zap.Int("alerts", len(alerts)),
			zap.Error(err),
		)
		return 0
	}
	return len(alerts)
}

func (a *Alerter) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alerts")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
