package channels

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"optix/internal/adapters/ratelimit"
	"optix/internal/adapters/retry"
	"optix/internal/alerts"
	"optix/internal/domain/alert"
	"optix/pkg/errors"
	"optix/pkg/logger"
)

// WebhookConfig configures the JSON webhook channel
type WebhookConfig struct {
	URL               string
	RequestsPerMinute int
	Retry             retry.Config
	HTTPTimeout       time.Duration
	Headers           map[string]string
}

// Webhook POSTs alert JSON to an HTTP endpoint
type Webhook struct {
	cfg     WebhookConfig
	client  *http.Client
	limiter *ratelimit.Limiter
	retrier *retry.Retrier
	log     *logger.Logger
}

// WebhookPayload is the request body
type WebhookPayload struct {
	Event string      `json:"event"`
	Alert alert.Alert `json:"alert"`
	Sent  time.Time   `json:"sent_at"`
}

// NewWebhook creates a webhook channel
func NewWebhook(cfg WebhookConfig) (*Webhook, error) {
	if cfg.URL == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "webhook url is required")
	}
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 5 * time.Second
	}
	return &Webhook{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.HTTPTimeout},
		limiter: ratelimit.NewPerMinute("webhook", cfg.RequestsPerMinute),
		retrier: retry.New(cfg.Retry),
		log:     logger.Component("alert_webhook"),
	}, nil
}

func (w *Webhook) Name() string { return "webhook" }

func (w *Webhook) Send(ctx context.Context, a alert.Alert) alerts.DeliveryResult {
	body, err := json.Marshal(WebhookPayload{Event: "alert.created", Alert: a, Sent: time.Now().UTC()})
	if err != nil {
		return alerts.Failed(w.Name(), a, 0, errors.Wrap(err, "encode webhook payload"))
	}

	attempts, err := w.retrier.Do(ctx, func(ctx context.Context) error {
		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
		return w.post(ctx, body)
	})
	if err != nil {
		return alerts.Failed(w.Name(), a, attempts, errors.Tag(errors.ErrDeliveryFailed, err))
	}
	return alerts.Delivered(w.Name(), a, attempts)
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		w.log.Debugw("Webhook rejected alert", "status", resp.StatusCode)
		return &retry.StatusError{Code: resp.StatusCode, Body: string(msg)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
