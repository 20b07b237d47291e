package notify

import (
    "context"
    "errors"
    "fmt"
    "time"

    "OpsPulse/internal/domain/models"
    domrepo "OpsPulse/internal/domain/repository"
    "OpsPulse/pkg/config"
    xhttp "OpsPulse/pkg/http"
)

// WebhookSink posts threshold alerts to an external webhook (chat hook,
// incident tool, whatever accepts JSON). It is the out-of-band
// counterpart to the Kafka alert topic.
type WebhookSink struct {
    url    string
    client *xhttp.Client
}

// NewWebhookSink builds the sink from config. Returns nil when no
// webhook URL is configured so callers can skip wiring it.
func NewWebhookSink(cfg *config.Config) *WebhookSink {
    if cfg.Alerts.WebhookURL == "" {
        return nil
    }
    timeout := cfg.Alerts.Timeout
    if timeout <= 0 {
        timeout = 3 * time.Second
    }
    return &WebhookSink{
        url:    cfg.Alerts.WebhookURL,
        client: xhttp.NewClient(xhttp.WithTimeout(timeout)),
    }
}

type webhookPayload struct {
    Text  string                 `json:"text"`
    Alert *models.ThresholdAlert `json:"alert"`
}

// Send posts the alert with a short retry for transient failures. The
// response body is ignored; any 2xx counts as delivered.
func (s *WebhookSink) Send(ctx context.Context, a *models.ThresholdAlert) error {
    if s == nil || s.client == nil || s.url == "" {
        return fmt.Errorf("webhook sink not initialized")
    }
    payload := webhookPayload{
        Text:  fmt.Sprintf("%s %s threshold: %.4f (bounds %.4f..%.4f)", a.MetricID, a.Direction, a.Value, a.Lower, a.Upper),
        Alert: a,
    }
    return s.postJSONWithRetry(ctx, payload, nil, 3)
}

func (s *WebhookSink) Close() error { return nil }

func (s *WebhookSink) postJSON(ctx context.Context, payload any, dest any) error {
    err := s.client.SendAndParse(ctx, &xhttp.RequestOptions{
        Method: xhttp.MethodPost,
        URL:    s.url,
        Headers: map[string]string{
            "Content-Type": "application/json",
        },
        Body: payload,
    }, dest)
    if err != nil {
        return fmt.Errorf("post webhook: %w", err)
    }
    return nil
}

func (s *WebhookSink) postJSONWithRetry(ctx context.Context, payload any, dest any, attempts int) error {
    if attempts <= 1 {
        return s.postJSON(ctx, payload, dest)
    }
    var err error
    for i := 1; i <= attempts; i++ {
        err = s.postJSON(ctx, payload, dest)
        if err == nil {
            return nil
        }
        // a 4xx will fail the same way every time
        var serr *xhttp.StatusError
        if errors.As(err, &serr) && !serr.Temporary() {
            return err
        }
        // simple backoff
        select {
        case <-time.After(time.Duration(i) * 50 * time.Millisecond):
        case <-ctx.Done():
            return ctx.Err()
        }
    }
    return err
}

var _ domrepo.AlertSink = (*WebhookSink)(nil)
