package punchout

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/omnisupply/procurement-api/internal/resilience"
)

// Relay posts a generated order message to the buyer's BrowserFormPost URL
// server-side. Most buyer systems submit the form from the browser instead;
// relay mode exists for headless integrations and is off by default.
type Relay struct {
	HTTP    *resilience.HTTPClient
	Enabled bool
}

// Deliver posts the cXML document as the cxml-urlencoded form field Coupa
// expects. A nil or disabled relay is a no-op.
func (r *Relay) Deliver(ctx context.Context, formPostURL, document string) error {
	if r == nil || !r.Enabled || r.HTTP == nil {
		return nil
	}
	if strings.TrimSpace(formPostURL) == "" {
		return fmt.Errorf("punchout: relay target URL is empty")
	}
	form := "cxml-urlencoded=" + url.QueryEscape(document)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, formPostURL, strings.NewReader(form))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := r.HTTP.Do(ctx, req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("punchout: relay returned %s", resp.Status)
	}
	return nil
}

// NewRelayClient builds the resilience-wrapped HTTP client used for relay
// deliveries.
func NewRelayClient(timeout time.Duration) *resilience.HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &resilience.HTTPClient{
		Client:      &http.Client{Timeout: timeout},
		Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("punchout-relay"),
		BaseBackoff: 200 * time.Millisecond,
		MaxAttempts: 3,
		Jitter:      0.2,
		Timeout:     timeout,
	}
}
