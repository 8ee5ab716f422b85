package adaptors

import (
	"context"
	"io"
	"net/http"
	"time"

	"site_auditor/internal/pkg/errors"
	"site_auditor/internal/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// maxBodyBytes caps how much of a discovery response is read.
const maxBodyBytes = 5 << 20

const userAgent = `Mozilla/5.0 (compatible; SiteAuditor/1.0; +https://example.com/bot)`

type WebClient struct {
	client *http.Client
	log    *log.Logger
}

// instrumentedTransport wraps base with the outbound request metrics.
func instrumentedTransport(base http.RoundTripper) http.RoundTripper {
	if base == nil {
		base = http.DefaultTransport
	}
	return promhttp.InstrumentRoundTripperDuration(
		metrics.HTTPClientRequestDuration,
		promhttp.InstrumentRoundTripperCounter(metrics.HTTPClientRequestsTotal, base))
}

func NewWebClient(timeout time.Duration, log *log.Logger) *WebClient {
	return &WebClient{
		client: &http.Client{
			Timeout:   timeout,
			Transport: instrumentedTransport(nil),
		},
		log: log,
	}
}

// Do fetches url and returns the body and status code. Non-2xx responses are not
// errors; callers decide what a status means.
func (w *WebClient) Do(ctx context.Context, url string, method string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		w.log.WithError(err).Error(`failed to create request`)
		return nil, 0, errors.Wrap(err, `failed to create request`)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.5")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.WithContext(ctx).WithError(err).WithField(`url`, url).Debug(`request failed`)
		return nil, 0, errors.Wrap(err, `request failed`)
	}
	defer resp.Body.Close()

	bodyByte, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		w.log.Errorf(`failed to read response body. error: %v`, err)
		return nil, 0, errors.Wrap(err, `failed to read response body`)
	}

	return bodyByte, resp.StatusCode, nil
}
