package adaptors

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RoundTripFunc lets us mock http.RoundTripper easily.
type RoundTripFunc func(req *http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testLogger() *log.Logger {
	l := log.New()
	l.SetOutput(io.Discard)
	return l
}

func stubClient(rt RoundTripFunc) *WebClient {
	return &WebClient{
		client: &http.Client{Timeout: time.Second, Transport: rt},
		log:    testLogger(),
	}
}

func respond(code int, body io.ReadCloser) RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: code, Body: body, Header: make(http.Header)}, nil
	}
}

func TestWebClient_Do(t *testing.T) {
	ctx := context.Background()
	const testURL = "http://example.com/robots.txt"

	cases := []struct {
		name     string
		client   *WebClient
		url      string
		wantBody string
		wantCode int
		wantErr  bool
	}{
		{
			name:     "success",
			client:   stubClient(respond(http.StatusOK, io.NopCloser(strings.NewReader("User-agent: *")))),
			url:      testURL,
			wantBody: "User-agent: *",
			wantCode: http.StatusOK,
		},
		{
			name:     "not found is not an error",
			client:   stubClient(respond(http.StatusNotFound, io.NopCloser(strings.NewReader("missing")))),
			url:      testURL,
			wantBody: "missing",
			wantCode: http.StatusNotFound,
		},
		{
			name: "network error",
			client: stubClient(func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network failure")
			}),
			url:     testURL,
			wantErr: true,
		},
		{
			name:    "invalid URL",
			client:  NewWebClient(time.Second, testLogger()),
			url:     "://bad",
			wantErr: true,
		},
		{
			name:    "read body error",
			client:  stubClient(respond(http.StatusOK, errReadCloser{})),
			url:     testURL,
			wantErr: true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body, code, err := tc.client.Do(ctx, tc.url, http.MethodGet)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantBody, string(body))
			assert.Equal(t, tc.wantCode, code)
		})
	}
}

func TestWebClient_DoSendsHeadersAndLimitsBody(t *testing.T) {
	var ua string
	wc := stubClient(func(req *http.Request) (*http.Response, error) {
		ua = req.Header.Get("User-Agent")
		body := strings.NewReader(strings.Repeat("a", maxBodyBytes+100))
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(body), Header: make(http.Header)}, nil
	})

	body, _, err := wc.Do(context.Background(), "http://example.com/sitemap.xml", http.MethodGet)
	require.NoError(t, err)
	assert.Len(t, body, maxBodyBytes)
	assert.Contains(t, ua, "SiteAuditor")
}

// errReadCloser is an io.ReadCloser that always errors on Read.
type errReadCloser struct{}

func (e errReadCloser) Read(p []byte) (int, error) {
	return 0, errors.New("read failed")
}
func (e errReadCloser) Close() error {
	return nil
}
