package adaptors

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	domain "site_auditor/internal/domain/adaptors"
	"site_auditor/internal/pkg/errors"

	json "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const anthropicVersion = `2023-06-01`

// Per million tokens.
const (
	inputTokenCostUSD  = 3.0
	outputTokenCostUSD = 15.0
)

type ClaudeConfig struct {
	APIKey       string
	BaseURL      string
	Model        string
	Timeout      time.Duration
	RateLimitRPM int
}

func DefaultClaudeConfig() ClaudeConfig {
	return ClaudeConfig{
		BaseURL:      `https://api.anthropic.com`,
		Model:        `claude-sonnet-4-20250514`,
		Timeout:      120 * time.Second,
		RateLimitRPM: 50,
	}
}

// ClaudeClient implements the judgment service on the Anthropic Messages API.
type ClaudeClient struct {
	cfg     ClaudeConfig
	client  *http.Client
	limiter *rate.Limiter
	cache   domain.ResponseCache
	log     *log.Logger
}

// NewClaudeClient builds the client. cache may be nil.
func NewClaudeClient(cfg ClaudeConfig, cache domain.ResponseCache, log *log.Logger) (*ClaudeClient, error) {
	if cfg.APIKey == `` {
		return nil, errors.New(`anthropic api key is required`)
	}
	d := DefaultClaudeConfig()
	if cfg.BaseURL == `` {
		cfg.BaseURL = d.BaseURL
	}
	if cfg.Model == `` {
		cfg.Model = d.Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.RateLimitRPM <= 0 {
		cfg.RateLimitRPM = d.RateLimitRPM
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, `/`)

	return &ClaudeClient{
		cfg: cfg,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: instrumentedTransport(nil),
		},
		limiter: rate.NewLimiter(rate.Limit(float64(cfg.RateLimitRPM)/60.0), 1),
		cache:   cache,
		log:     log,
	}, nil
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system,omitempty"`
	Messages  []message `json:"messages"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string       `json:"type"`
	Text   string       `json:"text,omitempty"`
	Source *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messageResponse struct {
	Model   string         `json:"model"`
	Content []contentBlock `json:"content"`
	Usage   struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// Judge sends one structured prompt. Cached answers are returned without a call.
// Answers reach the cache only through Confirm.
// Rate limiting waits count against ctx like the request itself.
func (c *ClaudeClient) Judge(ctx context.Context, req domain.JudgmentRequest) (*domain.JudgmentResponse, error) {
	start := time.Now()
	key := c.cacheKey(req)
	if c.cache != nil {
		raw, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			c.log.WithContext(ctx).WithError(err).Debug(`judgment cache read failed`)
		}
		if ok {
			return &domain.JudgmentResponse{Raw: raw, Model: c.cfg.Model, Duration: time.Since(start), Cached: true}, nil
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.classify(ctx, req.Task, err)
	}

	body, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, errors.NewJudgmentError(errors.JudgmentInvalidResponse, req.Task, errors.Wrap(err, `failed to encode request`))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+`/v1/messages`, bytes.NewReader(body))
	if err != nil {
		return nil, errors.NewJudgmentError(errors.JudgmentServiceUnavailable, req.Task, errors.Wrap(err, `failed to create request`))
	}
	httpReq.Header.Set(`content-type`, `application/json`)
	httpReq.Header.Set(`x-api-key`, c.cfg.APIKey)
	httpReq.Header.Set(`anthropic-version`, anthropicVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, c.classify(ctx, req.Task, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.classify(ctx, req.Task, err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		_ = json.Unmarshal(payload, &apiErr)
		kind := errors.JudgmentServiceUnavailable
		if resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout {
			kind = errors.JudgmentTimeout
		}
		return nil, errors.NewJudgmentError(kind, req.Task,
			errors.Errorf(`anthropic api status %d: %s %s`, resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message))
	}

	var mr messageResponse
	if err := json.Unmarshal(payload, &mr); err != nil {
		return nil, errors.NewJudgmentError(errors.JudgmentInvalidResponse, req.Task, errors.Wrap(err, `failed to decode response`))
	}
	var text strings.Builder
	for _, block := range mr.Content {
		if block.Type == `text` {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, errors.NewJudgmentError(errors.JudgmentInvalidResponse, req.Task, errors.New(`response has no text content`))
	}

	out := &domain.JudgmentResponse{
		Raw:          text.String(),
		Model:        mr.Model,
		InputTokens:  mr.Usage.InputTokens,
		OutputTokens: mr.Usage.OutputTokens,
		CostUSD:      Cost(mr.Usage.InputTokens, mr.Usage.OutputTokens),
		Duration:     time.Since(start),
	}
	c.log.WithContext(ctx).WithFields(log.Fields{
		`task`:          req.Task,
		`input_tokens`:  out.InputTokens,
		`output_tokens`: out.OutputTokens,
		`duration`:      out.Duration.String(),
	}).Debug(`judgment completed`)
	return out, nil
}

// Confirm caches an answer the caller has validated.
func (c *ClaudeClient) Confirm(ctx context.Context, req domain.JudgmentRequest, resp *domain.JudgmentResponse) {
	if c.cache == nil || resp == nil || resp.Cached {
		return
	}
	if err := c.cache.Set(ctx, c.cacheKey(req), resp.Raw); err != nil {
		c.log.WithContext(ctx).WithError(err).Debug(`judgment cache write failed`)
	}
}

// Cost is the USD price of a call.
func Cost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)*inputTokenCostUSD + float64(outputTokens)*outputTokenCostUSD) / 1_000_000
}

func (c *ClaudeClient) buildRequest(req domain.JudgmentRequest) messageRequest {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	var blocks []contentBlock
	for _, img := range req.Images {
		if img.Label != `` {
			blocks = append(blocks, contentBlock{Type: `text`, Text: img.Label})
		}
		blocks = append(blocks, contentBlock{
			Type: `image`,
			Source: &imageSource{
				Type:      `base64`,
				MediaType: img.MediaType,
				Data:      base64.StdEncoding.EncodeToString(img.Data),
			},
		})
	}
	prompt := req.Prompt
	if req.Schema != `` {
		prompt += "\n\nRespond with a single JSON document of this shape:\n" + req.Schema
	}
	blocks = append(blocks, contentBlock{Type: `text`, Text: prompt})

	return messageRequest{
		Model:     c.cfg.Model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []message{{Role: `user`, Content: blocks}},
	}
}

// cacheKey fingerprints everything that influences the answer.
func (c *ClaudeClient) cacheKey(req domain.JudgmentRequest) string {
	h := sha256.New()
	for _, part := range []string{c.cfg.Model, req.Task, req.System, req.Prompt, req.Schema} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	for _, img := range req.Images {
		sum := sha256.Sum256(img.Data)
		h.Write(sum[:])
	}
	return fmt.Sprintf(`judgment:%s`, hex.EncodeToString(h.Sum(nil)))
}

func (c *ClaudeClient) classify(ctx context.Context, task string, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return errors.NewJudgmentError(errors.JudgmentTimeout, task, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return errors.NewJudgmentError(errors.JudgmentTimeout, task, err)
	}
	return errors.NewJudgmentError(errors.JudgmentServiceUnavailable, task, err)
}
