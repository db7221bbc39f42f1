// Package remote talks to the xPRO ecommerce and authentication API on
// behalf of a browser session.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/xpro-storefront/internal/common"
	"github.com/noah-isme/xpro-storefront/internal/obs"
	"github.com/noah-isme/xpro-storefront/internal/resilience"
)

const (
	// DefaultCSRFCookie is the cookie the API issues its CSRF token in.
	DefaultCSRFCookie = "csrftoken"
	// DefaultCSRFHeader carries the CSRF token on mutating requests.
	DefaultCSRFHeader = "X-CSRFTOKEN"

	maxBodyBytes = 1 << 20
)

// Config configures a Client.
type Config struct {
	BaseURL    string
	HTTP       resilience.HTTPClient
	CSRFCookie string
	CSRFHeader string
	UserAgent  string
	Logger     zerolog.Logger
}

// Client issues requests against the remote API. It is safe for concurrent use;
// per-user state lives in the Session passed to each call.
type Client struct {
	base       *url.URL
	http       resilience.HTTPClient
	csrfCookie string
	csrfHeader string
	userAgent  string
	logger     zerolog.Logger
}

// New validates cfg and returns a Client.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("remote: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.New("remote: base url must be http or https")
	}
	if base.Host == "" {
		return nil, errors.New("remote: base url must include host")
	}
	if cfg.HTTP.Client == nil {
		cfg.HTTP.Client = http.DefaultClient
	}
	c := &Client{
		base:       base,
		http:       cfg.HTTP,
		csrfCookie: cfg.CSRFCookie,
		csrfHeader: cfg.CSRFHeader,
		userAgent:  cfg.UserAgent,
		logger:     cfg.Logger,
	}
	if c.csrfCookie == "" {
		c.csrfCookie = DefaultCSRFCookie
	}
	if c.csrfHeader == "" {
		c.csrfHeader = DefaultCSRFHeader
	}
	if c.userAgent == "" {
		c.userAgent = "xpro-storefront/1.0"
	}
	return c, nil
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.base.String() }

// call performs one request and decodes a 2xx body into out. Non-2xx
// responses become *RequestError.
func (c *Client) call(ctx context.Context, sess *Session, endpoint, method, path string, query url.Values, payload, out any) error {
	status, body, err := c.send(ctx, sess, endpoint, method, path, query, payload)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return parseRequestError(endpoint, status, body)
	}
	return decode(endpoint, body, out)
}

func decode(endpoint string, body []byte, out any) error {
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("remote: decode %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, sess *Session, endpoint, method, path string, query url.Values, payload any) (int, []byte, error) {
	ctx, span := otel.Tracer("remote.Client").Start(ctx, "Client."+endpoint)
	defer span.End()
	span.SetAttributes(
		attribute.String("remote.endpoint", endpoint),
		attribute.String("http.method", method),
	)

	target := c.base.ResolveReference(&url.URL{Path: strings.TrimPrefix(path, "/")})
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			span.RecordError(err)
			return 0, nil, fmt.Errorf("remote: encode %s: %w", endpoint, err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		span.RecordError(err)
		return 0, nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := middleware.GetReqID(ctx)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	req.Header.Set("X-Request-ID", reqID)
	sess.attach(req)
	if mutating(method) {
		if token, ok := sess.Get(c.csrfCookie); ok {
			req.Header.Set(c.csrfHeader, token)
		}
		req.Header.Set("Referer", c.base.String())
	}

	start := time.Now()
	resp, err := c.http.Do(ctx, req)
	var statusErr *resilience.StatusError
	if errors.As(err, &statusErr) {
		obs.ObserveRemote(endpoint, statusErr.StatusCode, time.Since(start))
		span.SetStatus(codes.Error, statusErr.Status)
		c.logger.Warn().Int("status", statusErr.StatusCode).Str("endpoint", endpoint).Str("request_id", reqID).Msg("remote call failed")
		return statusErr.StatusCode, nil, nil
	}
	if err != nil {
		obs.ObserveRemote(endpoint, 0, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.logger.Warn().Err(err).Str("endpoint", endpoint).Str("request_id", reqID).Msg("remote call failed")
		if ctx.Err() != nil {
			return 0, nil, ctx.Err()
		}
		return 0, nil, common.NewAppError("REMOTE_UNAVAILABLE", "remote service unavailable", http.StatusServiceUnavailable, fmt.Errorf("remote: %s: %w", endpoint, err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	sess.absorb(resp)
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	elapsed := time.Since(start)
	obs.ObserveRemote(endpoint, resp.StatusCode, elapsed)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if err != nil {
		span.RecordError(err)
		return resp.StatusCode, nil, fmt.Errorf("remote: read %s: %w", endpoint, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}
	c.logger.Debug().
		Str("endpoint", endpoint).
		Str("method", method).
		Int("status", resp.StatusCode).
		Int64("duration_ms", elapsed.Milliseconds()).
		Str("request_id", reqID).
		Msg("remote call")
	return resp.StatusCode, body, nil
}

func mutating(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}
