package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/farkhanisturkia/mapsReactGo/internal/logging"
)

const (
	// maxResponseBytes caps how much of a response body is read.
	maxResponseBytes = 10 << 20

	httpMaxIdleConns    = 10
	httpIdleConnTimeout = 30 * time.Second

	// RequestIDHeader correlates client requests with server logs.
	RequestIDHeader = "X-Request-ID"
)

// Sender sends one HTTP request. *http.Client satisfies it; tests substitute
// fakes through SenderFunc.
type Sender interface {
	Do(req *http.Request) (*http.Response, error)
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(req *http.Request) (*http.Response, error)

// Do calls f(req).
func (f SenderFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// HTTPSender is the production Sender. It tags every request with a request
// ID and logs the exchange at debug level.
type HTTPSender struct {
	client *http.Client
	log    logging.Logger
}

// NewHTTPSender creates a Sender whose requests time out after timeout.
// A timeout surfaces to orchestrators as a transport failure.
func NewHTTPSender(timeout time.Duration, log logging.Logger) *HTTPSender {
	if log == nil {
		log = logging.Noop()
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        httpMaxIdleConns,
		MaxIdleConnsPerHost: httpMaxIdleConns,
		IdleConnTimeout:     httpIdleConnTimeout,
	}
	return &HTTPSender{
		client: &http.Client{Timeout: timeout, Transport: transport},
		log:    log,
	}
}

// Do sends req, adding an X-Request-ID header when the caller set none.
func (s *HTTPSender) Do(req *http.Request) (*http.Response, error) {
	ctx, id := logging.EnsureRequestID(req.Context())
	req = req.WithContext(ctx)
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, id)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		s.log.Debug(ctx, "http request failed",
			logging.String("method", req.Method),
			logging.String("url", req.URL.Redacted()),
			logging.Duration("elapsed", elapsed),
			logging.Err(err),
		)
		return nil, err
	}

	s.log.Debug(ctx, "http request completed",
		logging.String("method", req.Method),
		logging.String("url", req.URL.Redacted()),
		logging.Int("status", resp.StatusCode),
		logging.Duration("elapsed", elapsed),
	)
	return resp, nil
}

// exchange sends req through sender and decodes a 2xx JSON body into out.
// Every failure is returned as an *Error tagged with op.
func exchange(sender Sender, req *http.Request, op string, out any) error {
	resp, err := sender.Do(req)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Error{Kind: KindStatus, Op: op, StatusCode: resp.StatusCode, Detail: serverError(body)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: KindDecode, Op: op, Err: err}
	}
	return nil
}

// serverError extracts the "error" field of a JSON error body, if present.
func serverError(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return strings.TrimSpace(payload.Error)
}
