package client

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/farkhanisturkia/mapsReactGo/internal/geo"
)

// ---------------------------------------------------------------------------
// Test doubles
// ---------------------------------------------------------------------------

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// scriptedSender replies with the next scripted outcome and counts calls.
type scriptedSender struct {
	mu       sync.Mutex
	replies  []func(*http.Request) (*http.Response, error)
	requests []*http.Request
}

func (s *scriptedSender) Do(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	idx := len(s.requests)
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if idx >= len(s.replies) {
		return nil, errors.New("scriptedSender: no reply scripted")
	}
	return s.replies[idx](req)
}

func (s *scriptedSender) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func reply(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) { return jsonResponse(status, body), nil }
}

func fail(err error) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) { return nil, err }
}

func panicking() func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(panicReader{})}, nil
	}
}

// panicReader simulates a failure deep inside body decoding.
type panicReader struct{}

func (panicReader) Read([]byte) (int, error) { panic("body exploded") }

// staticPoints is a fixed PointSource.
type staticPoints []geo.Point

func (s staticPoints) Points() []geo.Point { return s }

// mustPanic runs fn and fails the test when it does not panic.
func mustPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic, got none")
		}
	}()
	fn()
}
