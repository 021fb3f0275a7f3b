package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// Request is one call received by a Webhook.
type Request struct {
	Method      string
	ContentType string
	APIKey      string
	Body        []byte
}

// JSON decodes the request body into a generic map.
func (r Request) JSON(t *testing.T) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(r.Body, &m); err != nil {
		t.Fatalf("decoding webhook body: %v", err)
	}
	return m
}

// Webhook is a fake remote endpoint. Responses are taken from Statuses in
// order; once exhausted every call gets Default.
type Webhook struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	statuses []int
	Default  int
	Handler  func(w http.ResponseWriter, r *http.Request) bool
}

// NewWebhook starts a fake endpoint answering 200 unless told otherwise.
func NewWebhook(t *testing.T, statuses ...int) *Webhook {
	t.Helper()

	wh := &Webhook{statuses: statuses, Default: http.StatusOK}
	wh.Server = httptest.NewServer(http.HandlerFunc(wh.serve))
	t.Cleanup(wh.Close)
	return wh
}

func (wh *Webhook) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	wh.mu.Lock()
	wh.requests = append(wh.requests, Request{
		Method:      r.Method,
		ContentType: r.Header.Get("Content-Type"),
		APIKey:      r.Header.Get("x-api-key"),
		Body:        body,
	})
	status := wh.Default
	if len(wh.statuses) > 0 {
		status = wh.statuses[0]
		wh.statuses = wh.statuses[1:]
	}
	handler := wh.Handler
	wh.mu.Unlock()

	if handler != nil && handler(w, r) {
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if status >= 200 && status < 300 {
		_, _ = w.Write([]byte(`{"ok":true}`))
		return
	}
	_, _ = w.Write([]byte(`{"error":"rejected"}`))
}

// SetStatuses replaces the scripted responses.
func (wh *Webhook) SetStatuses(statuses ...int) {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	wh.statuses = statuses
}

// SetDefault changes the status returned once the script is exhausted.
func (wh *Webhook) SetDefault(status int) {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	wh.Default = status
}

// Requests returns a copy of every call received so far.
func (wh *Webhook) Requests() []Request {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	out := make([]Request, len(wh.requests))
	copy(out, wh.requests)
	return out
}

// Count returns how many calls were received.
func (wh *Webhook) Count() int {
	wh.mu.Lock()
	defer wh.mu.Unlock()
	return len(wh.requests)
}
