// Package testutil provides shared test utilities and fixtures.
//
// This package centralises common test helpers to reduce code duplication
// across test files and improve test maintainability.
package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// FeedEpoch is the timestamp of the first record produced by FeedJSON.
var FeedEpoch = time.Date(2022, 8, 5, 8, 0, 0, 0, time.UTC)

// AssertStatusCode checks that the response status code matches expected.
func AssertStatusCode(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Errorf("status code = %d, want %d", got, want)
	}
}

// NewTestRequest creates a test HTTP request.
func NewTestRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

// NewJSONRequest creates a test HTTP request with a JSON body.
func NewJSONRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// LocalRequest creates a test request that appears to come from localhost,
// which tsweb.AllowDebugAccess requires for /debug/ routes.
func LocalRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.RemoteAddr = "127.0.0.1:12345"
	return req
}

// NewTestRecorder creates a test response recorder.
func NewTestRecorder() *httptest.ResponseRecorder {
	return httptest.NewRecorder()
}

// DecodeJSON decodes a recorder's body into dst, failing the test on error.
func DecodeJSON(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// FeedRecord returns the i-th (zero-based) synthetic feed record as a JSON
// object. Yaw is i+1 so tests can identify records by value.
func FeedRecord(i int) string {
	ts := FeedEpoch.Add(time.Duration(i) * time.Second).Format(time.RFC3339Nano)
	return fmt.Sprintf(`{"yaw":%d,"pitch":0.5,"roll":-0.5,"alt":%d,"lat":-6.365,"lng":106.824,"insertedAt":%q}`,
		i+1, 100+i, ts)
}

// FeedJSON returns a feed body holding records 0..n-1.
func FeedJSON(n int) string {
	recs := make([]string, n)
	for i := range recs {
		recs[i] = FeedRecord(i)
	}
	return "[" + strings.Join(recs, ",") + "]"
}
